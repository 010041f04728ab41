package ddns_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ddns "github.com/krets/cloudflare-ddns"
)

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	var mu sync.Mutex
	var hits int
	var urls []string
	for i := 0; i < 5; i++ {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits++
			mu.Unlock()
			io.WriteString(w, "203.0.113.7")
		}))
		defer srv.Close()
		urls = append(urls, srv.URL)
	}

	wr, err := ddns.WebResolver(urls...)
	require.NoError(t, err)

	// Every service succeeds, so regardless of shuffle order exactly one
	// request should go out per run.
	for i := 0; i < 20; i++ {
		mu.Lock()
		hits = 0
		mu.Unlock()

		ip, err := wr.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7", ip)

		mu.Lock()
		assert.Equal(t, 1, hits)
		mu.Unlock()
	}
}

func TestResolveJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ip":"198.51.100.4","country":"aq"}`)
	}))
	defer srv.Close()

	wr, err := ddns.WebResolver(srv.URL)
	require.NoError(t, err)

	ip, err := wr.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.4", ip)
}

func TestResolveJSONWithoutIPFieldFallsBackToText(t *testing.T) {
	// Valid JSON with no "ip" field should yield the raw text of that same
	// response, not a request to the next service.
	var mu sync.Mutex
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		io.WriteString(w, `{"country":"aq"}`+"\n")
	}))
	defer srv.Close()

	wr, err := ddns.WebResolver(srv.URL, srv.URL)
	require.NoError(t, err)

	ip, err := wr.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"country":"aq"}`, ip)

	mu.Lock()
	assert.Equal(t, 1, hits)
	mu.Unlock()
}

func TestResolveSkipsFailingServices(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	brokenURL := broken.URL
	broken.Close() // connection refused from now on

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer failing.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "9.9.9.9\n")
	}))
	defer good.Close()

	wr, err := ddns.WebResolver(brokenURL, failing.URL, good.URL)
	require.NoError(t, err)

	// Whatever order the shuffle picks, only the good service can answer,
	// and its body is returned with surrounding whitespace trimmed.
	for i := 0; i < 10; i++ {
		ip, err := wr.Resolve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "9.9.9.9", ip)
	}
}

func TestResolveAllServicesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wr, err := ddns.WebResolver(srv.URL, srv.URL, srv.URL)
	require.NoError(t, err)

	ip, err := wr.Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ip, "exhausting the chain should report an absent IP, not an error")
}

func TestWebResolverRejectsBadURL(t *testing.T) {
	_, err := ddns.WebResolver("https://ok.example.com", "://missing-scheme")
	assert.Error(t, err)
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{name: "valid ipv4", addr: "203.0.113.1", want: "203.0.113.1"},
		{name: "not an ip", addr: "not-an-ip", wantErr: true},
		{name: "ipv6 rejected", addr: "2001:db8::1", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ip, err := ddns.FromString(tc.addr).Resolve(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ip)
		})
	}
}
