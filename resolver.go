package ddns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo/mutable"
	"go.uber.org/zap"
)

// DefaultServices lists the public IP echo endpoints used when no resolver
// was configured. They are a mix of JSON and plain-text responders.
var DefaultServices = []string{
	"https://api.ipify.org?format=json",
	"https://api.myip.com",
	"https://ipinfo.io/ip",
	"https://checkip.amazonaws.com",
	"https://ident.me",
}

// WebResolver constructs a resolver which asks external web services for our
// public IP address.
//
// Each serviceURL must speak http and answer a plain GET with either a JSON
// document containing an "ip" field or a bare IP address as the response body.
// Services are tried one at a time in randomized order until one answers;
// a failing service is skipped, never fatal.
func WebResolver(serviceURL ...string) (Resolver, error) {
	var URLs []*url.URL
	for _, u := range serviceURL {
		pu, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("error parsing URL: %w", err)
		}
		URLs = append(URLs, pu)
	}
	return &webResolver{serviceURLs: URLs, logger: zap.NewNop()}, nil
}

type webResolver struct {
	httpClient  *http.Client
	logger      *zap.Logger
	serviceURLs []*url.URL
}

// Resolve implements ddns.Resolver.
//
// The shuffle spreads load across the services between runs instead of
// hammering the same provider first every time. The first successful
// response wins and no further services are contacted. When every service
// fails the result is an empty string, which callers treat as "no current
// IP determined".
func (wr *webResolver) Resolve(ctx context.Context) (string, error) {
	services := slices.Clone(wr.serviceURLs)
	mutable.Shuffle(services)

	for _, u := range services {
		ip, err := wr.lookup(ctx, u)
		if err != nil {
			wr.logger.Warn("failed to get IP from service",
				zap.String("service", u.Host),
				zap.Error(err))
			continue
		}
		wr.logger.Debug("found current IP",
			zap.String("ip", ip),
			zap.String("service", u.Host))
		return ip, nil
	}
	return "", nil
}

func (wr *webResolver) lookup(ctx context.Context, u *url.URL) (string, error) {
	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that all calls to Resolve will eventually complete even if the caller supplied context.TODO or context.Background
	// using http.DefaultClient (with no timeout).
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	return extractIP(body), nil
}

// extractIP handles both response shapes the echo services use:
// a JSON document with an "ip" field, or the bare address as text.
// Valid JSON without an "ip" field falls through to the text form of the
// same response rather than the next service.
func extractIP(body []byte) string {
	var parsed struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.IP != "" {
		return parsed.IP
	}
	return strings.TrimSpace(string(body))
}
