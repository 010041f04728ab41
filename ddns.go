package ddns

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

// Resolver produces the caller's current public IPv4 address.
// An empty string with a nil error means no address could be determined.
type Resolver interface {
	Resolve(context.Context) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}

// Record holds the subset of a provider-owned DNS record this program
// consumes. The ID is opaque to us.
type Record struct {
	ID      string
	Name    string
	Content string
}

// Provider is a DNS provider bound to a single zone.
type Provider interface {
	FindRecord(ctx context.Context, fqdn string) (Record, bool, error)
	UpdateRecord(ctx context.Context, recordID string, ip string) (Record, error)
}

// New returns an Updater that manages the A record named fqdn.
func New(fqdn string, options ...Option) (*Updater, error) {
	if fqdn == "" {
		return nil, fmt.Errorf("ddns.New: fqdn cannot be empty")
	}
	u := &Updater{
		fqdn:   fqdn,
		logger: zap.NewNop(),
	}
	for i, opt := range options {
		if err := opt(u); err != nil {
			return nil, fmt.Errorf("ddns.New: option %d returned an error: %s", i, err)
		}
	}

	if u.provider == nil {
		return nil, fmt.Errorf("ddns.New: no DNS provider was registered and there is no default option - use ddns.UsingCloudflare or similar")
	}
	if u.resolver == nil {
		r, err := WebResolver(DefaultServices...)
		if err != nil {
			return nil, fmt.Errorf("ddns.New: error creating default web resolver: %w", err)
		}
		u.resolver = r
	}

	// this lets us propagate the logger to dependencies that use one if WithLogger was called before all of the dependencies were registered
	withLogger(u.logger)(u)
	return u, nil
}

type Option func(*Updater) error

// UsingCloudflare registers a Cloudflare DNS provider built from cfg.
// Additional cloudflare client options may be supplied, e.g. cloudflare.BaseURL.
func UsingCloudflare(cfg Config, opts ...cloudflare.Option) Option {
	return func(u *Updater) (err error) {
		if u.provider, err = newCloudflareProvider(cfg, opts...); err != nil {
			return fmt.Errorf("ddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingProvider registers any Provider implementation.
func UsingProvider(provider Provider) Option {
	return func(u *Updater) error {
		if provider == nil {
			return fmt.Errorf("ddns.UsingProvider: provider cannot be nil")
		}
		u.provider = provider
		return nil
	}
}

func UsingResolver(resolver Resolver) Option {
	return func(u *Updater) error {
		if resolver == nil {
			r, err := WebResolver(DefaultServices...)
			if err != nil {
				return fmt.Errorf("ddns.UsingResolver: error creating default web resolver: %w", err)
			}
			resolver = r
		}
		u.resolver = resolver
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(u *Updater) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		u.logger = logger
		return nil
	}
}

func withLogger(logger *zap.Logger) Option {
	return func(u *Updater) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		type setLogger interface {
			SetLogger(*zap.Logger)
		}

		switch p := u.provider.(type) {
		case *cloudflareProvider:
			p.logger = logger
		case setLogger:
			p.SetLogger(logger)
		}

		switch r := u.resolver.(type) {
		case *webResolver:
			r.logger = logger
		case setLogger:
			r.SetLogger(logger)
		}

		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) Option {
	return func(u *Updater) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		switch r := u.resolver.(type) {
		case *webResolver:
			r.httpClient = httpclient
		case setHTTPClient:
			r.SetHTTPClient(httpclient)
		}
		switch p := u.provider.(type) {
		case *cloudflareProvider:
			cloudflare.HTTPClient(httpclient)(p.api)
		case setHTTPClient:
			p.SetHTTPClient(httpclient)
		}
		return nil
	}
}

// Outcome is the terminal state of one run.
type Outcome string

const (
	// OutcomeUpdated means the record content was replaced with the current IP.
	OutcomeUpdated Outcome = "updated"
	// OutcomeUpToDate means the record already matched the current IP.
	OutcomeUpToDate Outcome = "up-to-date"
	// OutcomeNoRecord means no A record exists for the managed name.
	// This is a benign outcome, not an error.
	OutcomeNoRecord Outcome = "no-record"
)

// Result reports what one run did.
type Result struct {
	Outcome Outcome
	FQDN    string
	IP      string
	Record  Record
}

// Updater runs the lookup-resolve-compare-update cycle for one A record.
type Updater struct {
	provider Provider
	resolver Resolver
	logger   *zap.Logger
	fqdn     string
}

// Run performs one cycle: look up the existing A record, determine the
// current public IP, and update the record when the two differ.
//
// The record lookup happens first; when no record exists the resolver is
// never consulted. Provider errors propagate to the caller, which is
// expected to fail loudly - the external scheduler provides retry by
// reinvocation.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	record, found, err := u.provider.FindRecord(ctx, u.fqdn)
	if err != nil {
		return Result{}, fmt.Errorf("error looking up record for %s: %w", u.fqdn, err)
	}
	if !found {
		u.logger.Debug("no matching A record in zone", zap.String("fqdn", u.fqdn))
		return Result{Outcome: OutcomeNoRecord, FQDN: u.fqdn}, nil
	}
	u.logger.Debug("found existing record",
		zap.String("id", record.ID),
		zap.String("content", record.Content))

	ip, err := u.resolver.Resolve(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("error resolving current IP: %w", err)
	}

	if ip == record.Content {
		return Result{Outcome: OutcomeUpToDate, FQDN: u.fqdn, IP: ip, Record: record}, nil
	}

	updated, err := u.provider.UpdateRecord(ctx, record.ID, ip)
	if err != nil {
		return Result{}, fmt.Errorf("error updating %s to %q: %w", u.fqdn, ip, err)
	}
	return Result{Outcome: OutcomeUpdated, FQDN: u.fqdn, IP: ip, Record: updated}, nil
}
