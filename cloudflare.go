package ddns

import (
	"context"
	"fmt"

	"github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

func newCloudflareProvider(cfg Config, opts ...cloudflare.Option) (cf *cloudflareProvider, err error) {
	cf = new(cloudflareProvider)
	cf.api, err = cloudflare.NewWithAPIToken(cfg.APIToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.zone = cloudflare.ZoneIdentifier(cfg.ZoneID)
	cf.recordName = cfg.RecordName
	cf.logger = zap.NewNop()
	return cf, nil
}

// cloudflareProvider implements ddns.Provider against a single Cloudflare zone.
//
// It should be constructed through ddns.UsingCloudflare.
type cloudflareProvider struct {
	api        *cloudflare.API
	zone       *cloudflare.ResourceContainer
	recordName string
	logger     *zap.Logger
}

// FindRecord lists the zone's A records and returns the one named fqdn.
//
// The whole zone is listed and folded into a map keyed by record name,
// last occurrence winning. The zone is expected to hold at most one A record
// per name, so a duplicate is reported but not treated as an error.
func (cf *cloudflareProvider) FindRecord(ctx context.Context, fqdn string) (Record, bool, error) {
	records, _, err := cf.api.ListDNSRecords(ctx, cf.zone, cloudflare.ListDNSRecordsParams{
		Type: "A",
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("error listing DNS records: %w", err)
	}
	cf.logger.Debug("listed zone A records", zap.Int("count", len(records)))

	byName := make(map[string]cloudflare.DNSRecord, len(records))
	for _, r := range records {
		if _, dup := byName[r.Name]; dup {
			cf.logger.Warn("zone has multiple A records with the same name",
				zap.String("name", r.Name))
		}
		byName[r.Name] = r
	}

	r, ok := byName[fqdn]
	if !ok {
		return Record{}, false, nil
	}
	return Record{ID: r.ID, Name: r.Name, Content: r.Content}, true, nil
}

// UpdateRecord points the record at ip, with automatic TTL and the
// Cloudflare proxy disabled.
//
// Any transport, authentication, or non-2xx failure surfaces through the
// returned error; there are no retries.
func (cf *cloudflareProvider) UpdateRecord(ctx context.Context, recordID string, ip string) (Record, error) {
	r, err := cf.api.UpdateDNSRecord(ctx, cf.zone, cloudflare.UpdateDNSRecordParams{
		ID:      recordID,
		Type:    "A",
		Name:    cf.recordName,
		Content: ip,
		TTL:     1, // 1 means "automatic" to cloudflare
		Proxied: cloudflare.BoolPtr(false),
	})
	if err != nil {
		return Record{}, fmt.Errorf("error updating DNS record %s: %w", recordID, err)
	}
	cf.logger.Debug("updated record",
		zap.String("id", r.ID),
		zap.String("content", r.Content))
	return Record{ID: r.ID, Name: r.Name, Content: r.Content}, nil
}
