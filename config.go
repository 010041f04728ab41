package ddns

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the values resolved once at process start.
// It is read from the environment and never mutated afterwards.
type Config struct {
	// APIToken is the Cloudflare bearer token. It may also be filled from a
	// key file by the caller before Validate runs.
	APIToken string `env:"CLOUDFLARE_API_TOKEN"`
	// ZoneID identifies the Cloudflare zone holding the record.
	ZoneID string `env:"ZONE_ID"`
	// Domain is the base domain, e.g. "example.com".
	Domain string `env:"DOMAIN"`
	// RecordName is the subdomain label of the managed A record, e.g. "home".
	RecordName string `env:"A_RECORD_NAME"`
}

// LoadConfig reads Config from the environment,
// loading a .env file first when one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return c, nil
}

// Validate reports the first missing required value by its environment
// variable name, so a misconfigured run fails before any provider call.
func (c Config) Validate() error {
	if c.APIToken == "" {
		return errors.New("CLOUDFLARE_API_TOKEN is required")
	}
	if c.ZoneID == "" {
		return errors.New("ZONE_ID is required")
	}
	if c.Domain == "" {
		return errors.New("DOMAIN is required")
	}
	if c.RecordName == "" {
		return errors.New("A_RECORD_NAME is required")
	}
	return nil
}

// FQDN returns the full name whose A record is managed.
func (c Config) FQDN() string {
	return c.RecordName + "." + c.Domain
}
