package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings; time.Duration fields
// accept Go duration strings such as "5m" or "1h".
//
// Example:
//
//	type Config struct {
//	    Port     int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
//	    CacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"5m"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
