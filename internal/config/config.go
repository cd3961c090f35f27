package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/storefront-search/pkg/config"
)

// Catalog backends.
const (
	CatalogPostgres      = "postgres"
	CatalogElasticsearch = "elasticsearch"
	CatalogMemory        = "memory"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	HTTPReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	HTTPWriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	AdminToken         string        `env:"ADMIN_TOKEN"`
	RateLimitRPS       float64       `env:"SEARCH_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst     int           `env:"SEARCH_RATE_LIMIT_BURST" envDefault:"100"`

	// Catalog backend (postgres, elasticsearch or memory)
	CatalogBackend  string `env:"CATALOG_BACKEND" envDefault:"postgres"`
	CatalogSeedFile string `env:"CATALOG_SEED_FILE"`
	RelevanceWindow int    `env:"RELEVANCE_WINDOW" envDefault:"1000"`

	// PostgreSQL
	PostgresHost         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser         string        `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPassword     string        `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB           string        `env:"POSTGRES_DB" envDefault:"ecommerce"`
	PostgresSSLMode      string        `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBSlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"ecommerce_products"`

	// Cache
	CacheBackend        string        `env:"CACHE_BACKEND" envDefault:"redis"`
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`
	SearchCacheTTL      time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"5m"`
	SuggestCacheTTL     time.Duration `env:"SUGGEST_CACHE_TTL" envDefault:"1h"`
	CacheBreakerEnabled bool          `env:"CACHE_BREAKER_ENABLED" envDefault:"true"`

	// Kafka
	KafkaBrokers            []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	CacheInvalidationEvents bool     `env:"CACHE_INVALIDATION_EVENTS" envDefault:"true"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.CatalogBackend {
	case CatalogPostgres, CatalogElasticsearch, CatalogMemory:
	default:
		return fmt.Errorf("invalid CATALOG_BACKEND %q: want postgres, elasticsearch or memory", c.CatalogBackend)
	}
	switch c.CacheBackend {
	case CacheRedis, CacheMemory:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: want redis or memory", c.CacheBackend)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	if c.RelevanceWindow < 1 {
		return fmt.Errorf("RELEVANCE_WINDOW must be positive, got %d", c.RelevanceWindow)
	}
	if c.SearchCacheTTL <= 0 || c.SuggestCacheTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.CacheInvalidationEvents && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when CACHE_INVALIDATION_EVENTS is enabled")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1, got %v", c.OTelSampleRate)
	}
	return nil
}
