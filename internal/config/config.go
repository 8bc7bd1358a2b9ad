package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/utafrali/storefront-search/internal/domain"
	pkgconfig "github.com/utafrali/storefront-search/pkg/config"
)

// Config holds all configuration for the storefront search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RequestTimeout     time.Duration `env:"SEARCH_REQUEST_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	BoxCacheMaxAge     int           `env:"SEARCH_BOX_CACHE_MAX_AGE" envDefault:"300"`

	// Profiling endpoints, reachable only from the allowed networks
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Search backend selection (elasticsearch or memory)
	SearchEngine       string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"storefront_products"`

	// JSON array of products loaded into the memory engine at startup
	MemoryFixtureFile string `env:"SEARCH_MEMORY_FIXTURE" envDefault:""`

	// Circuit breaker around the search backend
	BreakerEnabled      bool          `env:"BREAKER_ENABLED" envDefault:"true"`
	BreakerTimeout      time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS" envDefault:"5"`

	// Last visited page store (redis or memory)
	VisitStore    string        `env:"VISIT_STORE" envDefault:"redis"`
	VisitTTL      time.Duration `env:"VISIT_TTL" envDefault:"720h"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	ServiceVersion string  `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// Search behavior
	InstantSearchEnabled          bool     `env:"INSTANT_SEARCH_ENABLED" envDefault:"true"`
	InstantSearchTermMinLength    int      `env:"INSTANT_SEARCH_TERM_MIN_LENGTH" envDefault:"2"`
	InstantSearchNumberOfProducts int      `env:"INSTANT_SEARCH_NUMBER_OF_PRODUCTS" envDefault:"10"`
	InstantSearchShowImages       bool     `env:"INSTANT_SEARCH_SHOW_IMAGES" envDefault:"true"`
	SearchFields                  []string `env:"SEARCH_FIELDS" envDefault:"name,shortdescription,tagname" envSeparator:","`
	DefaultPageSize               int      `env:"SEARCH_DEFAULT_PAGE_SIZE" envDefault:"24"`
	MaxPageSize                   int      `env:"SEARCH_MAX_PAGE_SIZE" envDefault:"100"`
	PageSizeOptions               []int    `env:"SEARCH_PAGE_SIZE_OPTIONS" envDefault:"12,24,36,72" envSeparator:","`
	DefaultLanguage               string   `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	DefaultStoreID                string   `env:"DEFAULT_STORE_ID" envDefault:"1"`
	SearchRouteBase               string   `env:"SEARCH_ROUTE_BASE" envDefault:"/search"`
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

// SearchSettings returns the immutable search settings derived from the config.
func (c *Config) SearchSettings() domain.Settings {
	return domain.Settings{
		InstantSearchEnabled:          c.InstantSearchEnabled,
		InstantSearchTermMinLength:    c.InstantSearchTermMinLength,
		InstantSearchNumberOfProducts: c.InstantSearchNumberOfProducts,
		ShowProductImagesInInstant:    c.InstantSearchShowImages,
		SearchFields:                  slices.Clone(c.SearchFields),
		DefaultPageSize:               c.DefaultPageSize,
		MaxPageSize:                   c.MaxPageSize,
		PageSizeOptions:               slices.Clone(c.PageSizeOptions),
		DefaultLanguage:               c.DefaultLanguage,
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case "elasticsearch", "memory":
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: must be elasticsearch or memory", c.SearchEngine)
	}
	switch c.VisitStore {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid VISIT_STORE %q: must be redis or memory", c.VisitStore)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("SEARCH_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.BoxCacheMaxAge < 0 {
		return fmt.Errorf("SEARCH_BOX_CACHE_MAX_AGE must not be negative, got %d", c.BoxCacheMaxAge)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0.0, 1.0], got %v", c.BreakerFailureRatio)
	}
	if c.InstantSearchTermMinLength < 1 {
		return fmt.Errorf("INSTANT_SEARCH_TERM_MIN_LENGTH must be positive, got %d", c.InstantSearchTermMinLength)
	}
	if c.InstantSearchNumberOfProducts < 1 {
		return fmt.Errorf("INSTANT_SEARCH_NUMBER_OF_PRODUCTS must be positive, got %d", c.InstantSearchNumberOfProducts)
	}
	if len(c.SearchFields) == 0 {
		return fmt.Errorf("SEARCH_FIELDS must list at least one field")
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("SEARCH_MAX_PAGE_SIZE must be positive, got %d", c.MaxPageSize)
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE must be between 1 and %d, got %d", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.DefaultLanguage == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE is required")
	}
	return nil
}
