package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using its
// `env`, `envDefault` and `envSeparator` tags.
//
// Example:
//
//	type Config struct {
//	    Port         int      `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
//	    SearchFields []string `env:"SEARCH_FIELDS" envDefault:"name,sku" envSeparator:","`
//	}
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadFrom is Load reading variables from environ instead of the process
// environment.
func LoadFrom(cfg any, environ map[string]string) error {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(cfg, env.Options{Environment: environ})
}

func parse(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
