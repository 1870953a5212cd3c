// Package config loads CLI defaults from BLOCKTRIGGER_* environment variables.
// Command-line flags override whatever is loaded here.
package config

import (
	"fmt"
	"slices"

	"github.com/caarlos0/env/v11"
)

// Config holds environment-provided defaults for the blocktrigger CLI.
type Config struct {
	DB         string `env:"BLOCKTRIGGER_DB"          envDefault:"blocktrigger.db"`
	Format     string `env:"BLOCKTRIGGER_FORMAT"      envDefault:"text"`
	Verbose    bool   `env:"BLOCKTRIGGER_VERBOSE"`
	Document   string `env:"BLOCKTRIGGER_DOCUMENT"    envDefault:"default"`
	MaxCascade int    `env:"BLOCKTRIGGER_MAX_CASCADE" envDefault:"10000"`
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Load parses Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses Config from an explicit environment map instead of the
// process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no command can use.
func (c Config) Validate() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if c.MaxCascade < 0 {
		return fmt.Errorf("invalid max cascade %d: must be >= 0", c.MaxCascade)
	}
	return nil
}
