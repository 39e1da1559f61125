package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/woofinder/core/config"
	coredatabase "github.com/m3rciful/woofinder/core/database"
)

// Backends for storage and sessions.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// BackendConfig picks where a kind of state lives.
type BackendConfig struct {
	Backend string `yaml:"backend"`
}

// SearchConfig tunes the others' reports search.
type SearchConfig struct {
	RadiusKm float64 `yaml:"radius_km" envconfig:"SEARCH_RADIUS_KM"`
}

// Config is the WooFinder configuration: the core sections plus the bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  BackendConfig       `yaml:"storage"`
	Sessions BackendConfig       `yaml:"sessions"`
	Search   SearchConfig        `yaml:"search"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// NeedsDatabase reports whether any backend is postgres.
func (c *Config) NeedsDatabase() bool {
	return c.Storage.Backend == BackendPostgres || c.Sessions.Backend == BackendPostgres
}

// LoadConfig reads path, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.ReadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	var err error
	if c.Storage.Backend, err = normalizeBackend("storage", c.Storage.Backend); err != nil {
		return err
	}
	if c.Sessions.Backend, err = normalizeBackend("sessions", c.Sessions.Backend); err != nil {
		return err
	}

	if c.NeedsDatabase() {
		if err := c.Database.Normalize(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if c.Search.RadiusKm < 0 {
		return fmt.Errorf("search.radius_km must be >= 0")
	}
	if c.Search.RadiusKm == 0 {
		c.Search.RadiusKm = 0.5
	}
	return nil
}

func normalizeBackend(section, v string) (string, error) {
	b := strings.ToLower(strings.TrimSpace(v))
	switch b {
	case "":
		return BackendPostgres, nil
	case BackendPostgres, BackendMemory:
		return b, nil
	}
	return "", fmt.Errorf("invalid %s.backend %q; allowed: postgres, memory", section, v)
}
