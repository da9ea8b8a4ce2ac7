package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:motofeeds.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Ingest IngestConfig `yaml:"ingest" json:"ingest" jsonschema:"description=Ingestion configuration"`

	Sources []SourceConfig `yaml:"sources" json:"sources" jsonschema:"description=Source roster seeded into the store at startup"`
}

// IngestConfig holds ingestion settings
type IngestConfig struct {
	Secret         string        `yaml:"secret" json:"secret" jsonschema:"required,description=Shared secret for the ingest trigger endpoint"`
	SourceTimeout  time.Duration `yaml:"source_timeout" json:"source_timeout" jsonschema:"default=20s,description=Timeout for one source's fetch and write work"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" json:"resolve_timeout" jsonschema:"default=15s,description=Timeout for channel handle resolution"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=motofeeds/1.0 (+feed ingest),description=User agent for feed and page fetches"`
	HalfLife       time.Duration `yaml:"half_life" json:"half_life" jsonschema:"default=36h,description=Recency decay half-life for composite ranking"`
	RescoreWorkers int           `yaml:"rescore_workers" json:"rescore_workers" jsonschema:"default=4,description=Concurrent workers for the rescore backfill"`
}

// SourceConfig is one roster entry as declared in the config file
type SourceConfig struct {
	Name      string   `yaml:"name" json:"name" jsonschema:"required,description=Unique source name"`
	Platform  string   `yaml:"platform" json:"platform" jsonschema:"required,enum=youtube,enum=rss,enum=atom,description=Source platform"`
	Handle    string   `yaml:"handle" json:"handle" jsonschema:"description=Channel handle for youtube sources"`
	ChannelID string   `yaml:"channel_id" json:"channel_id" jsonschema:"description=Stable channel identifier if already known"`
	URLs      []string `yaml:"urls" json:"urls" jsonschema:"description=Ordered candidate feed URLs"`
	Tier      int      `yaml:"tier" json:"tier" jsonschema:"default=2,minimum=1,maximum=3,description=Editorial weight: 1 highest"`
	Enabled   bool     `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Whether the source participates in ingestion"`
}

// Load reads configuration from a YAML file with environment variable expansion
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:motofeeds.db?cache=shared&mode=rwc"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for ingestion
	if cfg.Ingest.SourceTimeout == 0 {
		cfg.Ingest.SourceTimeout = 20 * time.Second
	}
	if cfg.Ingest.ResolveTimeout == 0 {
		cfg.Ingest.ResolveTimeout = 15 * time.Second
	}
	if cfg.Ingest.UserAgent == "" {
		cfg.Ingest.UserAgent = "motofeeds/1.0 (+feed ingest)"
	}
	if cfg.Ingest.HalfLife == 0 {
		cfg.Ingest.HalfLife = 36 * time.Hour
	}
	if cfg.Ingest.RescoreWorkers == 0 {
		cfg.Ingest.RescoreWorkers = 4
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Ingest.Secret == "" {
		return fmt.Errorf("ingest.secret is required")
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate name %q", i, src.Name)
		}
		seen[src.Name] = true

		switch src.Platform {
		case "youtube":
			if src.Handle == "" && src.ChannelID == "" && len(src.URLs) == 0 {
				return fmt.Errorf("source %q: youtube source needs a handle, channel_id or urls", src.Name)
			}
		case "rss", "atom":
			if len(src.URLs) == 0 {
				return fmt.Errorf("source %q: at least one feed URL is required", src.Name)
			}
		default:
			return fmt.Errorf("source %q: unknown platform %q", src.Name, src.Platform)
		}

		if src.Tier != 0 && (src.Tier < 1 || src.Tier > 3) {
			return fmt.Errorf("source %q: tier must be 1..3", src.Name)
		}
	}

	return nil
}

// GetServerConfig returns the HTTP server settings
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
