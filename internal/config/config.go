// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Store    StoreConfig    `mapstructure:"store"`
	Poll     PollConfig     `mapstructure:"poll"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ProviderConfig points at the scrape provider API.
type ProviderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Provider  string          `mapstructure:"provider"`
	PostgREST PostgRESTConfig `mapstructure:"postgrest"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
}

// PostgRESTConfig configures the Supabase REST backend.
type PostgRESTConfig struct {
	ProjectRef     string `mapstructure:"project_ref"`
	ServiceRoleKey string `mapstructure:"service_role_key"`
	Table          string `mapstructure:"table"`
}

// PostgresConfig configures the direct Postgres backend.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PollConfig governs the reconciliation loop.
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	Concurrency     int `mapstructure:"concurrency"`
}

// ArchiveConfig selects where raw payloads are archived.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// EventsConfig selects where completion events are published.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// envOnlyKeys have no default, and AutomaticEnv only resolves env values for
// keys viper already knows. Without an explicit binding these would be
// invisible to Unmarshal in the file-less, environment-only mode.
var envOnlyKeys = []string{
	"provider.token",
	"store.postgrest.project_ref",
	"store.postgrest.service_role_key",
	"store.postgres.dsn",
	"store.postgres.max_conns",
	"archive.gcs_bucket",
	"archive.local_dir",
	"events.project_id",
	"events.topic_id",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SNAPSHOTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("provider.base_url", "https://api.brightdata.com/datasets/v3")
	v.SetDefault("provider.timeout_seconds", 30)
	v.SetDefault("store.provider", "postgrest")
	v.SetDefault("store.postgrest.table", "bookmarks")
	v.SetDefault("store.postgres.table", "bookmarks")
	v.SetDefault("poll.interval_seconds", 60)
	v.SetDefault("poll.concurrency", 1)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("events.provider", "noop")
	v.SetDefault("logging.development", false)
}

// Validate enforces required credentials and reasonable limits. Missing
// credentials are the only unrecoverable startup errors.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Provider.Token == "" {
		return fmt.Errorf("provider.token is required")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be > 0")
	}
	if c.Poll.Concurrency <= 0 {
		return fmt.Errorf("poll.concurrency must be > 0")
	}

	switch c.Store.Provider {
	case "postgrest":
		if c.Store.PostgREST.ProjectRef == "" {
			return fmt.Errorf("store.postgrest.project_ref is required")
		}
		if c.Store.PostgREST.ServiceRoleKey == "" {
			return fmt.Errorf("store.postgrest.service_role_key is required")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}

	switch c.Archive.Provider {
	case "noop":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required when archive provider is gcs")
		}
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required when archive provider is local")
		}
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}

	switch c.Events.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id are required when events provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown events provider: %s", c.Events.Provider)
	}

	return nil
}

// PollInterval returns the configured delay between cycles.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// ProviderTimeout returns the per-request deadline for provider calls.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}
