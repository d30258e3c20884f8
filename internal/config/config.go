// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Harvest   HarvestConfig     `mapstructure:"harvest"`
	HTTP      HTTPConfig        `mapstructure:"http"`
	Content   ContentConfig     `mapstructure:"content"`
	Storage   StorageConfig     `mapstructure:"storage"`
	Publisher PublisherConfig   `mapstructure:"publisher"`
	DB        DBConfig          `mapstructure:"db"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Variants  []harvest.Variant `mapstructure:"variants"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HarvestConfig governs enumeration, chunking, and the pass loop.
type HarvestConfig struct {
	ChunkSize       int    `mapstructure:"chunk_size"`
	Concurrency     int    `mapstructure:"concurrency"`
	Total           int    `mapstructure:"total"`
	Start           int    `mapstructure:"start"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	DataDir         string `mapstructure:"data_dir"`
	Checkpoint      string `mapstructure:"checkpoint"`
	UserAgent       string `mapstructure:"user_agent"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	RunOnce         bool   `mapstructure:"run_once"`
}

// HTTPConfig configures outbound HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ContentConfig sets the local content-addressed store layout.
type ContentConfig struct {
	RawDir        string `mapstructure:"raw_dir"`
	DuplicatesDir string `mapstructure:"duplicates_dir"`
	ArchivedDir   string `mapstructure:"archived_dir"`
}

// StorageConfig selects and parameterizes the object-storage backend.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
}

// PublisherConfig configures run-summary notifications.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// DBConfig controls the optional pass-history database. An empty DSN disables it.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DesktopUserAgent is the fixed browser identity presented on every request.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.3"

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	if len(cfg.Variants) == 0 {
		cfg.Variants = harvest.DefaultVariants()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("harvest.chunk_size", 500)
	v.SetDefault("harvest.concurrency", 12)
	v.SetDefault("harvest.total", 8562)
	v.SetDefault("harvest.start", 1)
	v.SetDefault("harvest.interval_seconds", 3600)
	v.SetDefault("harvest.data_dir", "data")
	v.SetDefault("harvest.checkpoint", "data/checkpoint.csv")
	v.SetDefault("harvest.user_agent", DesktopUserAgent)
	v.SetDefault("harvest.max_attempts", 5)
	v.SetDefault("harvest.run_once", false)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("content.raw_dir", "data/0_raw")
	v.SetDefault("content.duplicates_dir", "data/0_duplicates")
	v.SetDefault("content.archived_dir", "data/1_uploaded")
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Harvest.ChunkSize <= 0 {
		return fmt.Errorf("harvest.chunk_size must be > 0")
	}
	if c.Harvest.Concurrency <= 0 {
		return fmt.Errorf("harvest.concurrency must be > 0")
	}
	if c.Harvest.Total < c.Harvest.Start {
		return fmt.Errorf("harvest.total must be >= harvest.start")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Storage.Provider == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
	}
	if c.Publisher.Provider == "pubsub" && (c.Publisher.ProjectID == "" || c.Publisher.Topic == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic must be set when publisher.provider is pubsub")
	}
	for i, variant := range c.Variants {
		if variant.Suffix == "" || variant.BaseURL == "" || variant.DashboardTemplate == "" {
			return fmt.Errorf("variants[%d] requires suffix, base_url, and dashboard_template", i)
		}
	}
	return nil
}

// HTTPTimeout converts the timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PassInterval is the sleep between catch-up passes.
func (c Config) PassInterval() time.Duration {
	return time.Duration(c.Harvest.IntervalSeconds) * time.Second
}
