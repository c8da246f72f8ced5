// Package config loads and validates indexrunner configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Sitemap  SitemapConfig  `mapstructure:"sitemap"`
	Indexing IndexingConfig `mapstructure:"indexing"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SitemapConfig governs sitemap acquisition.
type SitemapConfig struct {
	URL            string `mapstructure:"url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// IndexingConfig governs the submission pipeline and the provider quota.
type IndexingConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	DailyCap        int    `mapstructure:"daily_cap"`
	BatchLimit      int    `mapstructure:"batch_limit"`
	MaxRetries      int    `mapstructure:"max_retries"`
	RequestDelayMs  int    `mapstructure:"request_delay_ms"`
}

// LedgerConfig selects and parameterizes the ledger backing store.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // csv, postgres, gcs
	DataDir string `mapstructure:"data_dir"`
	DSN     string `mapstructure:"dsn"`
	Bucket  string `mapstructure:"bucket"`
}

// PubSubConfig holds metadata for the optional result publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXRUNNER")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sitemap.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("sitemap.timeout_seconds", 10)
	v.SetDefault("indexing.daily_cap", 200)
	v.SetDefault("indexing.batch_limit", 100)
	v.SetDefault("indexing.max_retries", 3)
	v.SetDefault("indexing.request_delay_ms", 1000)
	v.SetDefault("ledger.backend", "csv")
	v.SetDefault("ledger.data_dir", "data")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Sitemap.URL == "" {
		return fmt.Errorf("sitemap.url is required")
	}
	if _, err := Domain(c.Sitemap.URL); err != nil {
		return err
	}
	if c.Sitemap.TimeoutSeconds <= 0 {
		return fmt.Errorf("sitemap.timeout_seconds must be > 0")
	}
	if c.Indexing.DailyCap <= 0 {
		return fmt.Errorf("indexing.daily_cap must be > 0")
	}
	if c.Indexing.BatchLimit <= 0 || c.Indexing.BatchLimit > 100 {
		return fmt.Errorf("indexing.batch_limit must be in 1..100")
	}
	if c.Indexing.MaxRetries <= 0 {
		return fmt.Errorf("indexing.max_retries must be > 0")
	}
	if c.Indexing.RequestDelayMs < 0 {
		return fmt.Errorf("indexing.request_delay_ms must be >= 0")
	}
	switch c.Ledger.Backend {
	case "csv":
		if c.Ledger.DataDir == "" {
			return fmt.Errorf("ledger.data_dir is required for the csv backend")
		}
	case "postgres":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres backend")
		}
	case "gcs":
		if c.Ledger.Bucket == "" {
			return fmt.Errorf("ledger.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("ledger.backend must be one of csv, postgres, gcs")
	}
	return nil
}

// RequestDelay converts the configured inter-request delay into a Duration.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Indexing.RequestDelayMs) * time.Millisecond
}

// SitemapTimeout converts the configured fetch timeout into a Duration.
func (c Config) SitemapTimeout() time.Duration {
	return time.Duration(c.Sitemap.TimeoutSeconds) * time.Second
}

// Domain extracts the host from a sitemap URL. It names the per-domain
// ledger resource (CSV file, table scope or bucket object).
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse sitemap url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("sitemap url %q has no host", rawURL)
	}
	return u.Hostname(), nil
}
