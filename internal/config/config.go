// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
// The three stage directories stay top-level flat keys so a minimal
// config.yaml needs nothing else.
type Config struct {
	ArchiveDir    string `mapstructure:"archive_dir"`
	PublishDir    string `mapstructure:"publish_dir"`
	NewContentDir string `mapstructure:"new_content_dir"`

	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
	Serve   ServeConfig   `mapstructure:"serve"`
}

// FetchConfig governs the snapshot crawl.
type FetchConfig struct {
	Domain            string        `mapstructure:"domain"`
	SnapshotTimestamp string        `mapstructure:"snapshot_timestamp"`
	SnapshotURL       string        `mapstructure:"snapshot_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxPages          int           `mapstructure:"max_pages"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ServeConfig controls the preview HTTP server.
type ServeConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment. An empty path skips the
// config file and uses defaults plus ARCHIVIST_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARCHIVIST")
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
	v.SetDefault("archive_dir", "archive")
	v.SetDefault("publish_dir", "docs")
	v.SetDefault("new_content_dir", "newContent")
	v.SetDefault("fetch.domain", "ccspace.org")
	v.SetDefault("fetch.snapshot_timestamp", "20170509211847")
	v.SetDefault("fetch.snapshot_url", "http://www.ccspace.org/")
	v.SetDefault("fetch.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	v.SetDefault("fetch.request_timeout", "30s")
	v.SetDefault("fetch.max_pages", 500)
	v.SetDefault("logging.development", true)
	v.SetDefault("serve.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.ArchiveDir == "" {
		return fmt.Errorf("archive_dir must be set")
	}
	if c.PublishDir == "" {
		return fmt.Errorf("publish_dir must be set")
	}
	if c.Fetch.Domain == "" {
		return fmt.Errorf("fetch.domain must be set")
	}
	if err := validateTimestamp(c.Fetch.SnapshotTimestamp); err != nil {
		return err
	}
	if c.Fetch.SnapshotURL == "" {
		return fmt.Errorf("fetch.snapshot_url must be set")
	}
	if c.Fetch.RequestTimeout <= 0 {
		return fmt.Errorf("fetch.request_timeout must be > 0")
	}
	if c.Fetch.MaxPages <= 0 {
		return fmt.Errorf("fetch.max_pages must be > 0")
	}
	if c.Serve.Port <= 0 {
		return fmt.Errorf("serve.port must be > 0")
	}
	return nil
}

func validateTimestamp(ts string) error {
	if len(ts) < 8 {
		return fmt.Errorf("fetch.snapshot_timestamp must be at least 8 digits")
	}
	for _, r := range ts {
		if r < '0' || r > '9' {
			return fmt.Errorf("fetch.snapshot_timestamp must be numeric")
		}
	}
	return nil
}
