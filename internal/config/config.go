// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlConfig governs the crawl itself.
type CrawlConfig struct {
	StartingPath       string   `mapstructure:"starting_path"`
	RootURL            string   `mapstructure:"root_url"`
	MaxPages           int      `mapstructure:"max_pages"`
	OutputDirectory    string   `mapstructure:"output_directory"`
	ExcludedNamespaces []string `mapstructure:"excluded_namespaces"`
	ContentPrefix      string   `mapstructure:"content_prefix"`
	TitleSelectors     []string `mapstructure:"title_selectors"`
	Workers            int      `mapstructure:"workers"`
	// DryRun keeps pages in memory instead of writing them.
	DryRun bool `mapstructure:"dry_run"`
}

// HTTPConfig configures the fetcher and its retry behavior.
type HTTPConfig struct {
	UserAgent        string `mapstructure:"user_agent"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
}

// ManifestConfig points at the optional SQLite outcome manifest.
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig controls the optional status server.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"start":        "crawl.starting_path",
	"root":         "crawl.root_url",
	"max-pages":    "crawl.max_pages",
	"out":          "crawl.output_directory",
	"workers":      "crawl.workers",
	"exclude":      "crawl.excluded_namespaces",
	"dry-run":      "crawl.dry_run",
	"user-agent":   "http.user_agent",
	"manifest":     "manifest.path",
	"metrics-addr": "metrics.listen_addr",
	"log-level":    "logging.level",
}

// Load builds a Config from defaults, an optional file, the environment and
// any flags in flags that map to config keys. Later sources win.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Crawl.RootURL = strings.TrimRight(strings.TrimSpace(cfg.Crawl.RootURL), "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.starting_path", "/wiki/World_of_Warcraft:_Dragonflight")
	v.SetDefault("crawl.root_url", "https://wowpedia.fandom.com")
	v.SetDefault("crawl.max_pages", 1000)
	v.SetDefault("crawl.output_directory", "data")
	v.SetDefault("crawl.excluded_namespaces", []string{"Forum:", "User:", "File:", "Special:"})
	v.SetDefault("crawl.content_prefix", "/wiki/")
	v.SetDefault("crawl.title_selectors", []string{"span.mw-page-title-main", "h1#firstHeading"})
	v.SetDefault("crawl.workers", 4)
	v.SetDefault("crawl.dry_run", false)
	v.SetDefault("http.user_agent", "wiki-crawler/0.1")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("manifest.path", "")
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Crawl.RootURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("crawl.root_url must be an absolute http(s) URL, got %q", c.Crawl.RootURL)
	}
	if !strings.HasPrefix(c.Crawl.StartingPath, "/") {
		return fmt.Errorf("crawl.starting_path must begin with /, got %q", c.Crawl.StartingPath)
	}
	if c.Crawl.MaxPages < 0 {
		return errors.New("crawl.max_pages must be >= 0")
	}
	if c.Crawl.Workers <= 0 {
		return errors.New("crawl.workers must be > 0")
	}
	if !c.Crawl.DryRun && strings.TrimSpace(c.Crawl.OutputDirectory) == "" {
		return errors.New("crawl.output_directory must be set")
	}
	if !strings.HasPrefix(c.Crawl.ContentPrefix, "/") {
		return fmt.Errorf("crawl.content_prefix must begin with /, got %q", c.Crawl.ContentPrefix)
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return errors.New("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffInitialMs <= 0 || c.HTTP.BackoffMaxMs <= 0 {
		return errors.New("http backoff durations must be > 0")
	}
	if c.HTTP.BackoffMaxMs < c.HTTP.BackoffInitialMs {
		return errors.New("http.backoff_max_ms must be >= http.backoff_initial_ms")
	}
	return nil
}

// Timeout returns the per-fetch timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c HTTPConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax caps the retry delay.
func (c HTTPConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}
