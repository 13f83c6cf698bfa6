package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.StartingPath != "/wiki/World_of_Warcraft:_Dragonflight" {
		t.Fatalf("unexpected starting path %q", cfg.Crawl.StartingPath)
	}
	if cfg.Crawl.RootURL != "https://wowpedia.fandom.com" || cfg.Crawl.MaxPages != 1000 {
		t.Fatalf("unexpected crawl defaults: %+v", cfg.Crawl)
	}
	if got := strings.Join(cfg.Crawl.ExcludedNamespaces, ","); got != "Forum:,User:,File:,Special:" {
		t.Fatalf("unexpected excluded namespaces %q", got)
	}
	if cfg.Crawl.OutputDirectory != "data" || cfg.Crawl.Workers != 4 {
		t.Fatalf("unexpected crawl defaults: %+v", cfg.Crawl)
	}
	if cfg.HTTP.Timeout() != 15*time.Second || cfg.HTTP.MaxRetries != 2 {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.HTTP.BackoffInitial() != 250*time.Millisecond || cfg.HTTP.BackoffMax() != 2*time.Second {
		t.Fatalf("unexpected backoff defaults: %+v", cfg.HTTP)
	}
	if cfg.Manifest.Path != "" || cfg.Metrics.ListenAddr != "" {
		t.Fatalf("expected optional features disabled by default")
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawl:
  starting_path: /wiki/Thrall
  root_url: https://wiki.example.com/
  max_pages: 25
  output_directory: pages
  excluded_namespaces: ["Talk:"]
  workers: 8
http:
  user_agent: test-agent
  timeout_seconds: 45
  max_retries: 4
  backoff_initial_ms: 100
  backoff_max_ms: 500
manifest:
  path: out/manifest.db
metrics:
  listen_addr: 127.0.0.1:9100
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Crawl.StartingPath != "/wiki/Thrall" || cfg.Crawl.MaxPages != 25 || cfg.Crawl.Workers != 8 {
		t.Fatalf("expected crawl overrides to apply: %+v", cfg.Crawl)
	}
	if cfg.Crawl.RootURL != "https://wiki.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Crawl.RootURL)
	}
	if len(cfg.Crawl.ExcludedNamespaces) != 1 || cfg.Crawl.ExcludedNamespaces[0] != "Talk:" {
		t.Fatalf("expected excluded namespaces override, got %v", cfg.Crawl.ExcludedNamespaces)
	}
	if cfg.HTTP.UserAgent != "test-agent" || cfg.HTTP.Timeout() != 45*time.Second {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Manifest.Path != "out/manifest.db" || cfg.Metrics.ListenAddr != "127.0.0.1:9100" {
		t.Fatalf("expected optional features enabled")
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides: %+v", cfg.Logging)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CRAWLER_CRAWL_MAX_PAGES", "7")
	t.Setenv("CRAWLER_HTTP_USER_AGENT", "env-agent")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.MaxPages != 7 {
		t.Fatalf("expected env max pages 7, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.HTTP.UserAgent != "env-agent" {
		t.Fatalf("expected env user agent, got %q", cfg.HTTP.UserAgent)
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("crawl", pflag.ContinueOnError)
	flags.String("start", "", "")
	flags.Int("max-pages", 0, "")
	flags.Int("workers", 0, "")
	flags.StringSlice("exclude", nil, "")
	flags.Bool("dry-run", false, "")
	flags.String("unrelated", "", "")
	if err := flags.Parse([]string{
		"--start=/wiki/Jaina", "--max-pages=0", "--exclude=Talk:,Help:", "--dry-run", "--unrelated=x",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawl.StartingPath != "/wiki/Jaina" {
		t.Fatalf("expected flag start path, got %q", cfg.Crawl.StartingPath)
	}
	if cfg.Crawl.MaxPages != 0 {
		t.Fatalf("expected flag max pages 0, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.Workers != 4 {
		t.Fatalf("unchanged flag must not override default, got %d", cfg.Crawl.Workers)
	}
	if got := strings.Join(cfg.Crawl.ExcludedNamespaces, ","); got != "Talk:,Help:" {
		t.Fatalf("expected flag exclusions, got %q", got)
	}
	if !cfg.Crawl.DryRun {
		t.Fatal("expected dry run from flag")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative root", func(c *Config) { c.Crawl.RootURL = "wowpedia.fandom.com" }, "crawl.root_url"},
		{"ftp root", func(c *Config) { c.Crawl.RootURL = "ftp://example.com" }, "crawl.root_url"},
		{"start without slash", func(c *Config) { c.Crawl.StartingPath = "wiki/A" }, "crawl.starting_path"},
		{"negative max pages", func(c *Config) { c.Crawl.MaxPages = -1 }, "crawl.max_pages"},
		{"no workers", func(c *Config) { c.Crawl.Workers = 0 }, "crawl.workers"},
		{"no output dir", func(c *Config) { c.Crawl.OutputDirectory = " " }, "crawl.output_directory"},
		{"bad prefix", func(c *Config) { c.Crawl.ContentPrefix = "wiki/" }, "crawl.content_prefix"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -1 }, "http.max_retries"},
		{"zero backoff", func(c *Config) { c.HTTP.BackoffInitialMs = 0 }, "backoff"},
		{"inverted backoff", func(c *Config) { c.HTTP.BackoffMaxMs = 10 }, "http.backoff_max_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			cfg.Crawl.ExcludedNamespaces = append([]string(nil), base.Crawl.ExcludedNamespaces...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateAllowsDryRunWithoutOutput(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Crawl.DryRun = true
	cfg.Crawl.OutputDirectory = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected dry run config to validate, got %v", err)
	}
}
