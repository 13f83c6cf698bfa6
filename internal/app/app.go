// Package app wires the crawler's long-lived services from configuration and
// runs one crawl with them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wiki-crawler/internal/api"
	"github.com/JakeFAU/wiki-crawler/internal/clock"
	"github.com/JakeFAU/wiki-crawler/internal/config"
	"github.com/JakeFAU/wiki-crawler/internal/crawler"
	"github.com/JakeFAU/wiki-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/wiki-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/wiki-crawler/internal/hash/sha256"
	"github.com/JakeFAU/wiki-crawler/internal/id/uuid"
	"github.com/JakeFAU/wiki-crawler/internal/manifest"
	"github.com/JakeFAU/wiki-crawler/internal/metrics"
	"github.com/JakeFAU/wiki-crawler/internal/storage/local"
	"github.com/JakeFAU/wiki-crawler/internal/storage/memory"
)

const shutdownTimeout = 5 * time.Second

// App holds the services for one crawl.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	engine   *crawler.Engine
	manifest *manifest.Store
	server   *http.Server
	listener net.Listener
	served   bool
}

// New builds every service named by cfg. The caller must Close the App.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}

	writer, err := a.buildWriter()
	if err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout(),
	})
	extractor := extract.New(extract.Config{
		TitleSelectors:     cfg.Crawl.TitleSelectors,
		ContentPrefix:      cfg.Crawl.ContentPrefix,
		ExcludedNamespaces: cfg.Crawl.ExcludedNamespaces,
	})
	retry := crawler.NewExponentialRetryPolicy(cfg.HTTP.MaxRetries, cfg.HTTP.BackoffInitial(), cfg.HTTP.BackoffMax())

	opts := []crawler.Option{
		crawler.WithIDGenerator(uuid.New()),
		crawler.WithClock(clock.System{}),
		crawler.WithObserver(metrics.NewObserver(cfg.Crawl.RootURL)),
	}
	if cfg.Manifest.Path != "" {
		store, err := manifest.Open(ctx, cfg.Manifest.Path)
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		a.manifest = store
		opts = append(opts, crawler.WithRecorder(store), crawler.WithHasher(sha256.New()))
		logger.Info("recording outcomes", zap.String("manifest", cfg.Manifest.Path))
	}

	engine, err := crawler.NewEngine(
		crawler.Config{
			RootURL:   cfg.Crawl.RootURL,
			StartPath: cfg.Crawl.StartingPath,
			MaxPages:  cfg.Crawl.MaxPages,
			Workers:   cfg.Crawl.Workers,
		},
		fetcher,
		extractor,
		writer,
		retry,
		logger,
		opts...,
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	a.engine = engine

	if cfg.Metrics.ListenAddr != "" {
		if err := a.listen(cfg.Metrics.ListenAddr); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *App) buildWriter() (crawler.PageWriter, error) {
	if a.cfg.Crawl.DryRun {
		a.logger.Info("dry run: pages are kept in memory")
		return memory.NewPageStore(), nil
	}
	store, err := local.New(local.Config{BaseDir: a.cfg.Crawl.OutputDirectory})
	if err != nil {
		return nil, fmt.Errorf("init page store: %w", err)
	}
	return store, nil
}

func (a *App) listen(addr string) error {
	var repo api.OutcomeRepository
	if a.manifest != nil {
		repo = a.manifest
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	a.listener = ln
	a.server = &http.Server{
		Handler:           api.NewServer(a.engine, repo, a.logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// CrawlID returns the identifier of the crawl this App runs.
func (a *App) CrawlID() string {
	return a.engine.CrawlID()
}

// StatusAddr returns the status server address, or "" when disabled.
func (a *App) StatusAddr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Run serves the status endpoints, if enabled, for the duration of the crawl.
func (a *App) Run(ctx context.Context) (crawler.Result, error) {
	if a.server != nil {
		a.served = true
		go func() {
			a.logger.Info("status server started", zap.String("addr", a.StatusAddr()))
			if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("status server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("status server shutdown error", zap.Error(err))
			}
		}()
	}

	res, err := a.engine.Run(ctx)
	if err != nil {
		return res, fmt.Errorf("run crawl: %w", err)
	}
	return res, nil
}

// Close releases the manifest and listener and flushes the logger.
func (a *App) Close() {
	if a.manifest != nil {
		if err := a.manifest.Close(); err != nil {
			a.logger.Warn("error closing manifest", zap.Error(err))
		}
	}
	if a.listener != nil && !a.served {
		_ = a.listener.Close()
	}
	_ = a.logger.Sync()
}
