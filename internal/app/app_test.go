package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/wiki-crawler/internal/app"
	"github.com/JakeFAU/wiki-crawler/internal/config"
	"github.com/JakeFAU/wiki-crawler/internal/crawler"
	"github.com/JakeFAU/wiki-crawler/internal/manifest"
)

func wikiServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/wiki/Start":      `<h1 id="firstHeading"><span class="mw-page-title-main">Start</span></h1><a href="/wiki/Second">2</a><a href="/wiki/User:Admin">u</a>`,
		"/wiki/Second":     `<h1 id="firstHeading">Second: Page</h1><a href="/wiki/Start">1</a><a href="/wiki/Third#History">3</a>`,
		"/wiki/Third":      `<span class="mw-page-title-main">Third</span>`,
		"/wiki/User:Admin": `<span class="mw-page-title-main">Admin</span>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, root string) config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Crawl.RootURL = root
	cfg.Crawl.StartingPath = "/wiki/Start"
	cfg.Crawl.MaxPages = 10
	cfg.Crawl.Workers = 2
	cfg.Crawl.OutputDirectory = filepath.Join(t.TempDir(), "data")
	cfg.HTTP.MaxRetries = 0
	return cfg
}

func TestAppCrawlsToDisk(t *testing.T) {
	srv := wikiServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Manifest.Path = filepath.Join(t.TempDir(), "manifest.db")

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crawler.TerminalFrontierExhausted, res.Terminal)
	assert.Equal(t, 3, res.Persisted)

	entries, err := os.ReadDir(cfg.Crawl.OutputDirectory)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"Start_0.html", "Second Page_1.html", "Third_2.html"}, names)

	store, err := manifest.Open(context.Background(), cfg.Manifest.Path)
	require.NoError(t, err)
	defer store.Close()
	counts, err := store.Summary(context.Background(), a.CrawlID())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[crawler.OutcomePersisted])
}

func TestAppDryRunServesStatus(t *testing.T) {
	srv := wikiServer(t)
	cfg := testConfig(t, srv.URL)
	cfg.Crawl.DryRun = true
	cfg.Crawl.MaxPages = 1
	cfg.Metrics.ListenAddr = "127.0.0.1:0"

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotEmpty(t, a.StatusAddr())

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crawler.TerminalBudgetReached, res.Terminal)

	_, err = os.Stat(cfg.Crawl.OutputDirectory)
	assert.True(t, os.IsNotExist(err), "dry run must not create the output directory")
}

func TestAppRejectsBadManifestPath(t *testing.T) {
	srv := wikiServer(t)
	cfg := testConfig(t, srv.URL)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Manifest.Path = filepath.Join(blocker, "manifest.db")

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "manifest"))
}
