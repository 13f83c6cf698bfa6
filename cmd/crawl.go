package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/wiki-crawler/internal/app"
	"github.com/JakeFAU/wiki-crawler/internal/config"
	"github.com/JakeFAU/wiki-crawler/internal/crawler"
	"github.com/JakeFAU/wiki-crawler/internal/logging"
)

// newCrawlCmd creates the 'crawl' subcommand. Flags override the config file
// and CRAWLER_* environment variables.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls the wiki and saves distinct articles",
		Long: `Starts at the configured page, follows in-scope article links breadth-first
and writes each newly titled page to {out}/{title}_{n}.html until max-pages
files exist or the frontier is empty.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCommand,
	}

	flags := cmd.Flags()
	flags.String("start", "", "relative path of the first page, e.g. /wiki/Thrall")
	flags.String("root", "", "site root URL, e.g. https://wowpedia.fandom.com")
	flags.Int("max-pages", 0, "number of distinct pages to save")
	flags.String("out", "", "output directory")
	flags.Int("workers", 0, "concurrent fetches")
	flags.StringSlice("exclude", nil, "namespace prefixes to skip, e.g. User:,File:")
	flags.Bool("dry-run", false, "crawl without writing files")
	flags.String("user-agent", "", "HTTP User-Agent header")
	flags.String("manifest", "", "SQLite file recording every path outcome")
	flags.String("metrics-addr", "", "listen address for /metrics and /status")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfigAndLogger(cmd)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize crawl: %w", err)
	}
	defer a.Close()

	res, err := a.Run(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "crawl %s finished: %s, %d pages saved, %d paths visited\n",
		res.CrawlID, res.Terminal, res.Persisted, len(res.Visited))
	for _, outcome := range []crawler.Outcome{
		crawler.OutcomeDuplicate,
		crawler.OutcomeFetchFailed,
		crawler.OutcomeTitleMissing,
		crawler.OutcomePersistFailed,
		crawler.OutcomeDiscarded,
	} {
		if n := res.Outcomes[outcome]; n > 0 {
			fmt.Fprintf(out, "  %s: %d\n", outcome, n)
		}
	}
	if res.Terminal == crawler.TerminalCanceled {
		logger.Warn("crawl interrupted", zap.Int("persisted", res.Persisted))
	}
	return nil
}

func loadConfigAndLogger(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("read config flag: %w", err)
	}
	cfg, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
