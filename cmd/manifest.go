package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/wiki-crawler/internal/manifest"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspects a crawl manifest",
	}
	cmd.AddCommand(newManifestSummaryCmd())
	return cmd
}

func newManifestSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Prints outcome counts for a crawl (default: the latest)",
		Args:  cobra.NoArgs,
		RunE:  runManifestSummary,
	}
	cmd.Flags().String("manifest", "", "SQLite manifest file")
	cmd.Flags().String("crawl-id", "", "crawl to summarize")
	return cmd
}

func runManifestSummary(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfigAndLogger(cmd)
	if err != nil {
		return err
	}
	if cfg.Manifest.Path == "" {
		return errors.New("no manifest configured: pass --manifest or set manifest.path")
	}

	store, err := manifest.Open(cmd.Context(), cfg.Manifest.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	crawlID, err := cmd.Flags().GetString("crawl-id")
	if err != nil {
		return fmt.Errorf("read crawl-id flag: %w", err)
	}
	if crawlID == "" {
		if crawlID, err = store.LatestCrawlID(cmd.Context()); err != nil {
			return err
		}
		if crawlID == "" {
			return errors.New("manifest is empty")
		}
	}

	counts, err := store.Summary(cmd.Context(), crawlID)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return fmt.Errorf("crawl %s not found", crawlID)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "crawl %s\n", crawlID)
	for _, outcome := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(out, "  %s: %d\n", outcome, counts[outcome])
	}
	return nil
}
