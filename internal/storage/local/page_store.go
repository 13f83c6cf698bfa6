// Package local writes crawled pages to a directory on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/wiki-crawler/internal/crawler"
	"github.com/JakeFAU/wiki-crawler/internal/storage"
)

// Config captures the parameters for the local page store.
type Config struct {
	// BaseDir is the output directory. It is created if missing.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// PageStore implements crawler.PageWriter on the local filesystem.
type PageStore struct {
	baseDir string
}

// New creates a page store rooted at cfg.BaseDir after checking it is a
// writable directory.
func New(cfg Config) (*PageStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, errors.New("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, errors.New("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &PageStore{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

// WritePage writes page.Body to {base}/{sanitized_title}_{sequence}.html and
// returns the file path. A partially written file is removed on failure.
func (s *PageStore) WritePage(ctx context.Context, page crawler.PageRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("write page canceled: %w", err)
	}
	if page.Sequence < 0 {
		return "", fmt.Errorf("invalid sequence %d", page.Sequence)
	}

	fullPath := filepath.Join(s.baseDir, storage.FileName(page.Title, page.Sequence))
	if filepath.Dir(fullPath) != s.baseDir {
		return "", errors.New("path traversal detected")
	}

	if err := os.WriteFile(fullPath, page.Body, 0o600); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fullPath, nil
}
