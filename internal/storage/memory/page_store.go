// Package memory keeps crawled pages in memory for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JakeFAU/wiki-crawler/internal/crawler"
	"github.com/JakeFAU/wiki-crawler/internal/storage"
)

// PageStore stores pages keyed by file name and returns pseudo URIs.
type PageStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	order []string
	failOn map[string]error
}

// NewPageStore creates an empty in-memory page store.
func NewPageStore() *PageStore {
	return &PageStore{
		data:   make(map[string][]byte),
		failOn: make(map[string]error),
	}
}

// FailTitle makes every write of title return err.
func (s *PageStore) FailTitle(title string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[title] = err
}

// WritePage stores a copy of the body under the same name the local store
// would use.
func (s *PageStore) WritePage(_ context.Context, page crawler.PageRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failOn[page.Title]; ok {
		return "", err
	}
	name := storage.FileName(page.Title, page.Sequence)
	if _, exists := s.data[name]; exists {
		return "", fmt.Errorf("page %s already written", name)
	}
	s.data[name] = append([]byte(nil), page.Body...)
	s.order = append(s.order, name)
	return "memory://" + name, nil
}

// Names returns stored file names in write order.
func (s *PageStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Get returns the stored body for name.
func (s *PageStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.data[name]
	return body, ok
}
