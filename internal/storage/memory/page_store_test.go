package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/JakeFAU/wiki-crawler/internal/crawler"
)

func TestPageStoreWritePageCopiesData(t *testing.T) {
	t.Parallel()

	store := NewPageStore()
	payload := []byte("content")
	uri, err := store.WritePage(context.Background(), crawler.PageRecord{Title: "Thrall", Body: payload, Sequence: 3})
	if err != nil {
		t.Fatalf("WritePage() error = %v", err)
	}
	if uri != "memory://Thrall_3.html" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	stored, ok := store.Get("Thrall_3.html")
	if !ok || string(stored) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
}

func TestPageStoreRejectsOverwrite(t *testing.T) {
	t.Parallel()

	store := NewPageStore()
	page := crawler.PageRecord{Title: "A", Sequence: 0}
	if _, err := store.WritePage(context.Background(), page); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := store.WritePage(context.Background(), page); err == nil {
		t.Fatal("expected second write with the same name to fail")
	}
	if got := store.Names(); len(got) != 1 || got[0] != "A_0.html" {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestPageStoreFailTitle(t *testing.T) {
	t.Parallel()

	store := NewPageStore()
	boom := errors.New("disk full")
	store.FailTitle("Bad", boom)
	if _, err := store.WritePage(context.Background(), crawler.PageRecord{Title: "Bad"}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(store.Names()) != 0 {
		t.Fatal("failed write must not be stored")
	}
}
