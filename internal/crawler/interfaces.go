package crawler

import (
	"context"
	"iter"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor derives the canonical title and in-scope links from a document.
type Extractor interface {
	Parse(body []byte) (*goquery.Document, error)
	Title(doc *goquery.Document) (string, error)
	Links(doc *goquery.Document) iter.Seq[string]
	DocumentTitle(doc *goquery.Document) string
}

// PageWriter persists a page body and returns where it was written.
type PageWriter interface {
	WritePage(ctx context.Context, page PageRecord) (string, error)
}

// RetryPolicy decides whether and when a failed fetch is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Recorder receives one outcome per dispatched path (e.g. a manifest).
type Recorder interface {
	RecordOutcome(ctx context.Context, record OutcomeRecord) error
}

// Hasher computes digests for integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Observer receives crawl measurements. The metrics package provides one.
type Observer interface {
	ObserveOutcome(outcome Outcome, bytes int)
	ObserveFetchAttempt(err error)
	SetFrontierSize(n int)
	SetActiveWorkers(n int)
}
