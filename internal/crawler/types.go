package crawler

import (
	"net/http"
	"time"
)

// Outcome is the terminal state of a single frontier entry.
type Outcome string

// Outcome values recorded for every dispatched path.
const (
	OutcomePersisted     Outcome = "persisted"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeTitleMissing  Outcome = "title_missing"
	OutcomePersistFailed Outcome = "persist_failed"
	OutcomeDiscarded     Outcome = "discarded"
)

// Terminal describes why a crawl stopped.
type Terminal string

// Crawl terminals. FrontierExhausted and BudgetReached are normal completions.
const (
	TerminalNone              Terminal = ""
	TerminalFrontierExhausted Terminal = "frontier_exhausted"
	TerminalBudgetReached     Terminal = "budget_reached"
	TerminalCanceled          Terminal = "canceled"
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// PageRecord is a page ready to be written. It is not retained after the write.
type PageRecord struct {
	Path     string
	URL      string
	Title    string
	Body     []byte
	Sequence int
}

// OutcomeRecord is reported to the Recorder once per dispatched path.
type OutcomeRecord struct {
	CrawlID     string
	Path        string
	Outcome     Outcome
	Title       string
	Location    string
	ContentHash string
	StatusCode  int
	Attempts    int
	Error       string
	RecordedAt  time.Time
}

// Result summarizes a finished crawl.
type Result struct {
	CrawlID   string
	Terminal  Terminal
	Persisted int
	// Visited lists every dequeued path in dispatch order.
	Visited  []string
	Outcomes map[Outcome]int
}

// Snapshot is a point-in-time view of a running crawl.
type Snapshot struct {
	CrawlID   string          `json:"crawl_id"`
	MaxPages  int             `json:"max_pages"`
	Persisted int             `json:"persisted"`
	Visited   int             `json:"visited"`
	Queued    int             `json:"queued"`
	InFlight  int             `json:"in_flight"`
	Outcomes  map[Outcome]int `json:"outcomes"`
	Terminal  Terminal        `json:"terminal,omitempty"`
}
