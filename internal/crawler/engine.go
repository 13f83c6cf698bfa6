package crawler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/wiki-crawler/internal/logging"
)

// Config holds the settings for one crawl.
type Config struct {
	RootURL   string
	StartPath string
	MaxPages  int
	Workers   int
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RootURL) == "" {
		return errors.New("root url must be set")
	}
	if !strings.HasPrefix(c.StartPath, "/") {
		return fmt.Errorf("start path %q must begin with /", c.StartPath)
	}
	if c.MaxPages < 0 {
		return errors.New("max pages must be >= 0")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	return nil
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder reports every path outcome to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithObserver sends crawl measurements to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithHasher sets the content hasher used for outcome records.
func WithHasher(h Hasher) Option {
	return func(e *Engine) {
		e.hasher = h
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithIDGenerator draws the crawl ID from g unless WithCrawlID is also given.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.idGen = g
	}
}

// WithCrawlID tags logs and records with id.
func WithCrawlID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.crawlID = id
		}
	}
}

// Engine is the crawl controller. Run drives a bounded breadth-first crawl:
// workers fetch and parse in parallel while a single coordinator goroutine owns
// the CrawlState and commits results one at a time.
type Engine struct {
	cfg       Config
	fetcher   Fetcher
	extractor Extractor
	writer    PageWriter
	retry     RetryPolicy
	recorder  Recorder
	hasher    Hasher
	clock     Clock
	observer  Observer
	logger    *zap.Logger
	idGen     IDGenerator
	crawlID   string

	active atomic.Int64

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewEngine wires a crawl controller.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	extractor Extractor,
	writer PageWriter,
	retry RetryPolicy,
	logger *zap.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid crawl config: %w", err)
	}
	if fetcher == nil || extractor == nil || writer == nil {
		return nil, errors.New("fetcher, extractor and writer are required")
	}
	cfg.RootURL = strings.TrimRight(cfg.RootURL, "/")
	if retry == nil {
		retry = NewExponentialRetryPolicy(0, 0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		writer:    writer,
		retry:     retry,
		clock:     systemClock{},
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.crawlID == "" {
		e.crawlID = "local"
		if e.idGen != nil {
			id, err := e.idGen.NewID()
			if err != nil {
				return nil, fmt.Errorf("generate crawl id: %w", err)
			}
			e.crawlID = id
		}
	}
	e.logger = logging.ForCrawl(logger, e.crawlID)
	e.snapshot = Snapshot{CrawlID: e.crawlID, MaxPages: cfg.MaxPages, Outcomes: map[Outcome]int{}}
	return e, nil
}

// CrawlID returns the identifier attached to this crawl.
func (e *Engine) CrawlID() string {
	return e.crawlID
}

// Snapshot returns the latest published crawl progress. Safe for concurrent use.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := e.snapshot
	snap.Outcomes = maps.Clone(e.snapshot.Outcomes)
	return snap
}

type fetchResult struct {
	path       string
	url        string
	outcome    Outcome
	statusCode int
	attempts   int
	title      string
	htmlTitle  string
	body       []byte
	links      []string
	err        error
}

// Run crawls until the frontier is exhausted or the budget is reached. It
// returns an error only when ctx is canceled.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	st := NewCrawlState(e.cfg.MaxPages)
	st.Frontier.Enqueue(e.cfg.StartPath)
	outcomes := make(map[Outcome]int)

	e.logger.Info("crawl started",
		zap.String("root_url", e.cfg.RootURL),
		zap.String("start_path", e.cfg.StartPath),
		zap.Int("max_pages", e.cfg.MaxPages),
		zap.Int("workers", e.cfg.Workers),
	)

	jobs := make(chan string)
	results := make(chan fetchResult)
	var group errgroup.Group
	for i := 0; i < e.cfg.Workers; i++ {
		group.Go(func() error {
			for path := range jobs {
				results <- e.process(ctx, path)
			}
			return nil
		})
	}

	inflight := 0
	terminal := TerminalNone
	for {
		for terminal == TerminalNone && inflight < e.cfg.Workers {
			if ctx.Err() != nil {
				terminal = TerminalCanceled
				break
			}
			if st.BudgetReached() {
				terminal = TerminalBudgetReached
				break
			}
			path, err := st.Frontier.Dequeue()
			if errors.Is(err, ErrEmptyFrontier) {
				break
			}
			if !st.Visited.Add(path) {
				e.logger.Debug("dropping already visited path", zap.String("path", path))
				continue
			}
			select {
			case jobs <- path:
				inflight++
			case <-ctx.Done():
				terminal = TerminalCanceled
				e.settle(ctx, outcomes, fetchResult{path: path, outcome: OutcomeDiscarded, err: ctx.Err()})
			}
		}

		if inflight == 0 {
			if terminal == TerminalNone {
				terminal = TerminalFrontierExhausted
				if st.BudgetReached() {
					terminal = TerminalBudgetReached
				}
			}
			e.publish(st, inflight, outcomes, terminal)
			break
		}
		e.publish(st, inflight, outcomes, terminal)

		res := <-results
		inflight--
		if terminal != TerminalNone || st.BudgetReached() || ctx.Err() != nil {
			e.logger.Debug("discarding result after crawl stopped", zap.String("path", res.path))
			res.outcome = OutcomeDiscarded
			e.settle(ctx, outcomes, res)
			continue
		}
		e.commit(ctx, st, outcomes, res)
	}
	close(jobs)
	_ = group.Wait()

	result := Result{
		CrawlID:   e.crawlID,
		Terminal:  terminal,
		Persisted: st.Persisted(),
		Visited:   st.Visited.Paths(),
		Outcomes:  outcomes,
	}
	e.logger.Info("crawl finished",
		zap.String("terminal", string(terminal)),
		zap.Int("persisted", result.Persisted),
		zap.Int("visited", len(result.Visited)),
		zap.Int("queued", st.Frontier.Len()),
	)
	if terminal == TerminalCanceled {
		return result, fmt.Errorf("crawl canceled: %w", ctx.Err())
	}
	return result, nil
}

// process runs on a worker: fetch with retry, then parse and extract.
func (e *Engine) process(ctx context.Context, path string) fetchResult {
	e.observer.SetActiveWorkers(int(e.active.Add(1)))
	defer func() {
		e.observer.SetActiveWorkers(int(e.active.Add(-1)))
	}()

	res := fetchResult{path: path, url: e.cfg.RootURL + path}
	resp, attempts, err := e.fetchWithRetry(ctx, res.url)
	res.attempts = attempts
	res.statusCode = resp.StatusCode
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			res.statusCode = fetchErr.StatusCode
		}
		res.outcome = OutcomeFetchFailed
		res.err = err
		return res
	}
	res.body = resp.Body

	doc, err := e.extractor.Parse(resp.Body)
	if err != nil {
		res.outcome = OutcomeTitleMissing
		res.err = err
		return res
	}
	res.htmlTitle = e.extractor.DocumentTitle(doc)
	title, err := e.extractor.Title(doc)
	if err != nil {
		res.outcome = OutcomeTitleMissing
		res.err = err
		return res
	}
	res.title = title
	res.links = slices.Collect(e.extractor.Links(doc))
	return res
}

func (e *Engine) fetchWithRetry(ctx context.Context, url string) (FetchResponse, int, error) {
	for attempt := 1; ; attempt++ {
		resp, err := e.fetcher.Fetch(ctx, FetchRequest{URL: url})
		e.observer.ObserveFetchAttempt(err)
		if err == nil {
			return resp, attempt, nil
		}
		if !e.retry.ShouldRetry(err, attempt) {
			return resp, attempt, err
		}
		wait := e.retry.Backoff(attempt - 1)
		e.logger.Debug("retrying fetch",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return resp, attempt, err
		case <-timer.C:
		}
	}
}

// commit applies one worker result to the crawl state. Only the coordinator
// calls it.
func (e *Engine) commit(ctx context.Context, st *CrawlState, outcomes map[Outcome]int, res fetchResult) {
	switch res.outcome {
	case OutcomeFetchFailed:
		e.logger.Warn("skipping path",
			zap.String("path", res.path),
			zap.String("reason", string(res.outcome)),
			zap.Int("status_code", res.statusCode),
			zap.Int("attempts", res.attempts),
			zap.Error(res.err),
		)
		e.settle(ctx, outcomes, res)
		return
	case OutcomeTitleMissing:
		e.logger.Warn("skipping path",
			zap.String("path", res.path),
			zap.String("reason", string(res.outcome)),
			zap.String("html_title", res.htmlTitle),
			zap.Error(res.err),
		)
		e.settle(ctx, outcomes, res)
		return
	}

	if st.Titles.IsDuplicate(res.title) {
		res.outcome = OutcomeDuplicate
		e.logger.Info("skipping duplicate title",
			zap.String("path", res.path),
			zap.String("reason", string(res.outcome)),
			zap.String("title", res.title),
		)
		e.settle(ctx, outcomes, res)
		e.enqueueLinks(st, res.links)
		return
	}

	page := PageRecord{
		Path:     res.path,
		URL:      res.url,
		Title:    res.title,
		Body:     res.body,
		Sequence: st.NextSequence(),
	}
	location, err := e.writer.WritePage(ctx, page)
	if err != nil {
		res.outcome = OutcomePersistFailed
		res.err = err
		e.logger.Error("skipping path",
			zap.String("path", res.path),
			zap.String("reason", string(res.outcome)),
			zap.String("title", res.title),
			zap.Error(err),
		)
		e.settle(ctx, outcomes, res)
		e.enqueueLinks(st, res.links)
		return
	}
	st.CommitPersisted(res.title)
	res.outcome = OutcomePersisted
	e.logger.Info("page downloaded",
		zap.Int("persisted", st.Persisted()),
		zap.Int("max_pages", st.MaxPages()),
		zap.String("url", res.url),
		zap.String("title", res.title),
		zap.String("location", location),
	)
	e.settleWithLocation(ctx, outcomes, res, location)
	e.enqueueLinks(st, res.links)
}

func (e *Engine) enqueueLinks(st *CrawlState, links []string) {
	added := 0
	for _, link := range links {
		if st.Frontier.Enqueue(link) {
			added++
		}
	}
	e.observer.SetFrontierSize(st.Frontier.Len())
	if added > 0 {
		e.logger.Debug("enqueued links", zap.Int("added", added), zap.Int("queued", st.Frontier.Len()))
	}
}

func (e *Engine) settle(ctx context.Context, outcomes map[Outcome]int, res fetchResult) {
	e.settleWithLocation(ctx, outcomes, res, "")
}

// settleWithLocation counts a terminal outcome and forwards it to the
// observer and recorder.
func (e *Engine) settleWithLocation(ctx context.Context, outcomes map[Outcome]int, res fetchResult, location string) {
	outcomes[res.outcome]++
	e.observer.ObserveOutcome(res.outcome, len(res.body))
	if e.recorder == nil {
		return
	}
	record := OutcomeRecord{
		CrawlID:    e.crawlID,
		Path:       res.path,
		Outcome:    res.outcome,
		Title:      res.title,
		Location:   location,
		StatusCode: res.statusCode,
		Attempts:   res.attempts,
		RecordedAt: e.clock.Now(),
	}
	if res.err != nil {
		record.Error = res.err.Error()
	}
	if res.outcome == OutcomePersisted && e.hasher != nil {
		if hash, err := e.hasher.Hash(res.body); err == nil {
			record.ContentHash = hash
		}
	}
	if err := e.recorder.RecordOutcome(context.WithoutCancel(ctx), record); err != nil {
		e.logger.Warn("record outcome failed", zap.String("path", res.path), zap.Error(err))
	}
}

func (e *Engine) publish(st *CrawlState, inflight int, outcomes map[Outcome]int, terminal Terminal) {
	snap := Snapshot{
		CrawlID:   e.crawlID,
		MaxPages:  st.MaxPages(),
		Persisted: st.Persisted(),
		Visited:   st.Visited.Len(),
		Queued:    st.Frontier.Len(),
		InFlight:  inflight,
		Outcomes:  maps.Clone(outcomes),
		Terminal:  terminal,
	}
	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
	e.observer.SetFrontierSize(snap.Queued)
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type nopObserver struct{}

func (nopObserver) ObserveOutcome(Outcome, int) {}

func (nopObserver) ObserveFetchAttempt(error) {}

func (nopObserver) SetFrontierSize(int) {}

func (nopObserver) SetActiveWorkers(int) {}
