package crawler

// VisitedRegistry is the set of paths that have been dequeued. Membership is
// permanent for the lifetime of a crawl.
type VisitedRegistry struct {
	paths map[string]struct{}
	order []string
}

// NewVisitedRegistry returns an empty registry.
func NewVisitedRegistry() *VisitedRegistry {
	return &VisitedRegistry{paths: make(map[string]struct{})}
}

// Contains reports whether path was visited.
func (v *VisitedRegistry) Contains(path string) bool {
	_, ok := v.paths[path]
	return ok
}

// Add marks path visited. It returns false if the path was already present.
func (v *VisitedRegistry) Add(path string) bool {
	if v.Contains(path) {
		return false
	}
	v.paths[path] = struct{}{}
	v.order = append(v.order, path)
	return true
}

// Len returns the number of visited paths.
func (v *VisitedRegistry) Len() int {
	return len(v.order)
}

// Paths returns a copy of the visited paths in the order they were added.
func (v *VisitedRegistry) Paths() []string {
	return append([]string(nil), v.order...)
}

// TitleSet holds canonical titles of persisted pages.
type TitleSet struct {
	titles map[string]struct{}
}

// NewTitleSet returns an empty set.
func NewTitleSet() *TitleSet {
	return &TitleSet{titles: make(map[string]struct{})}
}

// IsDuplicate reports whether title was already persisted.
func (t *TitleSet) IsDuplicate(title string) bool {
	_, ok := t.titles[title]
	return ok
}

// Record adds title to the set.
func (t *TitleSet) Record(title string) {
	t.titles[title] = struct{}{}
}

// Len returns the number of recorded titles.
func (t *TitleSet) Len() int {
	return len(t.titles)
}

// CrawlState is everything a crawl mutates. It is owned by one goroutine, the
// engine's coordinator, and is passed explicitly to each step.
type CrawlState struct {
	Frontier *Frontier
	Visited  *VisitedRegistry
	Titles   *TitleSet

	maxPages  int
	persisted int
}

// NewCrawlState creates empty state bounded by maxPages.
func NewCrawlState(maxPages int) *CrawlState {
	visited := NewVisitedRegistry()
	return &CrawlState{
		Frontier: NewFrontier(visited),
		Visited:  visited,
		Titles:   NewTitleSet(),
		maxPages: maxPages,
	}
}

// Persisted returns persisted_count.
func (s *CrawlState) Persisted() int {
	return s.persisted
}

// MaxPages returns the configured budget.
func (s *CrawlState) MaxPages() int {
	return s.maxPages
}

// BudgetReached reports whether no further page may be persisted.
func (s *CrawlState) BudgetReached() bool {
	return s.persisted >= s.maxPages
}

// NextSequence is the sequence number for the next write: the current
// persisted_count, before increment.
func (s *CrawlState) NextSequence() int {
	return s.persisted
}

// CommitPersisted records a successful write of title.
func (s *CrawlState) CommitPersisted(title string) {
	s.Titles.Record(title)
	s.persisted++
}
