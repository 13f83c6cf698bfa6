package crawler

// Frontier is a FIFO queue of discovered, not-yet-visited relative paths.
// Enqueue is idempotent: a path that is visited or already queued is ignored.
// The queue is only ever touched through Enqueue and Dequeue, never iterated.
type Frontier struct {
	visited *VisitedRegistry
	entries []string
	head    int
	queued  map[string]struct{}
}

// NewFrontier returns an empty frontier gated by the given registry.
func NewFrontier(visited *VisitedRegistry) *Frontier {
	return &Frontier{
		visited: visited,
		queued:  make(map[string]struct{}),
	}
}

// Enqueue appends path to the tail. It reports whether the path was added.
func (f *Frontier) Enqueue(path string) bool {
	if path == "" {
		return false
	}
	if f.visited != nil && f.visited.Contains(path) {
		return false
	}
	if _, ok := f.queued[path]; ok {
		return false
	}
	f.queued[path] = struct{}{}
	f.entries = append(f.entries, path)
	return true
}

// Dequeue removes and returns the head, or ErrEmptyFrontier.
func (f *Frontier) Dequeue() (string, error) {
	if f.head >= len(f.entries) {
		return "", ErrEmptyFrontier
	}
	path := f.entries[f.head]
	f.entries[f.head] = ""
	f.head++
	delete(f.queued, path)
	if f.head == len(f.entries) {
		f.entries = f.entries[:0]
		f.head = 0
	}
	return path, nil
}

// Len returns the number of queued paths.
func (f *Frontier) Len() int {
	return len(f.entries) - f.head
}
