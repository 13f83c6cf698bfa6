// Package crawler implements the bounded breadth-first crawl controller for a
// single wiki-style site: the frontier, the visited registry, title
// deduplication, the retry policy, and the Engine that ties them to a fetcher,
// an extractor and a page writer.
package crawler
