package crawl

import (
	"strings"
	"sync"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/bloom"
)

// VisitedSet records every URL fetched or queued in one crawl run.
// A Bloom filter answers most "never seen" lookups; the exact set behind it
// is authoritative, so a false positive never drops a URL.
// VisitedSet is safe for concurrent use.
type VisitedSet struct {
	mu     sync.Mutex
	filter *bloom.Filter
	urls   map[string]struct{}
}

// NewVisitedSet creates a VisitedSet sized for n expected URLs.
func NewVisitedSet(n uint, fpRate float64) *VisitedSet {
	return &VisitedSet{
		filter: bloom.NewFilter(n, fpRate),
		urls:   make(map[string]struct{}),
	}
}

// Add marks the URL as visited.
// Returns false if it was already present. The check and the mark happen
// under one lock, so concurrent callers never both get true for a URL.
func (v *VisitedSet) Add(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.filter.TestAndAdd(url) {
		if _, ok := v.urls[url]; ok {
			return false
		}
	}
	v.urls[url] = struct{}{}
	return true
}

// Contains returns true if the URL has been added.
func (v *VisitedSet) Contains(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.filter.Test(url) {
		return false
	}
	_, ok := v.urls[url]
	return ok
}

// Len returns the number of distinct URLs added.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}

// Frontier is a FIFO queue of crawl targets with VisitedSet deduplication.
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu      sync.Mutex
	visited *VisitedSet
	queue   []webintel.CrawlTarget
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for the Bloom pre-filter.
func NewFrontier(n uint, fpRate float64) *Frontier {
	return &Frontier{
		visited: NewVisitedSet(n, fpRate),
	}
}

// Push queues a target.
// Returns false if the URL has already been fetched or queued.
// URL fragments are stripped before deduplication.
func (f *Frontier) Push(target webintel.CrawlTarget) bool {
	target.URL = stripFragment(target.URL)

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.visited.Add(target.URL) {
		return false
	}
	f.queue = append(f.queue, target)
	return true
}

// Visit marks a URL as fetched without queueing it, as for the final URL of
// a redirect. Returns false if it was already fetched or queued.
func (f *Frontier) Visit(rawURL string) bool {
	return f.visited.Add(stripFragment(rawURL))
}

// PopLevel removes every queued target sharing the head target's depth.
func (f *Frontier) PopLevel() []webintel.CrawlTarget {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil
	}
	depth := f.queue[0].Depth
	n := 0
	for n < len(f.queue) && f.queue[n].Depth == depth {
		n++
	}
	level := make([]webintel.CrawlTarget, n)
	copy(level, f.queue[:n])
	f.queue = f.queue[n:]
	return level
}

// Len returns the number of queued targets.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func stripFragment(url string) string {
	if idx := strings.Index(url, "#"); idx != -1 {
		return url[:idx]
	}
	return url
}
