// Package bloom provides the probabilistic front of the crawler's visited
// set, backed by bits-and-blooms/bloom.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter answers "definitely never seen" for URL strings. It is not safe for
// concurrent use; crawl.VisitedSet guards it with its own lock.
type Filter struct {
	bits *bloom.BloomFilter
}

// NewFilter sizes a filter for n URLs at the given false positive rate.
// Crawls larger than n still work, with a rising false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{bits: bloom.NewWithEstimates(n, fpRate)}
}

// Test reports whether url may have been added. False means it never was.
func (f *Filter) Test(url string) bool {
	return f.bits.TestString(url)
}

// TestAndAdd adds url and reports whether it may have been present already.
func (f *Filter) TestAndAdd(url string) bool {
	return f.bits.TestAndAddString(url)
}

// ApproximateLen estimates how many distinct URLs have been added.
func (f *Filter) ApproximateLen() uint {
	return uint(f.bits.ApproximatedSize())
}
