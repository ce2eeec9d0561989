package mock

import "github.com/fwojciec/webintel"

var _ webintel.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of webintel.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*webintel.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*webintel.ExtractResult, error) {
	return e.ExtractFn(html)
}
