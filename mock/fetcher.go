package mock

import (
	"context"

	"github.com/fwojciec/webintel"
)

var _ webintel.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of webintel.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*webintel.FetchResult, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*webintel.FetchResult, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}
