package crawl_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/webintel/crawl"
	"github.com/fwojciec/webintel/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeWait returns how long one Wait for host blocks.
func timeWait(t *testing.T, l *crawl.DomainLimiter, host string) time.Duration {
	t.Helper()
	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), host))
	return time.Since(start)
}

func TestDomainLimiter_PacesEachHost(t *testing.T) {
	t.Parallel()

	l := crawl.NewDomainLimiter(10)

	assert.Less(t, timeWait(t, l, "example.com"), 50*time.Millisecond)
	assert.GreaterOrEqual(t, timeWait(t, l, "example.com"), 80*time.Millisecond)
	// Another host has its own bucket.
	assert.Less(t, timeWait(t, l, "example.org"), 50*time.Millisecond)
}

func TestDomainLimiter_Burst(t *testing.T) {
	t.Parallel()

	l := crawl.NewDomainLimiter(1, 3)

	for range 3 {
		assert.Less(t, timeWait(t, l, "example.com"), 50*time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "example.com"))
}

func TestDomainLimiter_ContextCancelled(t *testing.T) {
	t.Parallel()

	l := crawl.NewDomainLimiter(1)
	timeWait(t, l, "example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "example.com"))
}

func TestDomainLimiter_Concurrent(t *testing.T) {
	t.Parallel()

	l := crawl.NewDomainLimiter(100)
	var (
		wg   sync.WaitGroup
		done atomic.Int32
	)
	for i := range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Wait(context.Background(), []string{"a.example", "b.example"}[i%2]) == nil {
				done.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(6), done.Load())
}

func TestDomainLimiter_Disabled(t *testing.T) {
	t.Parallel()

	limiter := crawl.NewDomainLimiter(0)

	start := time.Now()
	for range 20 {
		require.NoError(t, limiter.Wait(context.Background(), "example.com"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitURL(t *testing.T) {
	t.Parallel()

	t.Run("nil limiter only checks context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, crawl.WaitURL(ctx, nil, "https://example.com/"), context.Canceled)
	})

	t.Run("waits on the URL host", func(t *testing.T) {
		t.Parallel()

		var got string
		limiter := &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				got = domain
				return nil
			},
		}

		require.NoError(t, crawl.WaitURL(context.Background(), limiter, "https://docs.example.com:8443/a"))
		assert.Equal(t, "docs.example.com:8443", got)
	})
}
