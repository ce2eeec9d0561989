//go:build integration

package rod_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(t *testing.T, opts ...rod.Option) *rod.Fetcher {
	t.Helper()
	fetcher, err := rod.NewFetcher(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fetcher.Close() })
	return fetcher
}

func TestFetcher_Fetch_RunsScripts(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<!DOCTYPE html>
<html><head><title>Catalog</title></head>
<body>
<ul id="products"><li>placeholder</li></ul>
<script>
document.getElementById('products').innerHTML =
  '<li><a href="/widgets/blue">Blue widget</a></li><li><a href="/widgets/red">Red widget</a></li>';
</script>
</body></html>`)

	res, err := newFetcher(t).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, res.HTML, `<a href="/widgets/blue">Blue widget</a>`)
	assert.NotContains(t, res.HTML, "<li>placeholder</li>")
}

func TestFetcher_Fetch_SerializesShadowRoots(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<!DOCTYPE html>
<html><head><title>Components</title></head>
<body>
<site-nav></site-nav>
<script>
customElements.define('site-nav', class extends HTMLElement {
  constructor() {
    super();
    this.attachShadow({mode: 'open'}).innerHTML =
      '<a href="/docs" data-nav="1">Docs</a><a href="/blog" data-nav="1">Blog</a>';
  }
});
</script>
</body></html>`)

	res, err := newFetcher(t).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	// The script literal holds two markers; serialized shadow content adds two more.
	assert.Greater(t, strings.Count(res.HTML, `data-nav="1"`), 2)
}

func TestFetcher_Fetch_ReportsRedirectTarget(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.Handle("/docs", http.RedirectHandler("/docs/", http.StatusMovedPermanently))
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="intro">Intro</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	res, err := newFetcher(t).Fetch(context.Background(), srv.URL+"/docs")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/docs/", res.URL)
	assert.Contains(t, res.HTML, `href="intro"`)
}

func TestFetcher_Fetch_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, `<html><body>late</body></html>`)
	}))
	t.Cleanup(srv.Close)

	_, err := newFetcher(t, rod.WithFetchTimeout(100*time.Millisecond)).Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_Fetch_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(t).Fetch(ctx, "http://127.0.0.1:1/")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_RecyclesChrome(t *testing.T) {
	t.Parallel()

	srv := serveHTML(t, `<html><body><p>page</p></body></html>`)
	fetcher := newFetcher(t, rod.WithRecycleAfter(2))
	firstPID := fetcher.LauncherPID()

	for range 2 {
		_, err := fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, fetcher.Recycles())

	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.Recycles())
	assert.NotEqual(t, firstPID, fetcher.LauncherPID())
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, fetcher.Close())
	require.NoError(t, fetcher.Close())
	assert.Zero(t, fetcher.LauncherPID())

	_, err = fetcher.Fetch(context.Background(), "http://example.com")
	require.Error(t, err)
	assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))
	assert.Contains(t, webintel.ErrorMessage(err), "closed")
}
