package trafilatura_test

import (
	"testing"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Extractor implements webintel.Extractor at compile time.
var _ webintel.Extractor = (*trafilatura.Extractor)(nil)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
<title>Quarterly Results - Example News</title>
<meta property="og:title" content="Quarterly Results">
</head>
<body>
<nav class="site-nav"><ul><li><a href="/">Home</a></li><li><a href="/markets">Markets</a></li></ul></nav>
<article>
<h1>Quarterly Results</h1>
<p>The company reported revenue growth of twelve percent compared with the same quarter last year, driven by strong demand in its cloud division.</p>
<p>Operating margin improved as the firm reduced spending on legacy hardware and consolidated several regional offices into a single hub.</p>
<pre><code>revenue = 1.2e9</code></pre>
</article>
<footer><p>Copyright 2024 Example News. All rights reserved.</p></footer>
</body>
</html>`

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().Extract(articleHTML)

		require.NoError(t, err)
		assert.Contains(t, result.Title, "Quarterly Results")
	})

	t.Run("extracts article body and code", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().Extract(articleHTML)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "revenue growth of twelve percent")
		assert.Contains(t, result.ContentHTML, "revenue = 1.2e9")
	})

	t.Run("drops navigation and footer", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().Extract(articleHTML)

		require.NoError(t, err)
		assert.NotContains(t, result.ContentHTML, "Markets")
		assert.NotContains(t, result.ContentHTML, "All rights reserved")
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := trafilatura.NewExtractor().Extract("  ")

		assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))
	})

	t.Run("tolerates pages without main content", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor(trafilatura.WithImages()).Extract(`<html><body><p>Hi</p></body></html>`)

		if err != nil {
			assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))
			return
		}
		assert.NotNil(t, result)
	})
}
