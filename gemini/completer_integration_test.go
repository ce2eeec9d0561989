//go:build integration

package gemini_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationCompleter(t *testing.T, ctx context.Context) *gemini.Completer {
	t.Helper()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	client, err := gemini.NewClient(ctx, apiKey)
	require.NoError(t, err)
	return gemini.NewCompleter(client)
}

func htmxRequest() *webintel.CompletionRequest {
	return &webintel.CompletionRequest{
		Prompt: &webintel.PromptContext{
			SourceExcerpt: "HTMX is a library that allows you to access modern browser features directly from HTML.",
			Question:      "What is HTMX?",
		},
		Temperature: 0.2,
	}
}

func TestCompleter_Integration_Complete(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c := newIntegrationCompleter(t, ctx)

	completion, err := c.Complete(ctx, htmxRequest())

	require.NoError(t, err)
	assert.Contains(t, completion.Text, "HTMX")
}

func TestCompleter_Integration_Stream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	c := newIntegrationCompleter(t, ctx)

	stream, err := c.Stream(ctx, htmxRequest())
	require.NoError(t, err)
	defer stream.Close()

	var sb strings.Builder
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(token)
	}
	assert.Contains(t, sb.String(), "HTMX")
}
