package slog_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/mock"
	wslog "github.com/fwojciec/webintel/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingCompleter(t *testing.T) {
	t.Parallel()

	req := &webintel.CompletionRequest{Model: "llama3.2", Prompt: &webintel.PromptContext{Question: "q", Tokens: 42}}

	t.Run("complete logs model and token counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Completer{
			CompleteFn: func(context.Context, *webintel.CompletionRequest) (*webintel.Completion, error) {
				return &webintel.Completion{Text: "a", Tokens: 5}, nil
			},
		}

		completion, err := wslog.NewLoggingCompleter(inner, debugLogger(&buf)).Complete(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, "a", completion.Text)
		output := buf.String()
		assert.Contains(t, output, "msg=complete")
		assert.Contains(t, output, "model=llama3.2")
		assert.Contains(t, output, "prompt_tokens=42")
		assert.Contains(t, output, "tokens=5")
	})

	t.Run("stream passes the stream through", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		want := mock.NewTokenStream("x")
		inner := &mock.Completer{
			StreamFn: func(context.Context, *webintel.CompletionRequest) (webintel.TokenStream, error) {
				return want, nil
			},
		}

		stream, err := wslog.NewLoggingCompleter(inner, debugLogger(&buf)).Stream(context.Background(), req)

		require.NoError(t, err)
		assert.Same(t, want, stream)
		assert.Contains(t, buf.String(), "msg=stream")
	})

	t.Run("ping logs failures only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		fail := true
		inner := &mock.Completer{
			PingFn: func(context.Context) error {
				if fail {
					return errors.New("refused")
				}
				return nil
			},
		}
		c := wslog.NewLoggingCompleter(inner, debugLogger(&buf))

		require.Error(t, c.Ping(context.Background()))
		assert.Contains(t, buf.String(), "err=refused")

		buf.Reset()
		fail = false
		require.NoError(t, c.Ping(context.Background()))
		assert.Empty(t, buf.String())
	})
}
