package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/webintel"
)

// Ensure LoggingCompleter implements webintel.Completer.
var _ webintel.Completer = (*LoggingCompleter)(nil)

// LoggingCompleter wraps a Completer with request logging.
type LoggingCompleter struct {
	next   webintel.Completer
	logger *slog.Logger
}

// NewLoggingCompleter creates a new LoggingCompleter.
func NewLoggingCompleter(next webintel.Completer, logger *slog.Logger) *LoggingCompleter {
	return &LoggingCompleter{next: next, logger: logger}
}

// Complete logs model, prompt size and answer size.
func (c *LoggingCompleter) Complete(ctx context.Context, req *webintel.CompletionRequest) (completion *webintel.Completion, err error) {
	defer func(begin time.Time) {
		var tokens int
		if completion != nil {
			tokens = completion.Tokens
		}
		c.logger.Debug("complete",
			"model", req.Model,
			"prompt_tokens", promptTokens(req),
			"tokens", tokens,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Complete(ctx, req)
}

// Stream logs when a stream starts; tokens are not logged.
func (c *LoggingCompleter) Stream(ctx context.Context, req *webintel.CompletionRequest) (stream webintel.TokenStream, err error) {
	defer func(begin time.Time) {
		c.logger.Debug("stream",
			"model", req.Model,
			"prompt_tokens", promptTokens(req),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Stream(ctx, req)
}

// Ping delegates to the wrapped completer.
func (c *LoggingCompleter) Ping(ctx context.Context) error {
	err := c.next.Ping(ctx)
	if err != nil {
		c.logger.Debug("ping", "err", err)
	}
	return err
}

func promptTokens(req *webintel.CompletionRequest) int {
	if req == nil || req.Prompt == nil {
		return 0
	}
	return req.Prompt.Tokens
}
