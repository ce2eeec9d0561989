package mock

import (
	"context"
	"io"

	"github.com/fwojciec/webintel"
)

var (
	_ webintel.Completer   = (*Completer)(nil)
	_ webintel.TokenStream = (*TokenStream)(nil)
)

// Completer is a mock implementation of webintel.Completer.
type Completer struct {
	CompleteFn func(ctx context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error)
	StreamFn   func(ctx context.Context, req *webintel.CompletionRequest) (webintel.TokenStream, error)
	PingFn     func(ctx context.Context) error
}

func (c *Completer) Complete(ctx context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
	return c.CompleteFn(ctx, req)
}

func (c *Completer) Stream(ctx context.Context, req *webintel.CompletionRequest) (webintel.TokenStream, error) {
	return c.StreamFn(ctx, req)
}

func (c *Completer) Ping(ctx context.Context) error {
	return c.PingFn(ctx)
}

// TokenStream is a mock implementation of webintel.TokenStream.
type TokenStream struct {
	RecvFn  func() (string, error)
	CloseFn func() error
}

func (s *TokenStream) Recv() (string, error) {
	return s.RecvFn()
}

func (s *TokenStream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// NewTokenStream returns a TokenStream that yields tokens then io.EOF.
func NewTokenStream(tokens ...string) *TokenStream {
	i := 0
	return &TokenStream{
		RecvFn: func() (string, error) {
			if i >= len(tokens) {
				return "", io.EOF
			}
			i++
			return tokens[i-1], nil
		},
	}
}
