// Package ollama answers questions with models served by a local Ollama
// instance.
package ollama

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/ollama/ollama/api"
)

// Defaults for a stock Ollama installation.
const (
	DefaultHost    = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Ensure Completer implements webintel.Completer at compile time.
var _ webintel.Completer = (*Completer)(nil)

// Completer implements webintel.Completer with the Ollama generate API.
type Completer struct {
	host       string
	httpClient *http.Client
}

// Option configures a Completer.
type Option func(*Completer)

// WithHTTPClient sets the HTTP client. Streaming requests are bounded only by
// their context, so the client should not set a Timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Completer) {
		c.httpClient = client
	}
}

// NewCompleter creates a Completer for the Ollama server at host.
func NewCompleter(host string, opts ...Option) *Completer {
	if host == "" {
		host = DefaultHost
	}
	c := &Completer{
		host:       strings.TrimRight(host, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete returns the full answer in one non-streamed request.
func (c *Completer) Complete(ctx context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	client, gen, err := c.prepare(req, false)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	completion := &webintel.Completion{Model: gen.Model}
	err = client.Generate(ctx, gen, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.Model != "" {
			completion.Model = resp.Model
		}
		if resp.Done {
			completion.Tokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, c.translateError(ctx, gen.Model, err)
	}
	if text.Len() == 0 {
		return nil, webintel.Errorf(webintel.EINTERNAL, "empty response from ollama")
	}
	completion.Text = text.String()
	return completion, nil
}

// Stream starts a streamed request. Tokens are handed from the client's
// callback to Recv one at a time, so a slow reader holds back the response.
func (c *Completer) Stream(ctx context.Context, req *webintel.CompletionRequest) (webintel.TokenStream, error) {
	client, gen, err := c.prepare(req, true)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &tokenStream{
		tokens: make(chan string),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(s.done)
		var finished bool
		err := client.Generate(ctx, gen, func(resp api.GenerateResponse) error {
			if finished {
				return nil
			}
			finished = resp.Done
			if resp.Response == "" {
				return nil
			}
			select {
			case s.tokens <- resp.Response:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		switch {
		case err != nil:
			s.err = c.translateError(ctx, gen.Model, err)
		case !finished:
			s.err = webintel.Errorf(webintel.EUNAVAILABLE, "ollama stream ended before completion")
		}
	}()
	return s, nil
}

// Ping checks that the server answers.
func (c *Completer) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := c.client()
	if err != nil {
		return err
	}
	if err := client.Heartbeat(ctx); err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			return webintel.Errorf(webintel.EUNAVAILABLE, "ollama at %s returned HTTP %d", c.host, statusErr.StatusCode)
		}
		return c.unavailable(ctx, err)
	}
	return nil
}

func (c *Completer) client() (*api.Client, error) {
	base, err := url.Parse(c.host)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "invalid ollama host %q: must be an http or https URL", c.host)
	}
	return api.NewClient(base, c.httpClient), nil
}

func (c *Completer) prepare(req *webintel.CompletionRequest, stream bool) (*api.Client, *api.GenerateRequest, error) {
	if req == nil || req.Prompt == nil || req.Prompt.Question == "" {
		return nil, nil, webintel.Errorf(webintel.EINVALID, "question required")
	}
	client, err := c.client()
	if err != nil {
		return nil, nil, err
	}

	system := req.System
	if system == "" {
		system = webintel.DefaultSystemPrompt
	}
	return client, &api.GenerateRequest{
		Model:   modelName(req),
		Prompt:  webintel.FormatPrompt(system, req.Prompt),
		Stream:  &stream,
		Options: map[string]any{"temperature": req.Temperature},
	}, nil
}

// translateError maps client errors onto application codes. Transport
// failures surface as *url.Error; anything else came back from the server.
func (c *Completer) translateError(ctx context.Context, model string, err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		if statusErr.StatusCode == http.StatusNotFound {
			return webintel.Errorf(webintel.ENOMODEL, "model %q not found (pull it with `ollama pull %s`): %s", model, model, msg)
		}
		return webintel.Errorf(webintel.EUNAVAILABLE, "ollama API error (HTTP %d): %s", statusErr.StatusCode, msg)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || ctx.Err() != nil {
		return c.unavailable(ctx, err)
	}
	return webintel.Errorf(webintel.EINTERNAL, "ollama: %v", err)
}

func (c *Completer) unavailable(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return webintel.Errorf(webintel.ETIMEOUT, "ollama at %s did not answer in time", c.host)
		}
		return ctxErr
	}
	return webintel.Errorf(webintel.EUNAVAILABLE, "cannot reach ollama at %s: %v (start it with `ollama serve`)", c.host, err)
}

func modelName(req *webintel.CompletionRequest) string {
	if req.Model == "" {
		return DefaultModel
	}
	return req.Model
}

type tokenStream struct {
	tokens chan string
	done   chan struct{}
	err    error // set before done is closed
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Recv returns the next non-empty response fragment.
func (s *tokenStream) Recv() (string, error) {
	select {
	case token := <-s.tokens:
		return token, nil
	case <-s.done:
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
}

// Close cancels the request and waits for the client to return.
func (s *tokenStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
