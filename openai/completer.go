// Package openai answers questions with any server speaking the OpenAI chat
// completions API, such as llama-server, vLLM or OpenAI itself.
package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/fwojciec/webintel"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultHost is llama-server's default listen address.
const DefaultHost = "http://localhost:8080"

// Ensure Completer implements webintel.Completer at compile time.
var _ webintel.Completer = (*Completer)(nil)

// Completer implements webintel.Completer with go-openai.
type Completer struct {
	client *openai.Client
	host   string
	model  string
}

// NewCompleter creates a Completer for the server at host. host may or may
// not include the /v1 suffix. model is used when a request names none.
func NewCompleter(host, apiKey, model string) *Completer {
	if host == "" {
		host = DefaultHost
	}
	host = strings.TrimRight(host, "/")
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = host
	if !strings.HasSuffix(host, "/v1") {
		config.BaseURL = host + "/v1"
	}
	return &Completer{
		client: openai.NewClientWithConfig(config),
		host:   host,
		model:  model,
	}
}

// Complete returns the full answer in one request.
func (c *Completer) Complete(ctx context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
	chatReq, err := c.chatRequest(req, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, c.translateError(ctx, chatReq.Model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, webintel.Errorf(webintel.EINTERNAL, "no choices in completion response")
	}

	model := resp.Model
	if model == "" {
		model = chatReq.Model
	}
	return &webintel.Completion{
		Text:   resp.Choices[0].Message.Content,
		Model:  model,
		Tokens: resp.Usage.CompletionTokens,
	}, nil
}

// Stream starts a server-sent-events completion.
func (c *Completer) Stream(ctx context.Context, req *webintel.CompletionRequest) (webintel.TokenStream, error) {
	chatReq, err := c.chatRequest(req, true)
	if err != nil {
		return nil, err
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, c.translateError(ctx, chatReq.Model, err)
	}
	return &tokenStream{ctx: ctx, c: c, model: chatReq.Model, stream: stream}, nil
}

// Ping lists the served models to check that the server is up.
func (c *Completer) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return c.translateError(ctx, c.model, err)
	}
	return nil
}

func (c *Completer) chatRequest(req *webintel.CompletionRequest, stream bool) (openai.ChatCompletionRequest, error) {
	if req == nil || req.Prompt == nil || req.Prompt.Question == "" {
		return openai.ChatCompletionRequest{}, webintel.Errorf(webintel.EINVALID, "question required")
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    BuildMessages(req),
		Temperature: float32(req.Temperature),
		Stream:      stream,
	}, nil
}

// BuildMessages maps a request to chat messages: the system prompt, the
// history turns, then a user message with the source excerpt and question.
func BuildMessages(req *webintel.CompletionRequest) []openai.ChatCompletionMessage {
	system := req.System
	if system == "" {
		system = webintel.DefaultSystemPrompt
	}
	pc := req.Prompt
	messages := make([]openai.ChatCompletionMessage, 0, len(pc.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, turn := range pc.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == webintel.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	var sb strings.Builder
	if pc.SourceExcerpt != "" {
		sb.WriteString("Content to analyze:\n")
		sb.WriteString(pc.SourceExcerpt)
		if pc.SourceTruncated {
			sb.WriteString("\n\n")
			sb.WriteString(webintel.TruncationNote)
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(pc.Question)
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: sb.String()})
}

func (c *Completer) translateError(ctx context.Context, model string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case 0:
		return webintel.Errorf(webintel.EUNAVAILABLE, "cannot reach LLM server at %s: %v (start the server or check --llm-host)", c.host, err)
	case http.StatusNotFound:
		return webintel.Errorf(webintel.ENOMODEL, "model %q not found on %s", model, c.host)
	case http.StatusBadRequest:
		return webintel.Errorf(webintel.EINVALID, "LLM server rejected the request: %v", err)
	}
	return webintel.Errorf(webintel.EUNAVAILABLE, "LLM server error (HTTP %d): %v", status, err)
}

type tokenStream struct {
	ctx    context.Context
	c      *Completer
	model  string
	stream *openai.ChatCompletionStream

	closeOnce sync.Once
}

// Recv returns the next non-empty content delta.
func (s *tokenStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", s.c.translateError(s.ctx, s.model, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *tokenStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.stream.Close()
	})
	return err
}
