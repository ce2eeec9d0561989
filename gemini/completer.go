// Package gemini answers questions with Google Gemini models.
package gemini

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"

	"github.com/fwojciec/webintel"
	"google.golang.org/genai"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.5-flash"

// Ensure Completer implements webintel.Completer at compile time.
var _ webintel.Completer = (*Completer)(nil)

// Completer implements webintel.Completer using the Gemini API.
type Completer struct {
	client *genai.Client
}

// NewCompleter creates a new Completer.
func NewCompleter(client *genai.Client) *Completer {
	return &Completer{client: client}
}

// NewClient creates a Gemini API client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "GEMINI_API_KEY is required for the gemini backend")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, webintel.Errorf(webintel.EUNAVAILABLE, "creating gemini client: %v", err)
	}
	return client, nil
}

// Complete returns the full answer for req.
func (c *Completer) Complete(ctx context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	model := modelName(req)
	result, err := c.client.Models.GenerateContent(ctx, model, BuildContents(req), BuildConfig(req))
	if err != nil {
		return nil, translateError(ctx, model, err)
	}
	if result == nil {
		return nil, webintel.Errorf(webintel.EINTERNAL, "gemini returned nil result")
	}

	completion := &webintel.Completion{Text: result.Text(), Model: model}
	if result.ModelVersion != "" {
		completion.Model = result.ModelVersion
	}
	if result.UsageMetadata != nil {
		completion.Tokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return completion, nil
}

// Stream starts a streamed answer for req.
func (c *Completer) Stream(ctx context.Context, req *webintel.CompletionRequest) (webintel.TokenStream, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	model := modelName(req)
	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, model, BuildContents(req), BuildConfig(req)))
	return &tokenStream{ctx: ctx, model: model, next: next, stop: stop, cancel: cancel}, nil
}

// Ping checks that the API is reachable and the default model exists.
func (c *Completer) Ping(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, DefaultModel, nil); err != nil {
		return translateError(ctx, DefaultModel, err)
	}
	return nil
}

// BuildConfig returns the GenerateContentConfig for req.
func BuildConfig(req *webintel.CompletionRequest) *genai.GenerateContentConfig {
	temp := float32(req.Temperature)
	config := &genai.GenerateContentConfig{Temperature: &temp}
	system := req.System
	if system == "" {
		system = webintel.DefaultSystemPrompt
	}
	config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	return config
}

// BuildContents maps history turns to alternating user/model contents and
// ends with a user message carrying the source excerpt and question.
func BuildContents(req *webintel.CompletionRequest) []*genai.Content {
	pc := req.Prompt
	contents := make([]*genai.Content, 0, len(pc.History)+1)
	for _, turn := range pc.History {
		role := genai.Role(genai.RoleUser)
		if turn.Role == webintel.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	var sb strings.Builder
	if pc.SourceExcerpt != "" {
		sb.WriteString("<content>\n")
		sb.WriteString(pc.SourceExcerpt)
		if pc.SourceTruncated {
			sb.WriteString("\n\n")
			sb.WriteString(webintel.TruncationNote)
		}
		sb.WriteString("\n</content>\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(pc.Question)
	contents = append(contents, genai.NewContentFromText(sb.String(), genai.RoleUser))
	return contents
}

type tokenStream struct {
	ctx    context.Context
	model  string
	next   func() (*genai.GenerateContentResponse, error, bool)
	stop   func()
	cancel context.CancelFunc

	closeOnce sync.Once
}

// Recv returns the text of the next streamed chunk. Chunks without text
// are skipped.
func (s *tokenStream) Recv() (string, error) {
	for {
		resp, err, ok := s.next()
		if !ok {
			return "", io.EOF
		}
		if err != nil {
			return "", translateError(s.ctx, s.model, err)
		}
		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
}

func (s *tokenStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.stop()
	})
	return nil
}

func validate(req *webintel.CompletionRequest) error {
	if req == nil || req.Prompt == nil {
		return webintel.Errorf(webintel.EINVALID, "prompt required")
	}
	if req.Prompt.Question == "" {
		return webintel.Errorf(webintel.EINVALID, "question required")
	}
	return nil
}

func modelName(req *webintel.CompletionRequest) string {
	if req.Model == "" {
		return DefaultModel
	}
	return req.Model
}

func translateError(ctx context.Context, model string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return webintel.Errorf(webintel.ENOMODEL, "gemini model %q not found", model)
		case http.StatusUnauthorized, http.StatusForbidden:
			return webintel.Errorf(webintel.EUNAVAILABLE, "gemini rejected the API key: %s", apiErr.Message)
		case http.StatusBadRequest:
			return webintel.Errorf(webintel.EINVALID, "gemini rejected the request: %s", apiErr.Message)
		}
	}
	return webintel.Errorf(webintel.EUNAVAILABLE, "cannot reach gemini: %v", err)
}
