package chat

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/webintel"
)

// DefaultMaxTokens is the context budget used when none is configured.
const DefaultMaxTokens = 4096

// Ensure Conversation implements webintel.Asker at compile time.
var _ webintel.Asker = (*Conversation)(nil)

// Conversation answers questions about stored crawl results, optionally
// continuing a persisted session.
//
// Session state is written only after a complete answer: a failed,
// cancelled or interrupted exchange leaves the stored session unchanged.
type Conversation struct {
	Reports   webintel.ReportStore
	Sessions  webintel.SessionStore
	Completer webintel.Completer
	Window    *Window

	Model       string
	Temperature float64
	MaxTokens   int

	// System is the system prompt. Defaults to webintel.DefaultSystemPrompt.
	System string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// exchange is the state shared by Ask and Stream between preparation and
// recording.
type exchange struct {
	req     *webintel.CompletionRequest
	session *webintel.Session
	persist bool
	asked   time.Time
}

// Ask answers a question with a single completion call.
func (c *Conversation) Ask(ctx context.Context, req *webintel.AskRequest) (*webintel.Answer, error) {
	ex, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	completion, err := c.Completer.Complete(ctx, ex.req)
	if err != nil {
		return nil, err
	}

	model := completion.Model
	if model == "" {
		model = ex.req.Model
	}
	return c.record(ctx, ex, completion.Text, model, completion.Tokens)
}

// Stream answers a question, passing each generated token to onToken as it
// arrives. The answer is recorded only once the stream ends normally.
func (c *Conversation) Stream(ctx context.Context, req *webintel.AskRequest, onToken func(token string) error) (*webintel.Answer, error) {
	ex, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	stream, err := c.Completer.Stream(ctx, ex.req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var sb strings.Builder
	var count int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		sb.WriteString(token)
		count++
		if onToken != nil {
			if err := onToken(token); err != nil {
				return nil, err
			}
		}
	}

	return c.record(ctx, ex, sb.String(), ex.req.Model, count)
}

func (c *Conversation) prepare(ctx context.Context, req *webintel.AskRequest) (*exchange, error) {
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "question required")
	}
	if req.Source == "" {
		return nil, webintel.Errorf(webintel.EINVALID, "source file required")
	}

	source, err := filepath.Abs(req.Source)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "invalid source path %q: %v", req.Source, err)
	}

	content, err := c.loadSource(ctx, source)
	if err != nil {
		return nil, err
	}

	ex := &exchange{persist: req.SessionID != "", asked: c.now()}
	if ex.persist {
		ex.session, err = c.Sessions.LoadSession(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
	} else {
		ex.session = webintel.NewSession("", ex.asked)
	}
	if err := ex.session.Bind(source); err != nil {
		return nil, err
	}

	pc, err := c.window().Build(ctx, content, ex.session, req.Question, c.maxTokens())
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.Model
	}
	ex.req = &webintel.CompletionRequest{
		Model:       model,
		System:      c.system(),
		Prompt:      pc,
		Temperature: c.Temperature,
	}
	return ex, nil
}

// loadSource returns the text to ask about. Crawl reports contribute the
// combined content of their successful pages; any other file is used as is.
func (c *Conversation) loadSource(ctx context.Context, path string) (string, error) {
	report, err := c.Reports.LoadReport(ctx, path)
	if err == nil {
		return webintel.FormatSources(report.Sources()), nil
	}
	if webintel.ErrorCode(err) != webintel.EINVALID {
		return "", err
	}
	return c.Reports.LoadContent(ctx, path)
}

func (c *Conversation) record(ctx context.Context, ex *exchange, text, model string, tokens int) (*webintel.Answer, error) {
	answer := &webintel.Answer{
		Text:    text,
		Model:   model,
		Tokens:  tokens,
		Prompt:  ex.req.Prompt,
		Session: ex.session,
	}
	// An empty answer is not a turn worth keeping.
	if !ex.persist || strings.TrimSpace(text) == "" {
		return answer, nil
	}

	questionTokens, err := c.window().count(ctx, ex.req.Prompt.Question)
	if err != nil {
		return nil, err
	}
	answerTokens, err := c.window().count(ctx, text)
	if err != nil {
		return nil, err
	}

	// Work on a copy so a failed save leaves the caller's view unchanged.
	session := *ex.session
	session.Turns = ex.session.History()
	if err := session.AppendTurn(webintel.Turn{
		Role:          webintel.RoleUser,
		Text:          ex.req.Prompt.Question,
		TokenEstimate: questionTokens,
		Timestamp:     ex.asked,
	}); err != nil {
		return nil, err
	}
	if err := session.AppendTurn(webintel.Turn{
		Role:          webintel.RoleAssistant,
		Text:          text,
		TokenEstimate: answerTokens,
		Timestamp:     c.now(),
	}); err != nil {
		return nil, err
	}

	if err := c.Sessions.SaveSession(ctx, &session); err != nil {
		return nil, err
	}
	answer.Session = &session
	return answer, nil
}

func (c *Conversation) window() *Window {
	if c.Window == nil {
		return NewWindow(nil, DefaultSourceFraction)
	}
	return c.Window
}

func (c *Conversation) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

func (c *Conversation) system() string {
	if c.System == "" {
		return webintel.DefaultSystemPrompt
	}
	return c.System
}

func (c *Conversation) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
