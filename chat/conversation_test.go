package chat_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/chat"
	"github.com/fwojciec/webintel/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var convNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

// memorySessions is an in-memory SessionStore that records saves.
type memorySessions struct {
	sessions map[string]*webintel.Session
	saves    int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*webintel.Session{}}
}

func (m *memorySessions) store() *mock.SessionStore {
	return &mock.SessionStore{
		LoadSessionFn: func(_ context.Context, id string) (*webintel.Session, error) {
			if s, ok := m.sessions[id]; ok {
				cp := *s
				cp.Turns = s.History()
				return &cp, nil
			}
			return webintel.NewSession(id, convNow), nil
		},
		SaveSessionFn: func(_ context.Context, s *webintel.Session) error {
			m.saves++
			cp := *s
			cp.Turns = s.History()
			m.sessions[s.ID] = &cp
			return nil
		},
	}
}

func reportStore() *mock.ReportStore {
	report := &webintel.CrawlReport{RootURL: "https://example.com/", Pages: []*webintel.PageResult{}}
	report.Add(&webintel.PageResult{URL: "https://example.com/", Content: "Home page", Success: true})
	report.Add(&webintel.PageResult{URL: "https://example.com/x", Success: false, ErrorReason: "HTTP 500"})
	report.Add(&webintel.PageResult{URL: "https://example.com/about", Content: "About page", Success: true})
	return &mock.ReportStore{
		LoadReportFn: func(_ context.Context, path string) (*webintel.CrawlReport, error) {
			if filepath.Base(path) == "notes.txt" {
				return nil, webintel.Errorf(webintel.EINVALID, "not a crawl report")
			}
			if filepath.Base(path) == "missing.md" {
				return nil, webintel.Errorf(webintel.ENOTFOUND, "source file %s not found", path)
			}
			return report, nil
		},
		LoadContentFn: func(_ context.Context, path string) (string, error) {
			return "plain notes", nil
		},
	}
}

func newConversation(sessions *memorySessions, completer *mock.Completer) *chat.Conversation {
	return &chat.Conversation{
		Reports:     reportStore(),
		Sessions:    sessions.store(),
		Completer:   completer,
		Window:      chat.NewWindow(nil, 0.6),
		Model:       "llama3",
		Temperature: 0.2,
		MaxTokens:   1000,
		Now:         func() time.Time { return convNow },
	}
}

func answering(text string) *mock.Completer {
	return &mock.Completer{
		CompleteFn: func(_ context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
			return &webintel.Completion{Text: text, Model: req.Model, Tokens: 7}, nil
		},
	}
}

func TestConversation_Ask(t *testing.T) {
	t.Parallel()

	t.Run("builds prompt from successful pages", func(t *testing.T) {
		t.Parallel()

		var got *webintel.CompletionRequest
		completer := &mock.Completer{
			CompleteFn: func(_ context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
				got = req
				return &webintel.Completion{Text: "It is a site.", Tokens: 4}, nil
			},
		}
		conv := newConversation(newMemorySessions(), completer)

		answer, err := conv.Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", Question: "What is it?"})

		require.NoError(t, err)
		assert.Equal(t, "It is a site.", answer.Text)
		assert.Equal(t, "llama3", answer.Model)
		assert.Equal(t, 4, answer.Tokens)
		assert.Equal(t, "llama3", got.Model)
		assert.InDelta(t, 0.2, got.Temperature, 1e-9)
		assert.Equal(t, webintel.DefaultSystemPrompt, got.System)
		assert.Equal(t, "--- From: https://example.com/ ---\nHome page\n\n--- From: https://example.com/about ---\nAbout page", got.Prompt.SourceExcerpt)
		assert.Equal(t, "What is it?", got.Prompt.Question)
	})

	t.Run("uses raw content for non-report files", func(t *testing.T) {
		t.Parallel()

		var got *webintel.CompletionRequest
		completer := &mock.Completer{
			CompleteFn: func(_ context.Context, req *webintel.CompletionRequest) (*webintel.Completion, error) {
				got = req
				return &webintel.Completion{Text: "ok"}, nil
			},
		}

		_, err := newConversation(newMemorySessions(), completer).Ask(context.Background(), &webintel.AskRequest{Source: "/data/notes.txt", Question: "Summarize"})

		require.NoError(t, err)
		assert.Equal(t, "plain notes", got.Prompt.SourceExcerpt)
	})

	t.Run("model override", func(t *testing.T) {
		t.Parallel()

		answer, err := newConversation(newMemorySessions(), answering("x")).Ask(context.Background(), &webintel.AskRequest{
			Source: "/data/report.md", Question: "q", Model: "mistral",
		})

		require.NoError(t, err)
		assert.Equal(t, "mistral", answer.Model)
	})

	t.Run("records exchange in named session", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		conv := newConversation(sessions, answering("First answer"))

		_, err := conv.Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "First question"})
		require.NoError(t, err)
		answer, err := conv.Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "Second question"})
		require.NoError(t, err)

		stored := sessions.sessions["s1"]
		require.NotNil(t, stored)
		assert.Equal(t, "/data/report.md", stored.SourceFile)
		require.Len(t, stored.Turns, 4)
		assert.Equal(t, webintel.RoleUser, stored.Turns[0].Role)
		assert.Equal(t, "First question", stored.Turns[0].Text)
		assert.Equal(t, webintel.RoleAssistant, stored.Turns[1].Role)
		assert.Equal(t, "Second question", stored.Turns[2].Text)
		assert.Equal(t, webintel.EstimateTokens("Second question"), stored.Turns[2].TokenEstimate)
		assert.Equal(t, []string{"First question", "First answer"}, turnTexts(answer.Prompt.History))
	})

	t.Run("without session id nothing is saved", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()

		_, err := newConversation(sessions, answering("a")).Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", Question: "q"})

		require.NoError(t, err)
		assert.Equal(t, 0, sessions.saves)
	})

	t.Run("rejects session bound to another source", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		conv := newConversation(sessions, answering("a"))
		_, err := conv.Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "q"})
		require.NoError(t, err)

		_, err = conv.Ask(context.Background(), &webintel.AskRequest{Source: "/data/other.md", SessionID: "s1", Question: "q"})

		assert.Equal(t, webintel.ECONFLICT, webintel.ErrorCode(err))
		assert.Len(t, sessions.sessions["s1"].Turns, 2)
	})

	t.Run("backend failure leaves session untouched", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		completer := &mock.Completer{
			CompleteFn: func(context.Context, *webintel.CompletionRequest) (*webintel.Completion, error) {
				return nil, webintel.Errorf(webintel.EUNAVAILABLE, "cannot reach LLM backend")
			},
		}

		_, err := newConversation(sessions, completer).Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "q"})

		assert.Equal(t, webintel.EUNAVAILABLE, webintel.ErrorCode(err))
		assert.Equal(t, 0, sessions.saves)
	})

	t.Run("missing source", func(t *testing.T) {
		t.Parallel()

		_, err := newConversation(newMemorySessions(), answering("a")).Ask(context.Background(), &webintel.AskRequest{Source: "/data/missing.md", Question: "q"})

		assert.Equal(t, webintel.ENOTFOUND, webintel.ErrorCode(err))
	})

	t.Run("validates request", func(t *testing.T) {
		t.Parallel()

		conv := newConversation(newMemorySessions(), answering("a"))

		_, err := conv.Ask(context.Background(), &webintel.AskRequest{Source: "/data/report.md", Question: "  "})
		assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))

		_, err = conv.Ask(context.Background(), &webintel.AskRequest{Question: "q"})
		assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))
	})
}

func TestConversation_Stream(t *testing.T) {
	t.Parallel()

	t.Run("delivers tokens and records answer", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		completer := &mock.Completer{
			StreamFn: func(context.Context, *webintel.CompletionRequest) (webintel.TokenStream, error) {
				return mock.NewTokenStream("Hel", "lo", "!"), nil
			},
		}
		var tokens []string

		answer, err := newConversation(sessions, completer).Stream(context.Background(),
			&webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "Greet me"},
			func(token string) error {
				tokens = append(tokens, token)
				return nil
			})

		require.NoError(t, err)
		assert.Equal(t, []string{"Hel", "lo", "!"}, tokens)
		assert.Equal(t, "Hello!", answer.Text)
		assert.Equal(t, 3, answer.Tokens)
		require.Len(t, sessions.sessions["s1"].Turns, 2)
		assert.Equal(t, "Hello!", sessions.sessions["s1"].Turns[1].Text)
	})

	t.Run("cancellation appends nothing", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var closed bool
		stream := mock.NewTokenStream("a", "b", "c", "d")
		stream.CloseFn = func() error {
			closed = true
			return nil
		}
		completer := &mock.Completer{
			StreamFn: func(context.Context, *webintel.CompletionRequest) (webintel.TokenStream, error) {
				return stream, nil
			},
		}

		_, err := newConversation(sessions, completer).Stream(ctx,
			&webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "q"},
			func(token string) error {
				if token == "b" {
					cancel()
				}
				return nil
			})

		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, closed)
		assert.Equal(t, 0, sessions.saves)
	})

	t.Run("stream error appends nothing", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		calls := 0
		completer := &mock.Completer{
			StreamFn: func(context.Context, *webintel.CompletionRequest) (webintel.TokenStream, error) {
				return &mock.TokenStream{RecvFn: func() (string, error) {
					calls++
					if calls == 1 {
						return "partial", nil
					}
					return "", errors.New("connection reset")
				}}, nil
			},
		}

		_, err := newConversation(sessions, completer).Stream(context.Background(),
			&webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "q"}, nil)

		assert.EqualError(t, err, "connection reset")
		assert.Equal(t, 0, sessions.saves)
	})

	t.Run("callback error aborts", func(t *testing.T) {
		t.Parallel()

		sessions := newMemorySessions()
		completer := &mock.Completer{
			StreamFn: func(context.Context, *webintel.CompletionRequest) (webintel.TokenStream, error) {
				return mock.NewTokenStream("x", "y"), nil
			},
		}

		_, err := newConversation(sessions, completer).Stream(context.Background(),
			&webintel.AskRequest{Source: "/data/report.md", SessionID: "s1", Question: "q"},
			func(string) error { return io.ErrClosedPipe })

		assert.ErrorIs(t, err, io.ErrClosedPipe)
		assert.Equal(t, 0, sessions.saves)
	})
}
