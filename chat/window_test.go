package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/webintel"
	"github.com/fwojciec/webintel/chat"
	"github.com/fwojciec/webintel/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter counts whitespace-separated words, which keeps budgets in
// tests easy to reason about.
var wordCounter = &mock.TokenCounter{
	CountTokensFn: func(_ context.Context, text string) (int, error) {
		return len(strings.Fields(text)), nil
	},
}

func sessionWithTurns(n int) *webintel.Session {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := webintel.NewSession("s", start)
	for i := range n {
		role := webintel.RoleUser
		if i%2 == 1 {
			role = webintel.RoleAssistant
		}
		_ = s.AppendTurn(webintel.Turn{
			Role:      role,
			Text:      fmt.Sprintf("turn%d a b", i), // 3 words each
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		})
	}
	return s
}

func turnTexts(turns []webintel.Turn) []string {
	texts := make([]string, 0, len(turns))
	for _, t := range turns {
		texts = append(texts, t.Text)
	}
	return texts
}

func TestWindow_Build_KeepsLastTurnsThatFit(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(wordCounter, 0.5)
	session := sessionWithTurns(10)

	// question: 2 words, no source; 10 words remain, enough for 3 turns.
	pc, err := w.Build(context.Background(), "", session, "what now", 12)

	require.NoError(t, err)
	assert.Equal(t, []string{"turn7 a b", "turn8 a b", "turn9 a b"}, turnTexts(pc.History))
	assert.Equal(t, 11, pc.Tokens)
	assert.Len(t, session.Turns, 10, "session must not be modified")
}

func TestWindow_Build_QuestionAlwaysInFull(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(wordCounter, 0.6)
	question := strings.Repeat("word ", 50)

	pc, err := w.Build(context.Background(), "some source text", sessionWithTurns(4), question, 10)

	require.NoError(t, err)
	assert.Equal(t, question, pc.Question)
	assert.Empty(t, pc.SourceExcerpt)
	assert.Empty(t, pc.History)
	assert.Equal(t, 50, pc.Tokens)
}

func TestWindow_Build_TruncatesSourceToSubBudget(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(webintel.CharCounter{}, 0.5)
	source := strings.Repeat("abcd", 100) // 100 tokens

	pc, err := w.Build(context.Background(), source, nil, "q", 40)

	require.NoError(t, err)
	assert.True(t, pc.SourceTruncated)
	assert.Equal(t, source[:80], pc.SourceExcerpt) // 20 tokens
	assert.Equal(t, 21, pc.Tokens)
}

func TestWindow_Build_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(webintel.CharCounter{}, 1)
	source := strings.Repeat("żółw", 10) // 40 runes, 10 tokens

	pc, err := w.Build(context.Background(), source, nil, "q", 4)

	require.NoError(t, err)
	assert.True(t, pc.SourceTruncated)
	assert.Equal(t, "żółwżółwżółw", pc.SourceExcerpt) // 3 tokens, leaving 1 for the question
}

func TestWindow_Build_SourceNeverExceedsRemaining(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(wordCounter, 1)

	pc, err := w.Build(context.Background(), "one two three four five six", nil, "a b c d", 8)

	require.NoError(t, err)
	assert.Equal(t, "one two three four", strings.TrimSpace(pc.SourceExcerpt))
	assert.LessOrEqual(t, pc.Tokens, 8)
}

func TestWindow_Build_SourceBeforeHistory(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(wordCounter, 0.5)

	// 20 budget: question 1, source 10 (sub-budget), history gets 9 = 3 turns.
	pc, err := w.Build(context.Background(), strings.Repeat("s ", 30), sessionWithTurns(6), "q", 20)

	require.NoError(t, err)
	assert.True(t, pc.SourceTruncated)
	assert.Len(t, strings.Fields(pc.SourceExcerpt), 10)
	assert.Equal(t, []string{"turn3 a b", "turn4 a b", "turn5 a b"}, turnTexts(pc.History))
}

func TestWindow_Build_StopsAtFirstTurnThatDoesNotFit(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := webintel.NewSession("s", start)
	for _, text := range []string{"tiny", "a very long turn with many words in it", "short one"} {
		require.NoError(t, s.AppendTurn(webintel.Turn{Role: webintel.RoleUser, Text: text, Timestamp: start}))
	}

	pc, err := chat.NewWindow(wordCounter, 0.5).Build(context.Background(), "", s, "q", 6)

	require.NoError(t, err)
	// "tiny" would fit but older turns are never included past a gap.
	assert.Equal(t, []string{"short one"}, turnTexts(pc.History))
}

func TestWindow_Build_IsDeterministic(t *testing.T) {
	t.Parallel()

	w := chat.NewWindow(nil, 0.6)
	session := sessionWithTurns(8)
	source := strings.Repeat("content ", 200)

	first, err := w.Build(context.Background(), source, session, "question?", 300)
	require.NoError(t, err)
	for range 5 {
		again, err := w.Build(context.Background(), source, session, "question?", 300)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestWindow_Build_Errors(t *testing.T) {
	t.Parallel()

	_, err := chat.NewWindow(nil, 0.6).Build(context.Background(), "", nil, "q", 0)
	assert.Equal(t, webintel.EINVALID, webintel.ErrorCode(err))

	failing := &mock.TokenCounter{
		CountTokensFn: func(context.Context, string) (int, error) {
			return 0, errors.New("tokenizer exploded")
		},
	}
	_, err = chat.NewWindow(failing, 0.6).Build(context.Background(), "", nil, "q", 10)
	assert.Equal(t, webintel.EINTERNAL, webintel.ErrorCode(err))
}
