// Package chat assembles bounded prompts from crawled content and
// conversation history, and runs question/answer exchanges against a
// language model.
package chat

import (
	"context"
	"unicode/utf8"

	"github.com/fwojciec/webintel"
)

// DefaultSourceFraction is the share of the token budget reserved for source content.
const DefaultSourceFraction = 0.6

// Window fits a question, source content and conversation history into a
// token budget.
//
// Priority is fixed: the question is always included in full, then the
// source up to its sub-budget (truncated from the end), then as many of the
// most recent turns as fit. Older turns are dropped whole, never cut.
type Window struct {
	Counter webintel.TokenCounter

	// SourceFraction bounds the source excerpt to this share of maxTokens.
	SourceFraction float64
}

// NewWindow returns a Window using counter, or CharCounter when nil.
func NewWindow(counter webintel.TokenCounter, sourceFraction float64) *Window {
	if counter == nil {
		counter = webintel.CharCounter{}
	}
	if sourceFraction <= 0 || sourceFraction > 1 {
		sourceFraction = DefaultSourceFraction
	}
	return &Window{Counter: counter, SourceFraction: sourceFraction}
}

// Build returns the PromptContext for question. session may be nil.
// The result depends only on the arguments.
func (w *Window) Build(ctx context.Context, source string, session *webintel.Session, question string, maxTokens int) (*webintel.PromptContext, error) {
	if maxTokens <= 0 {
		return nil, webintel.Errorf(webintel.EINVALID, "max tokens must be positive, got %d", maxTokens)
	}

	questionTokens, err := w.count(ctx, question)
	if err != nil {
		return nil, err
	}
	pc := &webintel.PromptContext{
		Question: question,
		History:  []webintel.Turn{},
		Tokens:   questionTokens,
	}
	if questionTokens >= maxTokens {
		return pc, nil
	}
	remaining := maxTokens - questionTokens

	sourceBudget := min(int(float64(maxTokens)*w.fraction()), remaining)
	excerpt, excerptTokens, truncated, err := w.fit(ctx, source, sourceBudget)
	if err != nil {
		return nil, err
	}
	pc.SourceExcerpt = excerpt
	pc.SourceTruncated = truncated
	remaining -= excerptTokens

	history := session.History()
	var kept []webintel.Turn
	for i := len(history) - 1; i >= 0; i-- {
		cost, err := w.count(ctx, history[i].Text)
		if err != nil {
			return nil, err
		}
		if cost > remaining {
			break
		}
		remaining -= cost
		kept = append(kept, history[i])
	}
	for i := len(kept) - 1; i >= 0; i-- {
		pc.History = append(pc.History, kept[i])
	}

	pc.Tokens = maxTokens - remaining
	return pc, nil
}

// fit returns the longest rune prefix of text that fits within budget
// tokens, with its token count and whether text was cut.
func (w *Window) fit(ctx context.Context, text string, budget int) (string, int, bool, error) {
	if text == "" || budget <= 0 {
		return "", 0, text != "", nil
	}

	total, err := w.count(ctx, text)
	if err != nil {
		return "", 0, false, err
	}
	if total <= budget {
		return text, total, false, nil
	}

	// Byte offsets of every rune boundary; the counter is monotonic, so the
	// longest fitting prefix can be found by binary search.
	bounds := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		bounds = append(bounds, i)
	}
	bounds = append(bounds, len(text))

	lo, hi := 0, len(bounds)-1
	best, bestTokens := 0, 0
	for lo <= hi {
		mid := (lo + hi) / 2
		n, err := w.count(ctx, text[:bounds[mid]])
		if err != nil {
			return "", 0, false, err
		}
		if n <= budget {
			best, bestTokens = mid, n
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return text[:bounds[best]], bestTokens, true, nil
}

func (w *Window) count(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	counter := w.Counter
	if counter == nil {
		counter = webintel.CharCounter{}
	}
	n, err := counter.CountTokens(ctx, text)
	if err != nil {
		return 0, webintel.Errorf(webintel.EINTERNAL, "counting tokens: %v", err)
	}
	return n, nil
}

func (w *Window) fraction() float64 {
	if w.SourceFraction <= 0 || w.SourceFraction > 1 {
		return DefaultSourceFraction
	}
	return w.SourceFraction
}
