package webintel

import (
	"context"
	"unicode/utf8"
)

// TokenCounter estimates the number of tokens in text.
// Implementations must be monotonic: appending text never lowers the count.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// CharsPerToken is the approximation used by CharCounter.
const CharsPerToken = 4

var _ TokenCounter = CharCounter{}

// CharCounter estimates tokens as one token per CharsPerToken runes, rounded up.
// It is the default estimator and needs no model files.
type CharCounter struct{}

// CountTokens returns ceil(runes/CharsPerToken).
func (CharCounter) CountTokens(_ context.Context, text string) (int, error) {
	return EstimateTokens(text), nil
}

// EstimateTokens is CharCounter without the interface.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}
