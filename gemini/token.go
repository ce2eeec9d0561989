package gemini

import (
	"context"

	"github.com/fwojciec/webintel"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ webintel.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens offline with the Gemini SentencePiece tokenizer.
type TokenCounter struct {
	tok *tokenizer.LocalTokenizer
}

// NewTokenCounter creates a TokenCounter for model. Returns EINVALID if the
// tokenizer does not support the model.
func NewTokenCounter(model string) (*TokenCounter, error) {
	if model == "" {
		model = DefaultModel
	}
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "no local tokenizer for model %q: %v", model, err)
	}
	return &TokenCounter{tok: tok}, nil
}

// CountTokens returns the number of tokens text occupies as a user message.
func (tc *TokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, err
	}
	return int(result.TotalTokens), nil
}
