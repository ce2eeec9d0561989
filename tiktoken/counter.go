// Package tiktoken counts tokens with OpenAI's BPE encodings, which also
// approximate most open models closely enough for context budgeting.
package tiktoken

import (
	"context"
	"strings"

	"github.com/fwojciec/webintel"
	"github.com/tiktoken-go/tokenizer"
)

// DefaultEncoding is used when no encoding is named.
const DefaultEncoding = "cl100k_base"

var _ webintel.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens with a tiktoken encoding. It is safe for
// concurrent use.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter returns a TokenCounter for the named encoding
// (cl100k_base, o200k_base, p50k_base, r50k_base).
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	codec, err := tokenizer.Get(tokenizer.Encoding(strings.ToLower(encoding)))
	if err != nil {
		return nil, webintel.Errorf(webintel.EINVALID, "unknown tokenizer encoding %q: %v", encoding, err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens text encodes to.
func (tc *TokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := tc.codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
