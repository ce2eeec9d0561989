package webintel_test

import (
	"context"
	"strings"
	"testing"

	"github.com/fwojciec/webintel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharCounter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"żółć", 1},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		got, err := webintel.CharCounter{}.CountTokens(context.Background(), tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestCharCounter_Monotonic(t *testing.T) {
	t.Parallel()

	prev := 0
	text := ""
	for i := 0; i < 50; i++ {
		text += "ab"
		n := webintel.EstimateTokens(text)
		assert.GreaterOrEqual(t, n, prev)
		prev = n
	}
}
