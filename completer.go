package webintel

import "context"

// CompletionRequest is one call to a language model.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      *PromptContext
	Temperature float64
}

// Completion is a finished model answer.
type Completion struct {
	Text  string
	Model string

	// Tokens is the number of generated tokens when the backend reports it.
	Tokens int
}

// Completer generates answers with a language model backend.
// A backend that cannot be reached yields EUNAVAILABLE.
type Completer interface {
	// Complete returns the full answer in one call.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Stream starts a completion and returns its tokens as a pull-based stream.
	Stream(ctx context.Context, req *CompletionRequest) (TokenStream, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// TokenStream is a cancellable sequence of generated tokens.
type TokenStream interface {
	// Recv returns the next token, or io.EOF once the answer is complete.
	Recv() (string, error)

	// Close aborts the stream and releases its connection.
	Close() error
}
