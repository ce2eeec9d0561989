package webintel

import "context"

// AskRequest is a question about a stored crawl result.
type AskRequest struct {
	// Source is the path of the crawl file to ask about.
	Source string

	// SessionID names the conversation to continue. Empty asks without history
	// and persists nothing.
	SessionID string

	Question string

	// Model overrides the configured model when set.
	Model string
}

// Answer is the result of a successful question.
type Answer struct {
	Text    string
	Model   string
	Tokens  int
	Prompt  *PromptContext
	Session *Session
}

// Asker answers natural language questions about crawled content.
type Asker interface {
	// Ask answers the question and, when a session is named, records the
	// exchange in it. Nothing is recorded on error.
	Ask(ctx context.Context, req *AskRequest) (*Answer, error)

	// Stream is like Ask but delivers the answer token by token.
	// Cancellation or an error from onToken aborts the answer and records nothing.
	Stream(ctx context.Context, req *AskRequest, onToken func(token string) error) (*Answer, error)
}
