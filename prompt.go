package webintel

import (
	"fmt"
	"strings"
)

// PromptContext is the bounded input for one question: a source excerpt,
// the most recent history that fits, and the question itself.
type PromptContext struct {
	SourceExcerpt   string
	SourceTruncated bool
	History         []Turn
	Question        string

	// Tokens is the estimated size of excerpt, history and question combined.
	Tokens int
}

// DefaultSystemPrompt instructs the model to stay within the provided content.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions about crawled web content. " +
	"Answer based only on the content provided. If the answer is not in the content, say so."

// TruncationNote is appended to a source excerpt that was cut to fit the budget.
const TruncationNote = "[Note: content truncated to fit the context window]"

// FormatPrompt renders a PromptContext as a single completion prompt.
// Empty sections are omitted.
func FormatPrompt(system string, pc *PromptContext) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	if pc.SourceExcerpt != "" {
		sb.WriteString("Content to analyze:\n")
		sb.WriteString(pc.SourceExcerpt)
		if pc.SourceTruncated {
			sb.WriteString("\n\n")
			sb.WriteString(TruncationNote)
		}
		sb.WriteString("\n\n")
	}
	if len(pc.History) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, t := range pc.History {
			fmt.Fprintf(&sb, "%s: %s\n", roleLabel(t.Role), t.Text)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "User question: %s\n\nAnswer:", pc.Question)
	return sb.String()
}

func roleLabel(r Role) string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}
