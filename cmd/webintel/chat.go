package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/webintel"
	input "github.com/tcnksm/go-input"
)

// Run executes the chat command.
func (c *ChatCmd) Run(deps *Dependencies) error {
	session := c.Session
	if session == "" {
		session = "session_" + deps.now().Format("20060102_150405")
	}
	if err := webintel.ValidateSessionID(session); err != nil {
		return reportError(deps, err, "")
	}

	if err := deps.Completer.Ping(deps.Ctx); err != nil {
		return reportError(deps, err, hintFor(err, deps.Config))
	}

	fmt.Fprintf(deps.Stdout, "Source:   %s\n", c.Source)
	fmt.Fprintf(deps.Stdout, "Session:  %s\n", session)
	fmt.Fprintln(deps.Stdout, "Commands: 'exit' or 'quit' to stop")

	stdin := &eofReader{r: deps.Stdin}
	ui := &input.UI{Writer: deps.Stdout, Reader: stdin}
	for {
		fmt.Fprintln(deps.Stdout)
		question, err := ui.Ask("You", &input.Options{HideOrder: true})
		question = strings.TrimSpace(question)
		if err != nil || (question == "" && stdin.eof) {
			// End of input or an interrupt ends the conversation.
			fmt.Fprintln(deps.Stdout, "\nGoodbye!")
			return nil
		}
		if question == "" {
			continue
		}
		if q := strings.ToLower(question); q == "exit" || q == "quit" {
			fmt.Fprintln(deps.Stdout, "Goodbye!")
			return nil
		}

		answer, err := ask(deps, &webintel.AskRequest{
			Source:    c.Source,
			SessionID: session,
			Question:  question,
			Model:     c.Model,
		}, false)
		if err != nil {
			if deps.Ctx.Err() != nil {
				fmt.Fprintln(deps.Stdout, "\nInterrupted. Goodbye!")
				return nil
			}
			// Conflicting or missing sources will not fix themselves.
			switch webintel.ErrorCode(err) {
			case webintel.ECONFLICT, webintel.ENOTFOUND:
				return reportError(deps, err, hintFor(err, deps.Config))
			}
			fmt.Fprintf(deps.Stderr, "error: %s\n", webintel.ErrorMessage(err))
			if hint := hintFor(err, deps.Config); hint != "" {
				fmt.Fprintf(deps.Stderr, "hint: %s\n", hint)
			}
			continue
		}
		fmt.Fprintf(deps.Stdout, "Assistant: %s\n", answer.Text)
	}
}

// eofReader records whether the wrapped reader has reached EOF, which
// go-input reports as an empty answer.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof = true
	}
	return n, err
}
