package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fwojciec/webintel"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	req := &webintel.AskRequest{
		Source:    c.Source,
		SessionID: c.Session,
		Question:  c.Question,
		Model:     c.Model,
	}
	if c.Session != "" {
		if err := webintel.ValidateSessionID(c.Session); err != nil {
			return reportError(deps, err, "")
		}
	}

	answer, err := ask(deps, req, c.Stream)
	if err != nil {
		return reportError(deps, err, hintFor(err, deps.Config))
	}

	if !c.Stream {
		fmt.Fprintln(deps.Stdout, answer.Text)
	}
	printAnswerMeta(deps.Stderr, answer)

	if c.Session != "" {
		fmt.Fprintf(deps.Stderr, "Session: %s\n", c.Session)
		fmt.Fprintf(deps.Stderr, "Continue: webintel ask \"follow-up question\" -s %s --session %s\n", c.Source, c.Session)
	}
	return nil
}

// ask runs one question, streaming tokens to stdout or showing a spinner
// on a terminal while the full answer is generated.
func ask(deps *Dependencies, req *webintel.AskRequest, stream bool) (*webintel.Answer, error) {
	if stream {
		answer, err := deps.Asker.Stream(deps.Ctx, req, func(token string) error {
			_, err := io.WriteString(deps.Stdout, token)
			return err
		})
		fmt.Fprintln(deps.Stdout)
		return answer, err
	}

	if deps.Terminal {
		s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(deps.Stderr))
		s.Suffix = " Thinking..."
		s.Start()
		defer s.Stop()
	}
	return deps.Asker.Ask(deps.Ctx, req)
}

func printAnswerMeta(w io.Writer, answer *webintel.Answer) {
	tokens := "N/A"
	if answer.Tokens > 0 {
		tokens = fmt.Sprint(answer.Tokens)
	}
	note := ""
	if answer.Prompt != nil && answer.Prompt.SourceTruncated {
		note = " | source truncated to fit the context window"
	}
	fmt.Fprintf(w, "Model: %s | Tokens: %s%s\n", answer.Model, tokens, note)
}
