package main

import (
	"fmt"
	"text/tabwriter"
	"time"
)

// Run executes the sessions command.
func (c *SessionsCmd) Run(deps *Dependencies) error {
	sessions, err := deps.Sessions.ListSessions(deps.Ctx)
	if err != nil {
		return reportError(deps, err, hintFor(err, deps.Config))
	}

	if len(sessions) == 0 {
		fmt.Fprintln(deps.Stdout, "No sessions found. Use 'webintel ask --session <id>' or 'webintel chat' to start one.")
		return nil
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTURNS\tUPDATED\tSOURCE")
	for _, s := range sessions {
		source := s.SourceFile
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.ID, len(s.Turns), s.UpdatedAt.Local().Format(time.DateTime), source)
	}
	return w.Flush()
}
