package main

import (
	"fmt"
	"runtime"
)

// Run executes the version command.
func (c *VersionCmd) Run(deps *Dependencies) error {
	fmt.Fprintf(deps.Stdout, "webintel %s (%s, %s)\n", version, commit, runtime.Version())
	return nil
}
