// Command exprlint validates user-authored formula expressions against
// declarative rule schemas.
package main

import (
	"fmt"
	"os"

	"github.com/openalpha/exprlint/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
