// Command research-cli is the operator-facing front end for the research
// agent: it can run a question directly in-process (no server required)
// or drive a running cmd/research-server over HTTP. Cobra subcommands
// mirror the teacher's single-binary-many-tools layout (cmd/test_parser,
// cmd/test_summarizer), generalized into a proper CLI now that go.mod
// already commits to spf13/cobra.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "research-cli",
		Short: "Run and inspect deep-research agent sessions",
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newListCommand())
	root.AddCommand(newGetCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
