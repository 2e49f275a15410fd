// internal/cli/commands/hash.go
package commands

import (
	"fmt"
	"os"

	"content-testing-workers/internal/cli"
	"content-testing-workers/internal/problem"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type HashCommand struct {
	flags *cli.Flags
}

func (hc *HashCommand) Execute(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tree, err := problem.Parse(hc.flags.Location, string(data))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	heading(w, "%s (%d responses)", tree.ProblemID, len(tree.Responses))
	if len(tree.Responses) == 0 {
		color.New(color.FgYellow).Fprintln(w, "no gradable responses")
		return nil
	}
	for _, r := range tree.Responses {
		fmt.Fprintf(w, "%s  %s  <%s>\n", r.Hash(), r.ID, r.Element.Tag)
		for _, in := range r.Inputs {
			fmt.Fprintf(w, "    %s  <%s>\n", in.ID, in.Element.Tag)
		}
	}

	// Suite file skeleton for a new test of this problem.
	fmt.Fprintln(w)
	heading(w, "answers:")
	for _, id := range tree.InputIDs() {
		fmt.Fprintf(w, "  %s: \"\"\n", id)
	}
	return nil
}
