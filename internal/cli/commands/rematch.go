// internal/cli/commands/rematch.go
package commands

import (
	"fmt"

	"content-testing-workers/internal/cli"
	"content-testing-workers/internal/contenttest"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type RematchCommand struct {
	flags *cli.Flags
}

func (rc *RematchCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, args[0], nil, contenttest.Config{})
	if err != nil {
		return err
	}
	revised, err := s.suite.ApplyRevisions(s.source)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if revised == 0 {
		color.New(color.FgYellow).Fprintln(w, "no problem revisions in suite; checking against the originals")
	}

	for _, t := range s.tests {
		_, report, err := s.service.Rematch(ctx, t.id)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		heading(w, "%s: %s", t.name, report.Outcome)
		if report.Outcome == contenttest.OutcomeRematched {
			fmt.Fprintf(w, "  matched %d  preserved %d  created %d  deleted %d\n",
				report.Matched, report.Preserved, report.Created, report.Deleted)
		}

		summary, err := s.service.Summary(ctx, t.id)
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		for _, in := range summary.Inputs {
			answer := in.Answer
			if answer == "" {
				answer = color.New(color.Faint).Sprint("(blank)")
			}
			fmt.Fprintf(w, "  %s = %s\n", in.ID, answer)
		}
	}
	return nil
}
