// internal/cli/commands/run.go
package commands

import (
	"fmt"
	"time"

	"content-testing-workers/internal/cli"
	"content-testing-workers/internal/common/config"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/grading"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type RunCommand struct {
	flags *cli.Flags
}

func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	timeout := rc.flags.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	grader := grading.NewHTTPGrader(config.GraderConfig{
		BaseURL:    rc.flags.GraderURL,
		Timeout:    int(timeout.Milliseconds()),
		MaxRetries: 1,
	})

	s, err := openSession(ctx, args[0], grader, contenttest.Config{RunConcurrency: rc.flags.Concurrency})
	if err != nil {
		return err
	}
	if _, err := s.suite.ApplyRevisions(s.source); err != nil {
		return err
	}

	names := make(map[string]string, len(s.tests))
	for _, t := range s.tests {
		names[t.id] = t.name
	}

	w := cmd.OutOrStdout()
	var passed, total int
	for _, p := range s.suite.Problems {
		results, err := s.service.RunAll(ctx, p.Location)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Location, err)
		}
		if len(results) == 0 {
			continue
		}
		heading(w, "%s", p.Location)
		for _, r := range results {
			total++
			if r.Verdict == contenttest.VerdictPass {
				passed++
			}
			verdictColor(r.Verdict).Fprintf(w, "  %-7s", r.Verdict)
			fmt.Fprintf(w, " %s (should be %s)\n", names[r.TestID], r.ShouldBe)
			if r.GradingError != "" {
				color.New(color.Faint).Fprintf(w, "          %s\n", r.GradingError)
			}
		}
	}

	summary := color.New(color.FgGreen, color.Bold)
	if passed != total {
		summary = color.New(color.FgRed, color.Bold)
	}
	summary.Fprintf(w, "%d/%d passed\n", passed, total)
	if passed != total {
		return fmt.Errorf("%d of %d tests did not pass", total-passed, total)
	}
	return nil
}
