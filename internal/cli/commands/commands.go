// internal/cli/commands/commands.go
package commands

import (
	"context"
	"fmt"
	"io"

	"content-testing-workers/internal/cli"
	"content-testing-workers/internal/common/logger"
	"content-testing-workers/internal/contenttest"
	"content-testing-workers/internal/problem"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Commands holds all CLI commands
type Commands struct {
	Hash    *HashCommand
	Rematch *RematchCommand
	Run     *RunCommand
	Video   *VideoCommand
}

func NewCommands(flags *cli.Flags) *Commands {
	return &Commands{
		Hash:    &HashCommand{flags: flags},
		Rematch: &RematchCommand{flags: flags},
		Run:     &RunCommand{flags: flags},
		Video:   &VideoCommand{flags: flags},
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags) {
	hashCmd := &cobra.Command{
		Use:   "hash <problem.xml>",
		Short: "Print the structural hash of every response",
		Long:  "Parse a problem and list its responses with their inputs and structural hashes",
		Args:  cobra.ExactArgs(1),
		RunE:  c.Hash.Execute,
	}
	hashCmd.Flags().StringVarP(&flags.Location, "location", "l", "i4x://local/problem/problem", "Content location used to derive identifiers")
	rootCmd.AddCommand(hashCmd)

	rematchCmd := &cobra.Command{
		Use:   "rematch <suite.yaml>",
		Short: "Rematch a suite's tests against the revised problems",
		Long:  "Create every test against the original problem, swap in the revisions and show where each answer ended up",
		Args:  cobra.ExactArgs(1),
		RunE:  c.Rematch.Execute,
	}
	rootCmd.AddCommand(rematchCmd)

	runCmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Grade a suite's tests and report verdicts",
		Long:  "Create every test, apply problem revisions, grade the answers with a remote grader and compare against the expectations",
		Args:  cobra.ExactArgs(1),
		RunE:  c.Run.Execute,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.GraderURL == "" {
				return fmt.Errorf("--grader-url is required")
			}
			return nil
		},
	}
	runCmd.Flags().StringVarP(&flags.GraderURL, "grader-url", "g", "", "Base URL of the grading service")
	runCmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Per-request grading timeout (default 10s)")
	runCmd.Flags().IntVarP(&flags.Concurrency, "concurrency", "c", 4, "Tests graded at once per problem")
	rootCmd.AddCommand(runCmd)

	videoCmd := &cobra.Command{
		Use:   "video <descriptor.xml>",
		Short: "Parse a video descriptor",
		Long:  "Parse a videoalpha descriptor and print its settings with the player context",
		Args:  cobra.ExactArgs(1),
		RunE:  c.Video.Execute,
	}
	videoCmd.Flags().StringVar(&flags.HTMLID, "id", "video", "HTML id for the player context")
	videoCmd.Flags().BoolVar(&flags.Preview, "preview", false, "Disable autoplay as in a studio preview")
	videoCmd.Flags().StringVarP(&flags.Format, "format", "f", "yaml", "Output format: yaml or xml")
	rootCmd.AddCommand(videoCmd)
}

// namedTest pairs a suite test with the id the store gave it.
type namedTest struct {
	name string
	id   string
}

// session is an in-memory store loaded with a suite's tests.
type session struct {
	suite   *cli.Suite
	source  *problem.StaticSource
	service *contenttest.Service
	tests   []namedTest
}

func openSession(ctx context.Context, path string, grader contenttest.Grader, cfg contenttest.Config) (*session, error) {
	suite, err := cli.LoadSuite(path)
	if err != nil {
		return nil, err
	}
	src, err := suite.Original()
	if err != nil {
		return nil, err
	}
	if grader == nil {
		grader = contenttest.GraderFunc(func(context.Context, string, contenttest.Answers) (contenttest.CorrectMap, error) {
			return nil, fmt.Errorf("no grader configured")
		})
	}
	cfg.PreserveOnSlotChange = true
	svc := contenttest.NewService(cfg, contenttest.NewMemoryRepository(), problem.NewProvider(src), grader, logger.NewNoOpLogger())

	s := &session{suite: suite, source: src, service: svc}
	for i, in := range suite.NewTestCases() {
		tc, err := svc.Create(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", suite.Tests[i].Name, err)
		}
		s.tests = append(s.tests, namedTest{name: displayName(suite.Tests[i].Name, i), id: tc.ID})
	}
	return s, nil
}

func displayName(name string, i int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("test %d", i+1)
}

func verdictColor(v contenttest.Verdict) *color.Color {
	switch v {
	case contenttest.VerdictPass:
		return color.New(color.FgGreen, color.Bold)
	case contenttest.VerdictFail:
		return color.New(color.FgRed, color.Bold)
	case contenttest.VerdictError:
		return color.New(color.FgMagenta, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}

func heading(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, format+"\n", args...)
}
