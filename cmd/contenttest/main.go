// cmd/contenttest/main.go
package main

import (
	"fmt"
	"os"

	"content-testing-workers/internal/cli"
	"content-testing-workers/internal/cli/commands"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "contenttest",
		Short:         "Check content tests against edited problems",
		Long:          `Rematch, grade and inspect content tests from a local suite file without a workflow engine or database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags cli.Flags
	commands.NewCommands(&flags).Register(rootCmd, &flags)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
