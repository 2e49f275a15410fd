// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"time"

	"content-testing-workers/pkg/registry"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const defaultRegistryPath = "configs/activity-registry.json"

type updater struct {
	path string
	now  func() time.Time
	out  io.Writer
}

func main() {
	u := &updater{now: time.Now, out: os.Stdout}
	if err := u.rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (u *updater) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "registry-updater",
		Short:         "Maintain the activity registry read by the worker manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&u.path, "path", "p", defaultRegistryPath, "Path to registry file")
	root.AddCommand(u.addCmd(), u.updateCmd(), u.validateCmd(), u.listCmd())
	return root
}

func (u *updater) addCmd() *cobra.Command {
	var (
		a          registry.Activity
		schemaFile string
	)
	cmd := &cobra.Command{
		Use:     "add <id>",
		Short:   "Add a task type to the registry",
		Example: `  registry-updater add run-content-test --display-name "Run Content Test" --input-schema schemas/run.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.ID = args[0]
			if a.TaskType == "" {
				a.TaskType = a.ID
			}
			a.InputSchema = map[string]interface{}{"type": "object"}
			if schemaFile != "" {
				schema, err := readSchema(schemaFile)
				if err != nil {
					return err
				}
				a.InputSchema = schema
			}

			reg, err := u.load(true)
			if err != nil {
				return err
			}
			if err := reg.Add(a); err != nil {
				return err
			}
			if err := reg.Save(u.path, u.now()); err != nil {
				return err
			}
			fmt.Fprintf(u.out, "added %s\n", a.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.DisplayName, "display-name", "", "Display name")
	f.StringVar(&a.Description, "description", "", "Description")
	f.StringVar(&a.Category, "category", "content-testing", "Category")
	f.StringVar(&a.TaskType, "task-type", "", "Zeebe task type (defaults to the id)")
	f.StringVar(&a.Version, "version", "1.0.0", "Version")
	f.StringVar(&a.ImplementationStatus, "status", "planned", "planned, in-progress or implemented")
	f.StringVar(&a.Timeout, "timeout", "30s", "Job timeout")
	f.IntVar(&a.Retries, "retries", 3, "Job retries")
	f.StringSliceVar(&a.ErrorCodes, "error-codes", nil, "Error codes the worker may raise")
	f.StringVar(&schemaFile, "input-schema", "", "JSON schema file for the job variables")
	_ = cmd.MarkFlagRequired("display-name")
	return cmd
}

func (u *updater) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "update <id> <field> <value>",
		Short:   "Change one field of a registered activity",
		Example: "  registry-updater update run-content-test status implemented",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := u.load(false)
			if err != nil {
				return err
			}
			if err := reg.Set(args[0], args[1], args[2]); err != nil {
				return err
			}
			if err := reg.Save(u.path, u.now()); err != nil {
				return err
			}
			fmt.Fprintf(u.out, "updated %s: %s = %s\n", args[0], args[1], args[2])
			return nil
		},
	}
}

func (u *updater) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := u.load(false)
			if err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(u.out, "%s %d activities\n", color.GreenString("valid:"), len(reg.Activities))
			return nil
		},
	}
}

func (u *updater) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered task types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := u.load(false)
			if err != nil {
				return err
			}
			acts := append([]registry.Activity(nil), reg.Activities...)
			sort.Slice(acts, func(i, j int) bool { return acts[i].TaskType < acts[j].TaskType })
			for _, a := range acts {
				status := color.YellowString("%-12s", a.ImplementationStatus)
				if a.Implemented() {
					status = color.GreenString("%-12s", a.ImplementationStatus)
				}
				fmt.Fprintf(u.out, "%-28s %s %5s  retries=%d\n", a.TaskType, status, a.Timeout, a.Retries)
			}
			return nil
		},
	}
}

// load reads the registry at u.path. With create set a missing file yields
// an empty registry.
func (u *updater) load(create bool) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(u.path)
	if err != nil {
		if create && errors.Is(err, fs.ErrNotExist) {
			return &registry.ActivityRegistry{Version: "1.0.0"}, nil
		}
		return nil, err
	}
	return reg, nil
}

func readSchema(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return schema, nil
}
