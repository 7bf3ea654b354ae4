// Package commands implements the bugline command line interface.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/cli/styles"
	"github.com/bugline/bugline/config"
)

var (
	configPath string
	noColor    bool
)

// NewRootCommand creates the root bugline command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "bugline",
		Short: "Collaborative bug tracker",
		Long: `Bugline is a collaborative bug tracker built on an event-sourced core.

Every change to a bug, user, or tag is recorded as a domain event in an
append-only store, with read models projected off the event stream.`,
		Version:       bugline.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				styles.DisableColors()
			}
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the config file")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewInitCommand(),
		NewDiagnoseCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.FormatError(err.Error()))
		os.Exit(1)
	}
}
