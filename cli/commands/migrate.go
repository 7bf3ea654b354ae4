package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bugline/bugline/adapters/postgres"
	"github.com/bugline/bugline/cli/styles"
	"github.com/bugline/bugline/cli/ui"
	"github.com/bugline/bugline/config"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				fmt.Println(styles.FormatInfo("memory driver needs no migrations"))
				return nil
			}

			model := ui.NewSpinner("applying schema " + cfg.Database.Schema)
			prog := tea.NewProgram(model)

			go func() {
				err := runMigrate(cmd, cfg)
				if err != nil {
					prog.Send(ui.SpinnerDoneMsg{Err: err})
					return
				}
				prog.Send(ui.SpinnerDoneMsg{Result: "schema " + cfg.Database.Schema + " is up to date"})
			}()

			final, err := prog.Run()
			if err != nil {
				return err
			}
			if m, ok := final.(ui.SpinnerModel); ok {
				return m.Err()
			}
			return nil
		},
	}
}

func runMigrate(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	store, err := postgres.Open(ctx, cfg.Database.URL, postgres.WithSchema(cfg.Database.Schema))
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck
	return store.Migrate(ctx)
}
