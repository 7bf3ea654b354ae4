package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/cli/styles"
	"github.com/bugline/bugline/cli/ui"
	"github.com/bugline/bugline/config"
)

// NewDiagnoseCommand creates the diagnose command: it checks every
// external dependency the current config points at.
func NewDiagnoseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Check configuration and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			fmt.Print(ui.Banner(bugline.Version()))
			fmt.Println(styles.FormatKeyValue("config", configPath))
			fmt.Println(styles.FormatKeyValue("listen address", cfg.Server.Addr))
			fmt.Println(styles.FormatKeyValue("database driver", cfg.Database.Driver))
			fmt.Println(styles.FormatKeyValue("log level", cfg.Logging.Level))
			fmt.Println()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			var items []ui.CheckItem
			items = append(items, checkDatabase(ctx, cfg))
			if cfg.Redis.Addr != "" {
				items = append(items, checkRedis(ctx, cfg))
			} else {
				items = append(items, ui.CheckItem{Label: "redis", Detail: "disabled"})
			}
			fmt.Print(ui.Checklist(items))

			for _, it := range items {
				if it.Err != nil {
					return fmt.Errorf("diagnose found problems")
				}
			}
			return nil
		},
	}
}

func checkDatabase(ctx context.Context, cfg config.Config) ui.CheckItem {
	item := ui.CheckItem{Label: "database"}
	if cfg.Database.Driver != "postgres" {
		item.Detail = "memory driver"
		return item
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		item.Err = err
		return item
	}
	defer db.Close() //nolint:errcheck

	if err := db.PingContext(ctx); err != nil {
		item.Err = err
		return item
	}

	var events int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s.event_store`, cfg.Database.Schema)
	switch err := db.QueryRowContext(ctx, query).Scan(&events); err {
	case nil:
		item.Detail = fmt.Sprintf("%d events stored", events)
	default:
		item.Detail = "reachable, schema not migrated"
	}
	return item
}

func checkRedis(ctx context.Context, cfg config.Config) ui.CheckItem {
	item := ui.CheckItem{Label: "redis"}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close() //nolint:errcheck

	if err := client.Ping(ctx).Err(); err != nil {
		item.Err = err
		return item
	}
	item.Detail = cfg.Redis.Addr
	return item
}
