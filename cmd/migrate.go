package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lambda-feedback/scripthost/config"
	"github.com/lambda-feedback/scripthost/internal/store"
	"github.com/lambda-feedback/scripthost/util/conf"
	"github.com/lambda-feedback/scripthost/util/logging"
)

var (
	migrateCmdDescription = `The migrate command manages the schema of the invocation
journal. Migrations are embedded into the binary and applied
to the database configured with --database-url, using the
postgres driver.`
	migrateCmd = &cli.Command{
		Name:        "migrate",
		Usage:       "Manage the database schema.",
		Description: migrateCmdDescription,
		Subcommands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations.",
				Action: withMigrator((*store.Migrator).Up),
			},
			{
				Name:   "down",
				Usage:  "Revert all migrations.",
				Action: withMigrator((*store.Migrator).Down),
			},
			{
				Name:  "version",
				Usage: "Print the current schema version.",
				Action: withMigrator(func(m *store.Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Printf("version: %d, dirty: %t\n", version, dirty)
					return nil
				}),
			},
		},
	}
)

func withMigrator(fn func(*store.Migrator) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		log, err := logging.LoggerFromContext(ctx.Context)
		if err != nil {
			return err
		}

		cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
		if err != nil {
			return err
		}

		m, err := store.NewMigrator(cfg.Store.URL, log)
		if err != nil {
			return err
		}

		defer func() {
			if err := m.Close(); err != nil {
				log.Warn("failed to close migrator", zap.Error(err))
			}
		}()

		return fn(m)
	}
}

func init() {
	rootApp.Commands = append(rootApp.Commands, migrateCmd)
}
