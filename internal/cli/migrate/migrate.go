package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"novelhub/internal/cli"
	"novelhub/pkg/database"
	"novelhub/pkg/logger"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database schema commands",
	Long:  "Apply, roll back or inspect the PostgreSQL comment schema",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, database.Up)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, database.Down)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := database.NewDB(database.FromConfig(cfg.Database))
		if err != nil {
			return err
		}
		defer db.Close()

		version, dirty, err := database.Version(db, cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "version %d", version)
		if dirty {
			fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func run(cmd *cobra.Command, direction database.Direction) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewDB(database.FromConfig(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.MigrationsPath, direction); err != nil {
		return err
	}

	logger.Infof("Migrations %s complete", direction)
	return nil
}

func init() {
	MigrateCmd.AddCommand(upCmd, downCmd, versionCmd)
}
