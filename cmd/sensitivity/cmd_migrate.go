package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sensitivity.report/internal/config"
	"github.com/banshee-data/sensitivity.report/internal/db"
)

func (a *app) migrateCmd() *cobra.Command {
	var storePath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the experiment store schema",
	}
	cmd.PersistentFlags().StringVar(&storePath, "store", config.DefaultStorePath, "Experiment store database")

	// Open without migrating so down and force work on any schema state.
	withDB := func(fn func(cmd *cobra.Command, database *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(storePath)
			if err != nil {
				return fmt.Errorf("open store %s: %w", storePath, err)
			}
			defer database.Close()
			return fn(cmd, database, args)
		}
	}

	printVersion := func(cmd *cobra.Command, database *db.DB) error {
		v, dirty, err := database.MigrateVersion()
		if err != nil {
			return err
		}
		latest, err := db.LatestMigrationVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (latest %d, dirty %t)\n", v, latest, dirty)
		return nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, database *db.DB, _ []string) error {
			if err := database.MigrateUp(); err != nil {
				return err
			}
			return printVersion(cmd, database)
		}),
	}
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, database *db.DB, _ []string) error {
			if err := database.MigrateDown(); err != nil {
				return err
			}
			return printVersion(cmd, database)
		}),
	}
	status := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, database *db.DB, _ []string) error {
			return printVersion(cmd, database)
		}),
	}
	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations, clearing the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, database *db.DB, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			if err := database.MigrateForce(v); err != nil {
				return err
			}
			return printVersion(cmd, database)
		}),
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}
