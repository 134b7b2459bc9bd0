package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/clinical-mcp/internal/app"
	"github.com/dshills/clinical-mcp/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the local SQLite schema",
	Long: `Manage the schema of the SQLite store at DB_PATH.

Opening the store applies pending migrations, so "migrate up" is only
needed to prepare a database ahead of time.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := storage.ApplyMigrations(cmd.Context(), store.DB()); err != nil {
			return err
		}
		current, err := storage.CurrentVersion(cmd.Context(), store.DB())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Schema at version %s", current))
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := storage.RollbackMigration(cmd.Context(), store.DB()); err != nil {
			return err
		}
		current, err := storage.CurrentVersion(cmd.Context(), store.DB())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("✗ Rolled back, schema at version %s", current))
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema version and row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		fmt.Fprintln(out, faint.Sprint(cfg.DBPath))
		if status.Health.SchemaCurrent {
			fmt.Fprintln(out, color.GreenString("✓ Schema version %s", status.SchemaVersion))
		} else {
			fmt.Fprintln(out, color.YellowString("⚠ Schema version %s (latest %s)", status.SchemaVersion, storage.CurrentSchemaVersion))
		}
		fmt.Fprintf(out, "  notes:             %d\n", status.NotesCount)
		fmt.Fprintf(out, "  discharge notes:   %d\n", status.DischargeNotesCount)
		fmt.Fprintf(out, "  guidelines:        %d\n", status.GuidelinesCount)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
