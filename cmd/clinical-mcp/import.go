package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/clinical-mcp/internal/app"
	"github.com/dshills/clinical-mcp/internal/importer"
)

var (
	importBatchSize int
	importCategory  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load notes or guidelines into the local SQLite store",
}

var importNotesCmd = &cobra.Command{
	Use:   "notes <NOTEEVENTS.csv>",
	Short: "Import a MIMIC-III NOTEEVENTS CSV export",
	Long: `Import a MIMIC-III NOTEEVENTS CSV export into DB_PATH.

Columns are matched by header name. SUBJECT_ID, CATEGORY and TEXT are
required; ROW_ID, HADM_ID, CHARTDATE, DESCRIPTION and ISERROR are used when
present. Rows flagged ISERROR=1 are skipped, and rows whose ROW_ID already
exists are left untouched, so re-running an import is safe.

EXAMPLES:

  clinical-mcp import notes NOTEEVENTS.csv
  clinical-mcp import notes NOTEEVENTS.csv --category "Discharge summary"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		store, err := app.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		stats, err := importer.New(store, logger).ImportNotes(cmd.Context(), f, &importer.Config{
			BatchSize: importBatchSize,
			Category:  importCategory,
		})
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		printStatistics(cmd, "notes", stats)
		return nil
	},
}

var importGuidelinesCmd = &cobra.Command{
	Use:   "guidelines <guidelines.json>",
	Short: "Import a JSON array of guidelines",
	Long: `Import a JSON array of guidelines into DB_PATH. Existing guidelines with
the same guidelineId are replaced. Serve them with GUIDELINE_SOURCE=store.

Each entry needs guidelineId, topic and title; source and url are optional:

  [{"guidelineId": "GUID-HTN-01", "topic": "hypertension", "title": "..."}]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		store, err := app.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		stats, err := importer.New(store, logger).ImportGuidelines(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		printStatistics(cmd, "guidelines", stats)
		return nil
	},
}

func printStatistics(cmd *cobra.Command, what string, stats *importer.Statistics) {
	out := cmd.OutOrStdout()
	faint := color.New(color.Faint)

	fmt.Fprintln(out, color.GreenString("✓ Imported %d %s", stats.Inserted, what))
	fmt.Fprintf(out, "  rows read:  %d\n", stats.Rows)
	if stats.Duplicates > 0 {
		fmt.Fprintf(out, "  duplicates: %d\n", stats.Duplicates)
	}
	if stats.Skipped > 0 {
		fmt.Fprintln(out, color.YellowString("  skipped:    %d", stats.Skipped))
		for _, msg := range stats.ErrorMessages {
			fmt.Fprintln(out, faint.Sprintf("    %s", msg))
		}
	}
	fmt.Fprintln(out, faint.Sprintf("  %s into %s", stats.Duration.Round(time.Millisecond), cfg.DBPath))
}

func init() {
	importNotesCmd.Flags().IntVar(&importBatchSize, "batch-size", importer.DefaultBatchSize, "notes per transaction")
	importNotesCmd.Flags().StringVar(&importCategory, "category", "", "only import notes of this CATEGORY")

	importCmd.AddCommand(importNotesCmd)
	importCmd.AddCommand(importGuidelinesCmd)
	rootCmd.AddCommand(importCmd)
}
