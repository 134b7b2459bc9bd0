package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/clinical-mcp/internal/app"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run a summary tool once and print its JSON result",
}

var summaryDBCmd = &cobra.Command{
	Use:   "db <patientId>",
	Short: "Summarize the latest discharge note from the local store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			return printJSON(cmd.OutOrStdout(), a.MCP.SummaryFromDB(cmd.Context(), args[0]))
		})
	},
}

var summaryFHIRCmd = &cobra.Command{
	Use:   "fhir <patientId>",
	Short: "Summarize a patient record from the FHIR server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			return printJSON(cmd.OutOrStdout(), a.MCP.SummaryFromFHIR(cmd.Context(), args[0]))
		})
	},
}

var guidelinesCmd = &cobra.Command{
	Use:   "guidelines <topic>",
	Short: "Search clinical guidelines by topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			return printJSON(cmd.OutOrStdout(), a.MCP.SearchGuidelines(cmd.Context(), args[0]))
		})
	},
}

// withApp runs fn against a fully wired application
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	return fn(a)
}

func init() {
	summaryCmd.AddCommand(summaryDBCmd)
	summaryCmd.AddCommand(summaryFHIRCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(guidelinesCmd)
}
