package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/clinical-mcp/internal/app"
	"github.com/dshills/clinical-mcp/internal/config"
)

var (
	envFile string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clinical-mcp",
	Short: "Clinical intelligence MCP server",
	Long: `clinical-mcp exposes clinical summarization tools over the Model Context Protocol.

TOOLS:

  getSummaryFromDB     summarize the latest discharge note from the local store
  getSummaryFromFHIR   summarize a patient record from a FHIR R4 server
  searchGuidelines     look up clinical guidelines by topic

QUICK START:

  $ clinical-mcp import notes NOTEEVENTS.csv     # Load MIMIC-III notes
  $ clinical-mcp serve                           # HTTP on :3000, MCP at /mcp
  $ TRANSPORT=stdio clinical-mcp serve           # MCP over stdio
  $ clinical-mcp summary db 109                  # One-shot summary as JSON

CONFIGURATION:

  Settings come from the environment and an optional .env file. The most
  common are DB_PATH, FHIR_BASE_URL, LLM_PROVIDER (openai, ollama, echo),
  OPENAI_API_KEY and OLLAMA_MODEL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.LoadFile(envFile)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger = app.NewLogger(cfg, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to read settings from")
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
