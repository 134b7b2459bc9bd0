package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/clinical-mcp/internal/app"
	"github.com/dshills/clinical-mcp/internal/config"
)

const shutdownTimeout = 10 * time.Second

var serveTransport string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the MCP server.

With the http transport (default) the server listens on PORT and serves:

  /                 liveness text
  /health           store and model status
  /mcp              streamable MCP endpoint
  /api/...          REST passthrough for the tools
  /openapi.json     OpenAPI document for the REST routes

With the stdio transport MCP messages are exchanged on stdin/stdout and all
logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveTransport != "" {
			cfg.Transport = serveTransport
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				logger.Error().Err(err).Msg("shutdown cleanup failed")
			}
		}()

		logger.Info().
			Str("version", version).
			Str("transport", cfg.Transport).
			Msg("Clinical-Intelligence-Server starting")

		if cfg.Transport == config.TransportStdio {
			return serveStdio(a)
		}
		return serveHTTP(a)
	},
}

func serveHTTP(a *app.App) error {
	srv := a.HTTPServer()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("received signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func serveStdio(a *app.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.MCP.ServeStdio(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "override TRANSPORT (http or stdio)")
	rootCmd.AddCommand(serveCmd)
}
