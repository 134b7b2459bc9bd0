package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/dshills/clinical-mcp/internal/clinical"
)

// RootMessage is the plain-text body of GET /
const RootMessage = "Clinical Intelligence MCP Server is running."

// healthTimeout bounds the store ping behind /health
const healthTimeout = 5 * time.Second

// Tools are the tool bodies shared with the MCP boundary
type Tools interface {
	SummaryFromDB(ctx context.Context, patientID string) clinical.SummaryResult
	SummaryFromFHIR(ctx context.Context, patientID string) clinical.SummaryResult
	SearchGuidelines(ctx context.Context, topic string) interface{}
}

// Pinger reports whether the note store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure the HTTP surface
type Options struct {
	Version     string
	StoreDriver string
	Provider    string
	Model       string
	CORSOrigins []string
}

// Server is the echo application serving MCP, health and REST routes
type Server struct {
	echo   *echo.Echo
	tools  Tools
	store  Pinger
	opts   Options
	logger zerolog.Logger
}

// New builds the router. mcpHandler is mounted at /mcp.
func New(tools Tools, mcpHandler http.Handler, store Pinger, opts Options, logger zerolog.Logger) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		tools:  tools,
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "http").Logger(),
	}
	e.HTTPErrorHandler = s.handleError

	// Global middleware. Recovery must stay inside Logger.
	e.Use(RequestID())
	e.Use(Logger(s.logger))
	e.Use(Recovery(s.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  opts.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Accept", RequestIDHeader, "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposeHeaders: []string{RequestIDHeader, "Mcp-Session-Id"},
	}))

	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.GET("/openapi.json", s.handleOpenAPI)
	if mcpHandler != nil {
		e.Any("/mcp", echo.WrapHandler(mcpHandler))
	}

	api := e.Group("/api")
	api.GET("/patients/:patientId/summary/db", s.handleSummaryFromDB)
	api.GET("/patients/:patientId/summary/fhir", s.handleSummaryFromFHIR)
	api.GET("/guidelines", s.handleSearchGuidelines)

	return s
}

// Handler exposes the router for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until the server stops. A graceful
// Shutdown makes it return nil.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting server")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, RootMessage)
}

func (s *Server) handleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":   "ok",
		"store":    s.opts.StoreDriver,
		"provider": s.opts.Provider,
		"model":    s.opts.Model,
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) handleOpenAPI(c echo.Context) error {
	return c.JSON(http.StatusOK, OpenAPI(s.opts.Version))
}

func (s *Server) handleSummaryFromDB(c echo.Context) error {
	result := s.tools.SummaryFromDB(c.Request().Context(), c.Param("patientId"))
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummaryFromFHIR(c echo.Context) error {
	result := s.tools.SummaryFromFHIR(c.Request().Context(), c.Param("patientId"))
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleSearchGuidelines(c echo.Context) error {
	result := s.tools.SearchGuidelines(c.Request().Context(), c.QueryParam("topic"))
	return c.JSON(http.StatusOK, result)
}

// handleError renders every error as {"error": message}. Errors that are not
// echo.HTTPError map to 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := err.Error()

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else if httpErr.Internal != nil {
			message = httpErr.Internal.Error()
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", requestID(c)).Msg("request failed")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, map[string]string{"error": message})
	}
	if writeErr != nil {
		s.logger.Error().Err(writeErr).Msg("failed to write error response")
	}
}
