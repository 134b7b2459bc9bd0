package mcp

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/dshills/clinical-mcp/internal/clinical"
	"github.com/dshills/clinical-mcp/internal/guidelines"
)

const (
	// ServerName is the MCP server name
	ServerName = "Clinical-Intelligence-Server"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the clinical collaborators
type Server struct {
	mcp        *server.MCPServer
	service    *clinical.Service
	guidelines guidelines.Searcher
	logger     zerolog.Logger
}

// NewServer creates a new MCP server instance with all tools registered
func NewServer(service *clinical.Service, searcher guidelines.Searcher, logger zerolog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		mcp:        mcpServer,
		service:    service,
		guidelines: searcher,
		logger:     logger.With().Str("component", "mcp").Logger(),
	}
	s.registerTools()

	return s
}

// MCPServer exposes the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP on stdin/stdout and blocks until the client
// disconnects or ctx is done. Nothing else may write to stdout while it runs.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO serves newline-delimited JSON-RPC from in to out
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info().Msg("serving MCP over stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// HTTPHandler returns a stateless streamable HTTP handler for the server
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(getSummaryFromDBTool(), s.handleGetSummaryFromDB)
	s.mcp.AddTool(getSummaryFromFHIRTool(), s.handleGetSummaryFromFHIR)
	s.mcp.AddTool(searchGuidelinesTool(), s.handleSearchGuidelines)
}
