package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/clinical-mcp/internal/clinical"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// handleGetSummaryFromDB handles the getSummaryFromDB tool invocation
func (s *Server) handleGetSummaryFromDB(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID, err := stringArg(request, "patientId")
	if err != nil {
		return nil, err
	}

	result := s.SummaryFromDB(ctx, patientID)
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetSummaryFromFHIR handles the getSummaryFromFHIR tool invocation
func (s *Server) handleGetSummaryFromFHIR(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID, err := stringArg(request, "patientId")
	if err != nil {
		return nil, err
	}

	result := s.SummaryFromFHIR(ctx, patientID)
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleSearchGuidelines handles the searchGuidelines tool invocation
func (s *Server) handleSearchGuidelines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := stringArg(request, "topic")
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(formatJSON(s.SearchGuidelines(ctx, topic))), nil
}

// SummaryFromDB is the getSummaryFromDB result body
func (s *Server) SummaryFromDB(ctx context.Context, patientID string) clinical.SummaryResult {
	s.logger.Debug().Str("tool", ToolGetSummaryFromDB).Str("patient_id", patientID).Msg("tool call")
	return s.service.SummaryFromDB(ctx, patientID)
}

// SummaryFromFHIR is the getSummaryFromFHIR result body
func (s *Server) SummaryFromFHIR(ctx context.Context, patientID string) clinical.SummaryResult {
	s.logger.Debug().Str("tool", ToolGetSummaryFromFHIR).Str("patient_id", patientID).Msg("tool call")
	return s.service.SummaryFromFHIR(ctx, patientID)
}

// SearchGuidelines is the searchGuidelines result body: the matching
// guidelines, or {"error": message} when none match.
func (s *Server) SearchGuidelines(ctx context.Context, topic string) interface{} {
	s.logger.Debug().Str("tool", ToolSearchGuidelines).Str("topic", topic).Msg("tool call")

	matches, err := s.guidelines.Search(ctx, topic)
	if err != nil {
		s.logger.Info().Err(err).Str("topic", topic).Msg("guideline search returned no results")
		return map[string]interface{}{
			"error": err.Error(),
		}
	}
	return matches
}

// stringArg extracts a required string argument. An empty string is passed
// through so the tool body can answer it as data.
func stringArg(request mcp.CallToolRequest, name string) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	raw, present := args[name]
	if !present {
		return "", newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("%s parameter is required", name), map[string]interface{}{
			"param":  name,
			"reason": "missing",
		})
	}

	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		// Numeric patient identifiers are common in MIMIC-III
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("%s must be a string", name), map[string]interface{}{
			"param":  name,
			"reason": fmt.Sprintf("unexpected type %T", raw),
		})
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a result as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(bytes)
}
