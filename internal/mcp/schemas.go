package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names
const (
	ToolGetSummaryFromDB   = "getSummaryFromDB"
	ToolGetSummaryFromFHIR = "getSummaryFromFHIR"
	ToolSearchGuidelines   = "searchGuidelines"
)

// getSummaryFromDBTool returns the tool definition for getSummaryFromDB
func getSummaryFromDBTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolGetSummaryFromDB,
		Description: "Summarize the most recent discharge note for a patient from the local clinical notes store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"patientId": map[string]interface{}{
					"type":        "string",
					"description": "Patient identifier (SUBJECT_ID in the notes store)",
				},
			},
			Required: []string{"patientId"},
		},
	}
}

// getSummaryFromFHIRTool returns the tool definition for getSummaryFromFHIR
func getSummaryFromFHIRTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolGetSummaryFromFHIR,
		Description: "Summarize a patient's demographics, active conditions and recent observations from a FHIR R4 server",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"patientId": map[string]interface{}{
					"type":        "string",
					"description": "FHIR Patient resource id",
				},
			},
			Required: []string{"patientId"},
		},
	}
}

// searchGuidelinesTool returns the tool definition for searchGuidelines
func searchGuidelinesTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolSearchGuidelines,
		Description: "Find clinical practice guidelines whose topic contains the given keyword (case-insensitive)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Topic keyword, e.g. \"hypertension\"",
				},
			},
			Required: []string{"topic"},
		},
	}
}
