// Package mcp implements the Model Context Protocol (MCP) server for the
// clinical intelligence tools.
//
// The server exposes three tools:
//   - getSummaryFromDB: summarize a patient's latest discharge note from the local store
//   - getSummaryFromFHIR: summarize a patient's record from a FHIR R4 server
//   - searchGuidelines: look up clinical practice guidelines by topic
//
// # Transports
//
// The same server can be served over stdio or mounted as a stateless
// streamable HTTP handler:
//
//	srv := mcp.NewServer(service, searcher, logger)
//	e.Any("/mcp", echo.WrapHandler(srv.HTTPHandler()))
//
// # Tool: getSummaryFromDB
//
//	Request:
//	{
//	  "name": "getSummaryFromDB",
//	  "arguments": {"patientId": "109"}
//	}
//
//	Response:
//	{
//	  "source": "local store",
//	  "patientId": "109",
//	  "ai_summary": "..."
//	}
//
// # Tool: getSummaryFromFHIR
//
//	Response:
//	{
//	  "source": "remote API",
//	  "patientId": "example",
//	  "patientName": "Peter James Chalmers",
//	  "ai_summary": "..."
//	}
//
// # Tool: searchGuidelines
//
//	Response:
//	[
//	  {
//	    "guidelineId": "GUID-HTN-01",
//	    "topic": "hypertension",
//	    "title": "2024 ACC/AHA Guideline for the Management of Hypertension"
//	  }
//	]
//
// # Error Handling
//
// Expected failures are data, not protocol errors. A summary that cannot be
// produced comes back as {"summary": "<fallback message>"}, and a topic with
// no matches as {"error": "No guidelines found for topic '<topic>'."}.
//
// Only malformed calls produce an MCP error:
//
//	-32602 (Invalid params): patientId or topic is missing or not a string
package mcp
