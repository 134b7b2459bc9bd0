// Package httpapi serves the MCP endpoint and a small REST surface over echo.
//
// Routes:
//
//	GET  /                                  liveness text
//	GET  /health                            store ping plus active provider and model
//	ANY  /mcp                               streamable MCP transport
//	GET  /api/patients/:patientId/summary/db
//	GET  /api/patients/:patientId/summary/fhir
//	GET  /api/guidelines?topic=
//	GET  /openapi.json
//
// The REST routes return the same bodies as the MCP tools with status 200,
// including fallback and not-found bodies. Only panics and unexpected errors
// produce a non-200 status, rendered as {"error": message}.
package httpapi
