// Package app wires configuration, storage, the FHIR client, the summarizer
// and the guideline source into a running clinical MCP server.
package app
