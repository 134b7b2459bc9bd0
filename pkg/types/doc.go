// Package types provides shared type definitions for the clinical MCP server.
//
// This package defines the domain types passed between the record store, the
// remote health-record client, the narrative builder and the tool handlers.
//
// # Core Types
//
// ClinicalNote is one row from the local note store:
//
//	note := &types.ClinicalNote{
//	    SubjectID: "109",
//	    Category:  types.DischargeSummaryCategory,
//	    Text:      "Patient recovering well...",
//	}
//
// PatientRecord, ConditionEntry and ObservationEntry describe data read from
// a FHIR server. They are transient: nothing in this package is persisted
// except ClinicalNote and Guideline.
//
// ObservationEntry keeps numeric values as raw text in Quantity.RawValue.
// Formatting (and falling back to the raw value when it does not parse) is the
// narrative builder's job.
//
// # Errors
//
// ErrNotFound and ErrUpstream are the two failure kinds every component maps
// its own errors onto, so callers can branch with errors.Is.
package types
