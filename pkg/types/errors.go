package types

import "errors"

// Domain errors shared across components
var (
	// ErrNotFound is returned when no record matches an identifier or query
	ErrNotFound = errors.New("not found")
	// ErrUpstream is returned when a storage, network or generation backend fails
	ErrUpstream = errors.New("upstream failure")

	// Input validation errors
	ErrEmptyPatientID = errors.New("patient ID cannot be empty")
	ErrEmptyTopic     = errors.New("topic cannot be empty")
	ErrEmptyNoteText  = errors.New("note text cannot be empty")
)
