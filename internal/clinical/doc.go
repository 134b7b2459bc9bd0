// Package clinical orchestrates the two patient summary pipelines: the
// local discharge note path and the remote health-record path.
//
// Neither pipeline returns an error. Every expected failure is mapped
// through the FallbackKind table to a SummaryResult carrying a readable
// message, and the underlying error is logged.
package clinical
