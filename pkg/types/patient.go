package types

import "strings"

// PatientRecord holds demographics fetched from the remote health-record API.
// It is transient and never persisted.
type PatientRecord struct {
	ID         string
	GivenNames []string
	FamilyName string
	BirthDate  string
}

// FullName joins given names and family name. Returns "" when neither is known.
func (p PatientRecord) FullName() string {
	parts := make([]string, 0, len(p.GivenNames)+1)
	for _, g := range p.GivenNames {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, g)
		}
	}
	if f := strings.TrimSpace(p.FamilyName); f != "" {
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

// ConditionEntry is an active clinical condition
type ConditionEntry struct {
	Description string
}

// Quantity is a measured observation value. RawValue keeps the value exactly
// as the remote API sent it so renderers can fall back to it.
type Quantity struct {
	RawValue string
	Unit     string
}

// ObservationEntry is a labelled numeric or coded observation
type ObservationEntry struct {
	Label             string
	Quantity          *Quantity // Nullable - coded observations carry CodedText instead
	CodedText         string
	EffectiveDateTime string
}

// IsNumeric reports whether the observation carries a quantity
func (o ObservationEntry) IsNumeric() bool {
	return o.Quantity != nil
}

// PatientBundle is the combined result of the remote patient, condition and
// observation reads. ConditionsErr and ObservationsErr record sub-fetches that
// degraded to an empty list.
type PatientBundle struct {
	Patient      PatientRecord
	Conditions   []ConditionEntry
	Observations []ObservationEntry

	ConditionsErr   error
	ObservationsErr error
}

// Degraded reports whether any sub-fetch failed
func (b *PatientBundle) Degraded() bool {
	return b.ConditionsErr != nil || b.ObservationsErr != nil
}
