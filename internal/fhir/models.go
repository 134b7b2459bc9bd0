package fhir

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FHIR R4 constants used by the client
const (
	MediaTypeFHIRJSON = "application/fhir+json"

	ResourcePatient     = "Patient"
	ResourceCondition   = "Condition"
	ResourceObservation = "Observation"
	ResourceBundle      = "Bundle"

	// ConditionClinicalStatus codes
	ConditionActive = "active"

	// HumanName use codes
	NameUseOfficial = "official"
	NameUseUsual    = "usual"
)

// Placeholders for resources without a usable code
const (
	UnspecifiedCondition = "Unspecified condition"
	UnnamedObservation   = "Unnamed observation"
)

// Coding is a single code from a terminology system
type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// CodeableConcept is a concept expressed as free text and/or codings
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// DisplayText returns text, else the first non-empty coding display
func (c *CodeableConcept) DisplayText() string {
	if c == nil {
		return ""
	}
	if t := strings.TrimSpace(c.Text); t != "" {
		return t
	}
	for _, coding := range c.Coding {
		if d := strings.TrimSpace(coding.Display); d != "" {
			return d
		}
	}
	return ""
}

// HumanName is a patient name
type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// Patient is the subset of the Patient resource the client reads
type Patient struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id"`
	Name         []HumanName `json:"name,omitempty"`
	BirthDate    string      `json:"birthDate,omitempty"`
}

// PreferredName picks the official name, then the usual one, then the first
func (p *Patient) PreferredName() *HumanName {
	for _, use := range []string{NameUseOfficial, NameUseUsual} {
		for i := range p.Name {
			if p.Name[i].Use == use {
				return &p.Name[i]
			}
		}
	}
	if len(p.Name) > 0 {
		return &p.Name[0]
	}
	return nil
}

// Condition is the subset of the Condition resource the client reads
type Condition struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Code         *CodeableConcept `json:"code,omitempty"`
}

// Quantity keeps the numeric value undecoded so malformed values survive
type Quantity struct {
	Value json.RawMessage `json:"value,omitempty"`
	Unit  string          `json:"unit,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// RawValue returns the value as text. JSON strings are unquoted.
func (q *Quantity) RawValue() string {
	raw := strings.TrimSpace(string(q.Value))
	if raw == "" || raw == "null" {
		return ""
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		return unquoted
	}
	return raw
}

// Observation is the subset of the Observation resource the client reads
type Observation struct {
	ResourceType         string           `json:"resourceType"`
	ID                   string           `json:"id,omitempty"`
	Code                 *CodeableConcept `json:"code,omitempty"`
	EffectiveDateTime    string           `json:"effectiveDateTime,omitempty"`
	ValueQuantity        *Quantity        `json:"valueQuantity,omitempty"`
	ValueCodeableConcept *CodeableConcept `json:"valueCodeableConcept,omitempty"`
	ValueString          *string          `json:"valueString,omitempty"`
}

// Bundle is a searchset bundle of resources of one type. Entries of other
// types (such as OperationOutcome) are dropped by the caller.
type Bundle[T any] struct {
	ResourceType string           `json:"resourceType"`
	Total        int              `json:"total,omitempty"`
	Entry        []BundleEntry[T] `json:"entry,omitempty"`
}

// BundleEntry wraps one search result
type BundleEntry[T any] struct {
	FullURL  string `json:"fullUrl,omitempty"`
	Resource T      `json:"resource"`
}
