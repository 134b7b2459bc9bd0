// Package narrative renders remote patient data as the plain-text clinical
// narrative handed to the summarizer.
package narrative

import (
	"math"
	"strconv"
	"strings"

	"github.com/dshills/clinical-mcp/pkg/types"
)

// Section headings and placeholders
const (
	ConditionsHeading   = "Active Conditions:"
	ObservationsHeading = "Recent Observations:"

	NoConditions   = "No active conditions found."
	NoObservations = "No recent observations found."

	UnknownName      = "Unknown"
	UnknownBirthDate = "unknown"
)

// Build renders the narrative. It never fails: missing data becomes a
// placeholder and empty sections get an explicit "none found" bullet.
func Build(patient types.PatientRecord, conditions []types.ConditionEntry, observations []types.ObservationEntry) string {
	var b strings.Builder

	name := patient.FullName()
	if name == "" {
		name = UnknownName
	}
	birthDate := strings.TrimSpace(patient.BirthDate)
	if birthDate == "" {
		birthDate = UnknownBirthDate
	}
	b.WriteString("Patient: ")
	b.WriteString(name)
	b.WriteString(", born ")
	b.WriteString(birthDate)
	b.WriteString(".\n\n")

	b.WriteString(ConditionsHeading)
	b.WriteString("\n")
	rendered := 0
	for _, c := range conditions {
		description := strings.TrimSpace(c.Description)
		if description == "" {
			continue
		}
		bullet(&b, description)
		rendered++
	}
	if rendered == 0 {
		bullet(&b, NoConditions)
	}

	b.WriteString("\n")
	b.WriteString(ObservationsHeading)
	b.WriteString("\n")
	rendered = 0
	for _, o := range observations {
		line, ok := Observation(o)
		if !ok {
			continue
		}
		bullet(&b, line)
		rendered++
	}
	if rendered == 0 {
		bullet(&b, NoObservations)
	}

	return b.String()
}

// Observation renders one observation without the bullet. It reports false
// when the observation has no value to show.
func Observation(o types.ObservationEntry) (string, bool) {
	label := strings.TrimSpace(o.Label)

	if o.IsNumeric() {
		line := label + ": " + FormatValue(o.Quantity.RawValue)
		if unit := strings.TrimSpace(o.Quantity.Unit); unit != "" {
			line += " " + unit
		}
		if date := strings.TrimSpace(o.EffectiveDateTime); date != "" {
			line += " on " + date
		}
		return line, true
	}

	if text := strings.TrimSpace(o.CodedText); text != "" {
		return label + ": " + text, true
	}
	return "", false
}

// FormatValue renders a numeric value with two decimals, or returns raw
// unchanged when it does not parse as a finite number
func FormatValue(raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return raw
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func bullet(b *strings.Builder, text string) {
	b.WriteString("- ")
	b.WriteString(text)
	b.WriteString("\n")
}
