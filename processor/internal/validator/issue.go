// Package validator performs field-level schema validation of parsed SIRI
// documents. Validation failures are data, not errors: each finding becomes a
// leveled diagnostic, and elements without critical findings are still
// returned as typed records.
package validator

import "strings"

// Level is the diagnostic severity tier. A critical finding excludes the
// whole element from persistence; a non-critical finding does not.
type Level string

const (
	LevelCritical    Level = "CRITICAL"
	LevelNonCritical Level = "NON-CRITICAL"
)

// Code classifies a schema-validation failure.
type Code int

const (
	CodeMissing Code = iota
	CodeInvalidType
	CodeInvalidEnum
	CodeInvalidUnion
)

// Issue is one schema-validation failure at a specific document path.
type Issue struct {
	Code    Code
	Path    []string
	Message string
	Level   Level

	// Alternatives holds each alternative's own reported path for
	// invalid-union issues; empty otherwise.
	Alternatives [][]string
}

// Details renders the operator-facing {name, message} pair. The rendering is
// compared literally by downstream tooling and must not drift.
func (i Issue) Details() (name, message string) {
	if i.Code == CodeInvalidUnion {
		paths := make([]string, len(i.Alternatives))
		for n, alt := range i.Alternatives {
			paths[n] = strings.Join(alt, ".")
		}
		name = strings.Join(paths, ", ")
		return name, "Required one of " + name
	}
	return strings.Join(i.Path, "."), i.Message
}

// Diagnostic is the persisted form of an issue, stamped with its source
// context by the processing pipeline before it is written to the diagnostic
// store.
type Diagnostic struct {
	PK                string  `json:"PK"`
	SK                string  `json:"SK"`
	Details           string  `json:"details"`
	Filename          string  `json:"filename"`
	Level             Level   `json:"level"`
	Name              string  `json:"name"`
	OperatorRef       *string `json:"operatorRef,omitempty"`
	LineRef           *string `json:"lineRef,omitempty"`
	VehicleRef        *string `json:"vehicleRef,omitempty"`
	RecordedAtTime    *string `json:"recordedAtTime,omitempty"`
	ResponseTimestamp *string `json:"responseTimestamp,omitempty"`
	TimeToExist       int64   `json:"timeToExist"`
}

// diagnostic converts an issue to its persisted form. Contextual fields are
// lifted best-effort from the offending element by the caller.
func (i Issue) diagnostic() Diagnostic {
	name, message := i.Details()
	return Diagnostic{
		Details: message,
		Level:   i.Level,
		Name:    name,
	}
}
