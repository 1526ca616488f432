package model

import (
	"fmt"
	"strings"
)

// Kind classifies why a check failed.
//
// Design decision: We use iota-based constants for cheap comparisons and
// implement encoding.TextMarshaler so that JSON reports and stored history
// carry stable, readable names instead of integers.
type Kind int

const (
	// KindMissingFile indicates an expected artifact does not exist.
	// Content checks for that artifact are skipped.
	KindMissingFile Kind = iota

	// KindContentMismatch indicates an artifact exists but lacks a required
	// marker, or a marker count is below its threshold.
	KindContentMismatch

	// KindMalformedData indicates an artifact exists but cannot be read or
	// parsed (e.g. manifest.json is not valid JSON).
	KindMalformedData

	// KindMissingField indicates manifest.json parses but a required key is
	// absent or falsy.
	KindMissingField
)

// kindNames maps each Kind to its serialized name.
var kindNames = map[Kind]string{
	KindMissingFile:     "missing_file",
	KindContentMismatch: "content_mismatch",
	KindMalformedData:   "malformed_data",
	KindMissingField:    "missing_field",
}

// String returns the serialized name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown finding kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown finding kind %q", string(text))
}

// Severity represents how a finding affects the run.
type Severity int

const (
	// SeverityWarning is used by the strict audit. Warnings only exist when
	// strict mode was requested, and they fail the run like errors do.
	SeverityWarning Severity = iota

	// SeverityError is used by the smoke test checks.
	SeverityError
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", string(text))
	}
	return nil
}

// KindInfo contains metadata about a finding kind for report output.
type KindInfo struct {
	Title          string
	Recommendation string
}

// kindInfoMapping is the single source of truth for kind titles and
// remediation hints shown in Markdown and JSON reports.
var kindInfoMapping = map[Kind]KindInfo{
	KindMissingFile: {
		Title:          "Missing file",
		Recommendation: "Add the file to the project root or fix the path it is published under.",
	},
	KindContentMismatch: {
		Title:          "Content mismatch",
		Recommendation: "Restore the expected markup in the file.",
	},
	KindMalformedData: {
		Title:          "Malformed data",
		Recommendation: "Fix the syntax so the file can be read and parsed.",
	},
	KindMissingField: {
		Title:          "Missing field",
		Recommendation: "Add the field with a non-empty value.",
	},
}

// GetKindInfo returns the metadata for a kind.
// Unknown kinds get a generic title and no recommendation.
func GetKindInfo(k Kind) KindInfo {
	if info, ok := kindInfoMapping[k]; ok {
		return info
	}
	return KindInfo{Title: "Unknown"}
}

// AllKinds returns every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindMissingFile, KindContentMismatch, KindMalformedData, KindMissingField}
}
