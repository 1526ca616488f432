package model

// Finding represents a single failed assertion.
type Finding struct {
	// Kind classifies the failure.
	Kind Kind `json:"kind"`

	// Severity is SeverityError for smoke checks and SeverityWarning for
	// strict audit findings.
	Severity Severity `json:"severity"`

	// Check is the name of the step that recorded the finding.
	Check string `json:"check,omitempty"`

	// Artifact is the file the finding is about, relative to the root.
	Artifact string `json:"artifact"`

	// Message is the exact line printed in the smoke report.
	Message string `json:"message"`

	// Value carries the offending value when there is one
	// (e.g. the nav-tab count that was found).
	Value string `json:"value,omitempty"`

	// Recommendation is a remediation hint derived from Kind.
	Recommendation string `json:"recommendation,omitempty"`
}

// NewFinding creates an error-severity finding with the recommendation
// for its kind filled in.
func NewFinding(kind Kind, artifact, message string) Finding {
	return Finding{
		Kind:           kind,
		Severity:       SeverityError,
		Artifact:       artifact,
		Message:        message,
		Recommendation: GetKindInfo(kind).Recommendation,
	}
}

// NewWarning creates a warning-severity finding for the strict audit.
func NewWarning(kind Kind, artifact, message string) Finding {
	f := NewFinding(kind, artifact, message)
	f.Severity = SeverityWarning
	return f
}

// WithValue returns a copy of the finding carrying value.
func (f Finding) WithValue(value string) Finding {
	f.Value = value
	return f
}

// WithCheck returns a copy of the finding attributed to the named check.
func (f Finding) WithCheck(check string) Finding {
	f.Check = check
	return f
}

// Key identifies a finding across runs for history comparison.
// Two findings with the same kind, artifact and message are the same failure.
func (f Finding) Key() string {
	return f.Kind.String() + "|" + f.Artifact + "|" + f.Message
}
