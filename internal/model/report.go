package model

import (
	"time"

	"github.com/google/uuid"
)

// Artifact file names checked in every run, in evaluation order.
const (
	ArtifactIndex         = "index.html"
	ArtifactManifest      = "manifest.json"
	ArtifactServiceWorker = "service-worker.js"
	ArtifactOffline       = "offline.html"
)

// Artifacts returns the checked artifact names in evaluation order.
func Artifacts() []string {
	return []string{ArtifactIndex, ArtifactManifest, ArtifactServiceWorker, ArtifactOffline}
}

// CheckReport is the result of one run against a project root.
// Findings are kept in evaluation order and are only ever appended.
//
// Design decision: We keep report metadata (run ID, timestamps, digests)
// next to the findings so that the same struct can be rendered, stored in
// the history database and compared later. The smoke text output only uses
// the findings, which keeps it identical across runs on an unchanged root.
type CheckReport struct {
	// RunID uniquely identifies this run in the history database.
	RunID string `json:"run_id"`

	// Root is the project root the artifacts were read from.
	Root string `json:"root"`

	// DateChecked is when the run started.
	DateChecked time.Time `json:"date_checked"`

	// Strict is true when the strict audit ran after the smoke checks.
	Strict bool `json:"strict"`

	// Findings contains every failed assertion in evaluation order.
	Findings []Finding `json:"findings"`

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Digests maps artifact name to a hex content digest for every
	// artifact that could be read.
	Digests map[string]string `json:"digests,omitempty"`

	// Cancelled is true if the run stopped before all steps executed.
	Cancelled bool `json:"cancelled"`

	// Error contains an operational error that stopped a step.
	// Check failures are never stored here.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCheckReport creates an empty report for the given root.
func NewCheckReport(root string) *CheckReport {
	return &CheckReport{
		RunID:       uuid.NewString(),
		Root:        root,
		DateChecked: time.Now(),
		Findings:    make([]Finding, 0),
		Digests:     make(map[string]string),
	}
}

// AddFinding appends a finding to the report.
func (r *CheckReport) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// RecordDigest stores the content digest of an artifact.
func (r *CheckReport) RecordDigest(artifact, digest string) {
	if r.Digests == nil {
		r.Digests = make(map[string]string)
	}
	r.Digests[artifact] = digest
}

// Passed reports whether no finding was recorded.
func (r *CheckReport) Passed() bool {
	return len(r.Findings) == 0
}

// Messages returns the finding messages in evaluation order.
func (r *CheckReport) Messages() []string {
	messages := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		messages[i] = f.Message
	}
	return messages
}

// CountByKind returns the number of findings of the given kind.
func (r *CheckReport) CountByKind(k Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// CountBySeverity returns the number of findings with the given severity.
func (r *CheckReport) CountBySeverity(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// FindingsForArtifact returns the findings recorded against one artifact.
func (r *CheckReport) FindingsForArtifact(artifact string) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Artifact == artifact {
			result = append(result, f)
		}
	}
	return result
}
