package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pwasmoke/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the report types already implement
// encoding.TextMarshaler for their enums and need nothing else.
type JSONWriter struct {
	baseWriter

	// version is the pwasmoke version recorded in every document.
	version string

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Summary holds the finding counts of one report.
type Summary struct {
	// Passed is true when the report has no findings.
	Passed bool `json:"passed"`

	// Total is the number of findings.
	Total int `json:"total"`

	// Errors is the number of smoke test failures.
	Errors int `json:"errors"`

	// Warnings is the number of strict audit findings.
	Warnings int `json:"warnings"`

	// ByKind maps each kind name to its finding count. Kinds without
	// findings are omitted.
	ByKind map[string]int `json:"by_kind,omitempty"`
}

// NewSummary counts the findings of a report.
func NewSummary(report *model.CheckReport) Summary {
	s := Summary{
		Passed:   report.Passed(),
		Total:    len(report.Findings),
		Errors:   report.CountBySeverity(model.SeverityError),
		Warnings: report.CountBySeverity(model.SeverityWarning),
	}
	for _, k := range model.AllKinds() {
		if n := report.CountByKind(k); n > 0 {
			if s.ByKind == nil {
				s.ByKind = make(map[string]int)
			}
			s.ByKind[k.String()] = n
		}
	}
	return s
}

// JSONReport is a wrapper for one report with additional metadata.
//
// Design decision: We wrap the report rather than modifying CheckReport
// because this allows us to add output-specific fields without polluting
// the core data structure.
type JSONReport struct {
	// Version is the pwasmoke version that generated this report.
	Version string `json:"version,omitempty"`

	// Summary is the finding count overview.
	Summary Summary `json:"summary"`

	// Report is the full check report.
	Report *model.CheckReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.CheckReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: NewSummary(report),
		Report:  report,
	}
}

// JSONBatch is the document written for a batch run.
type JSONBatch struct {
	// Version is the pwasmoke version that generated this report.
	Version string `json:"version,omitempty"`

	// Passed is true when every root passed.
	Passed bool `json:"passed"`

	// Reports holds one entry per root, in argument order.
	Reports []*JSONReport `json:"reports"`
}

// Write outputs one report wrapped with metadata.
func (w *JSONWriter) Write(report *model.CheckReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}

// WriteBatch outputs every report of a batch in one document.
func (w *JSONWriter) WriteBatch(reports []*model.CheckReport) (int, error) {
	batch := &JSONBatch{
		Version: w.version,
		Passed:  AllPassed(reports),
		Reports: make([]*JSONReport, len(reports)),
	}
	for i, r := range reports {
		batch.Reports[i] = NewJSONReport(r, "")
	}
	return w.writeJSON(batch)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
