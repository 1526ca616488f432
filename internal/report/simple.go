package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pwasmoke/internal/model"
)

// Status lines of the smoke test output.
const (
	StatusOK   = "SMOKE TEST: OK"
	StatusFail = "SMOKE TEST: FAIL"
)

// SimpleWriter outputs the smoke test text report.
//
// The default output is exactly the status line followed by one
// " - <message>" line per failure in evaluation order. It carries no
// timestamps, so repeated runs on an unchanged root produce identical
// bytes.
type SimpleWriter struct {
	baseWriter

	// verbose adds the kind and a remediation hint under each failure.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one report.
func (w *SimpleWriter) Write(report *model.CheckReport) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs each report under a "== <root>" line, separated by a
// blank line.
func (w *SimpleWriter) WriteBatch(reports []*model.CheckReport) (int, error) {
	var sb strings.Builder
	for i, report := range reports {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("== %s\n", report.Root))
		w.writeReport(&sb, report)
	}
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.CheckReport) {
	if report.Passed() {
		sb.WriteString(StatusOK + "\n")
		return
	}

	sb.WriteString(StatusFail + "\n")
	for _, f := range report.Findings {
		sb.WriteString(fmt.Sprintf(" - %s\n", f.Message))
		if w.verbose {
			sb.WriteString(fmt.Sprintf("   [%s %s] %s\n", f.Severity, f.Kind, f.Recommendation))
		}
	}
}
