package report

import (
	"io"
	"slices"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pwasmoke/internal/model"
)

// dateFormat is the timestamp layout used by Markdown and comparison output.
const dateFormat = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pull request comments and documentation.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("PWA Smoke Test Report")
	md.PlainText("")
	w.writeReport(md, report, md.H2)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs an overview table followed by one section per root.
func (w *MarkdownWriter) WriteBatch(reports []*model.CheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("PWA Smoke Test Report")
	md.PlainText("")

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{"`" + r.Root + "`", statusText(r), strconv.Itoa(len(r.Findings))}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Root", "Status", "Findings"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range reports {
		md.H2(r.Root)
		md.PlainText("")
		w.writeReport(md, r, md.H3)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeReport writes the sections of one report. heading renders section
// titles so that the same layout can be nested under a batch.
func (w *MarkdownWriter) writeReport(md *markdown.Markdown, report *model.CheckReport, heading func(string) *markdown.Markdown) {
	w.writeHeader(md, report)
	w.writeSummary(md, report, heading)
	w.writeFindings(md, report, heading)
	w.writeDigests(md, report, heading)
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CheckReport) {
	mode := "smoke"
	if report.Strict {
		mode = "strict"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project Root", "`" + report.Root + "`"},
			{"Checked", report.DateChecked.Format(dateFormat)},
			{"Mode", mode},
			{"Run ID", "`" + report.RunID + "`"},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func statusText(report *model.CheckReport) string {
	switch {
	case report.Cancelled:
		return "⚠️ Cancelled (partial results)"
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case report.Passed():
		return "✅ OK"
	default:
		return "❌ FAIL"
	}
}

// writeSummary writes the finding count section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CheckReport, heading func(string) *markdown.Markdown) {
	heading("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.AllKinds())+1)
	for _, k := range model.AllKinds() {
		rows = append(rows, []string{model.GetKindInfo(k).Title, strconv.Itoa(report.CountByKind(k))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(report.Findings)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if !report.Passed() {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for the kind distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CheckReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Findings by Kind"),
		piechart.WithShowData(true),
	)

	for _, k := range model.AllKinds() {
		if n := report.CountByKind(k); n > 0 {
			chart.LabelAndIntValue(model.GetKindInfo(k).Title, uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the outcome of the run.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CheckReport) {
	errs := report.CountBySeverity(model.SeverityError)
	warnings := report.CountBySeverity(model.SeverityWarning)

	switch {
	case errs > 0:
		md.Cautionf("The smoke test failed. %d check(s) must be fixed before release.", errs)
	case warnings > 0:
		md.Warningf("The strict audit found %d issue(s).", warnings)
	default:
		md.Tip("All checks passed.")
	}
	md.PlainText("")
}

// writeFindings writes the findings in evaluation order.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.CheckReport, heading func(string) *markdown.Markdown) {
	heading("Findings")
	md.PlainText("")

	if report.Passed() {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Check", "Artifact", "Message", "Recommendation"},
		Rows:   findingRows(report.Findings),
	})
	md.PlainText("")
}

// findingRows renders findings as table rows.
func findingRows(findings []model.Finding) [][]string {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		check := f.Check
		if check == "" {
			check = "-"
		}
		rec := f.Recommendation
		if rec == "" {
			rec = "-"
		}

		rows[i] = []string{
			f.Severity.String(),
			check,
			"`" + f.Artifact + "`",
			f.Message,
			truncateString(rec, 60),
		}
	}
	return rows
}

// writeDigests writes the artifact fingerprints in name order.
func (w *MarkdownWriter) writeDigests(md *markdown.Markdown, report *model.CheckReport, heading func(string) *markdown.Markdown) {
	if len(report.Digests) == 0 {
		return
	}

	heading("Artifacts")
	md.PlainText("")

	names := make([]string, 0, len(report.Digests))
	for name := range report.Digests {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{"`" + name + "`", "`" + report.Digests[name] + "`"}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Artifact", "BLAKE2b-256"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pwasmoke](https://github.com/nao1215/pwasmoke)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
