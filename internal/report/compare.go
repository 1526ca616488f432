package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/pwasmoke/internal/model"
)

// Directions of change between two runs.
const (
	DirectionImproved  = "improved"
	DirectionWorsened  = "worsened"
	DirectionUnchanged = "unchanged"
)

// Artifact change types.
const (
	ArtifactAdded    = "added"
	ArtifactRemoved  = "removed"
	ArtifactModified = "modified"
)

// Comparison holds the result of comparing two runs of one project root.
type Comparison struct {
	// Root is the project root both runs checked.
	Root string `json:"root"`

	// Previous describes the older run.
	Previous RunMetadata `json:"previous_run"`

	// Current describes the newer run.
	Current RunMetadata `json:"current_run"`

	// NewFailures are findings of the current run that the previous run
	// did not have, in evaluation order.
	NewFailures []model.Finding `json:"new_failures,omitempty"`

	// ResolvedFailures are findings of the previous run that are gone.
	ResolvedFailures []model.Finding `json:"resolved_failures,omitempty"`

	// UnchangedCount is the number of findings present in both runs.
	UnchangedCount int `json:"unchanged_count"`

	// ChangedArtifacts lists artifacts whose digest differs, by name.
	ChangedArtifacts []ArtifactChange `json:"changed_artifacts,omitempty"`

	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`
}

// RunMetadata contains metadata about a run for comparison display.
type RunMetadata struct {
	// RunID identifies the run in the history database.
	RunID string `json:"run_id"`

	// DateChecked is when the run was performed.
	DateChecked time.Time `json:"date_checked"`

	// Passed is true when the run had no findings.
	Passed bool `json:"passed"`

	// Strict is true when the strict audit ran.
	Strict bool `json:"strict"`

	// Errors is the number of smoke test failures.
	Errors int `json:"errors"`

	// Warnings is the number of strict audit findings.
	Warnings int `json:"warnings"`
}

// Total returns the number of findings of the run.
func (m RunMetadata) Total() int {
	return m.Errors + m.Warnings
}

// ArtifactChange describes one artifact whose content changed between runs.
type ArtifactChange struct {
	// Artifact is the file name relative to the root.
	Artifact string `json:"artifact"`

	// Change is "added", "removed", or "modified".
	Change string `json:"change"`

	// Previous is the digest in the older run, empty if it was not read.
	Previous string `json:"previous,omitempty"`

	// Current is the digest in the newer run, empty if it was not read.
	Current string `json:"current,omitempty"`
}

// newRunMetadata extracts the comparison metadata of a report.
func newRunMetadata(r *model.CheckReport) RunMetadata {
	return RunMetadata{
		RunID:       r.RunID,
		DateChecked: r.DateChecked,
		Passed:      r.Passed(),
		Strict:      r.Strict,
		Errors:      r.CountBySeverity(model.SeverityError),
		Warnings:    r.CountBySeverity(model.SeverityWarning),
	}
}

// Compare compares two runs and generates a comparison result.
// Findings are matched by kind, artifact and message.
func Compare(previous, current *model.CheckReport) *Comparison {
	result := &Comparison{
		Root:     current.Root,
		Previous: newRunMetadata(previous),
		Current:  newRunMetadata(current),
	}

	previousKeys := make(map[string]bool, len(previous.Findings))
	for _, f := range previous.Findings {
		previousKeys[f.Key()] = true
	}
	currentKeys := make(map[string]bool, len(current.Findings))
	for _, f := range current.Findings {
		currentKeys[f.Key()] = true
	}

	for _, f := range current.Findings {
		if !previousKeys[f.Key()] {
			result.NewFailures = append(result.NewFailures, f)
		}
	}
	for _, f := range previous.Findings {
		if currentKeys[f.Key()] {
			result.UnchangedCount++
		} else {
			result.ResolvedFailures = append(result.ResolvedFailures, f)
		}
	}

	result.ChangedArtifacts = compareDigests(previous.Digests, current.Digests)
	result.Direction = direction(result.Previous, result.Current)

	return result
}

// compareDigests lists the artifacts whose digests differ, sorted by name.
func compareDigests(previous, current map[string]string) []ArtifactChange {
	names := make([]string, 0, len(previous)+len(current))
	for name := range previous {
		names = append(names, name)
	}
	for name := range current {
		if _, ok := previous[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var changes []ArtifactChange
	for _, name := range names {
		prev, hadPrev := previous[name]
		cur, hasCur := current[name]
		switch {
		case !hadPrev:
			changes = append(changes, ArtifactChange{Artifact: name, Change: ArtifactAdded, Current: cur})
		case !hasCur:
			changes = append(changes, ArtifactChange{Artifact: name, Change: ArtifactRemoved, Previous: prev})
		case prev != cur:
			changes = append(changes, ArtifactChange{Artifact: name, Change: ArtifactModified, Previous: prev, Current: cur})
		}
	}
	return changes
}

// direction weighs smoke failures above audit warnings.
func direction(previous, current RunMetadata) string {
	previousScore := previous.Errors*10 + previous.Warnings
	currentScore := current.Errors*10 + current.Warnings

	switch {
	case currentScore < previousScore:
		return DirectionImproved
	case currentScore > previousScore:
		return DirectionWorsened
	default:
		return DirectionUnchanged
	}
}

// WriteComparisonJSON outputs the comparison in indented JSON.
func WriteComparisonJSON(w io.Writer, c *Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// WriteComparisonText outputs the comparison in human-readable text.
func WriteComparisonText(w io.Writer, c *Comparison) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run Comparison: %s\n", c.Root))
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString(fmt.Sprintf("\nStatus: %s\n", formatDirection(c.Direction)))

	sb.WriteString(fmt.Sprintf("\nPrevious run: %s  %s\n", c.Previous.DateChecked.Format(dateFormat), passText(c.Previous.Passed)))
	sb.WriteString(fmt.Sprintf("Current run:  %s  %s\n", c.Current.DateChecked.Format(dateFormat), passText(c.Current.Passed)))

	sb.WriteString("\nFindings Summary:\n")
	sb.WriteString(fmt.Sprintf("  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change"))
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, row := range summaryRows(c) {
		sb.WriteString(fmt.Sprintf("  %-10s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3]))
	}

	if len(c.NewFailures) > 0 {
		sb.WriteString(fmt.Sprintf("\nNew Failures (%d):\n", len(c.NewFailures)))
		for _, f := range c.NewFailures {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", f.Message))
		}
	}

	if len(c.ResolvedFailures) > 0 {
		sb.WriteString(fmt.Sprintf("\nResolved Failures (%d):\n", len(c.ResolvedFailures)))
		for _, f := range c.ResolvedFailures {
			sb.WriteString(fmt.Sprintf("  [-] %s\n", f.Message))
		}
	}

	if len(c.ChangedArtifacts) > 0 {
		sb.WriteString(fmt.Sprintf("\nChanged Artifacts (%d):\n", len(c.ChangedArtifacts)))
		for _, a := range c.ChangedArtifacts {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", a.Change, a.Artifact))
		}
	}

	if c.UnchangedCount > 0 {
		sb.WriteString(fmt.Sprintf("\nUnchanged: %d findings\n", c.UnchangedCount))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteComparisonMarkdown outputs the comparison in Markdown.
func WriteComparisonMarkdown(w io.Writer, c *Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Run Comparison: " + c.Root)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(c.Direction))
	md.PlainText("")

	rows := [][]string{{
		"Date",
		c.Previous.DateChecked.Format(dateFormat),
		c.Current.DateChecked.Format(dateFormat),
		"-",
	}}
	rows = append(rows, summaryRows(c)...)
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(c.NewFailures) > 0 {
		md.H2(fmt.Sprintf("New Failures (%d)", len(c.NewFailures)))
		md.PlainText("")
		md.BulletList(findingMessages(c.NewFailures, "")...)
		md.PlainText("")
	}

	if len(c.ResolvedFailures) > 0 {
		md.H2(fmt.Sprintf("Resolved Failures (%d)", len(c.ResolvedFailures)))
		md.PlainText("")
		md.BulletList(findingMessages(c.ResolvedFailures, "~~")...)
		md.PlainText("")
	}

	if len(c.ChangedArtifacts) > 0 {
		md.H2(fmt.Sprintf("Changed Artifacts (%d)", len(c.ChangedArtifacts)))
		md.PlainText("")
		artifactRows := make([][]string, len(c.ChangedArtifacts))
		for i, a := range c.ChangedArtifacts {
			artifactRows[i] = []string{"`" + a.Artifact + "`", a.Change}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Artifact", "Change"},
			Rows:   artifactRows,
		})
		md.PlainText("")
	}

	if c.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings unchanged*", c.UnchangedCount)
	}

	return md.Build()
}

// summaryRows returns the severity rows shared by text and Markdown output.
func summaryRows(c *Comparison) [][]string {
	return [][]string{
		{"Errors", strconv.Itoa(c.Previous.Errors), strconv.Itoa(c.Current.Errors), formatDelta(c.Current.Errors - c.Previous.Errors)},
		{"Warnings", strconv.Itoa(c.Previous.Warnings), strconv.Itoa(c.Current.Warnings), formatDelta(c.Current.Warnings - c.Previous.Warnings)},
		{"Total", strconv.Itoa(c.Previous.Total()), strconv.Itoa(c.Current.Total()), formatDelta(c.Current.Total() - c.Previous.Total())},
	}
}

func findingMessages(findings []model.Finding, wrap string) []string {
	items := make([]string, len(findings))
	for i, f := range findings {
		items[i] = fmt.Sprintf("%s**[%s]** %s%s", wrap, f.Severity, f.Message, wrap)
	}
	return items
}

func passText(passed bool) string {
	if passed {
		return "OK"
	}
	return "FAIL"
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case DirectionImproved:
		return "IMPROVED (fewer failures)"
	case DirectionWorsened:
		return "WORSENED (more failures)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
