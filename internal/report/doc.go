// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the smoke test text output ("SMOKE TEST: OK" or
//     "SMOKE TEST: FAIL" followed by one line per failure)
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for pull requests and documentation
//
// It also compares two runs of the same project root (Compare) and renders
// the comparison in the same three formats.
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
package report
