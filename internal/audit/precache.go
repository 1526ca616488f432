package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
	"github.com/tidwall/jsonc"
)

var (
	// precacheListPattern matches the array literal assigned to PRECACHE_ASSETS.
	precacheListPattern = regexp.MustCompile(`(?s)PRECACHE_ASSETS\s*=\s*(\[.*?\])`)

	// stringLiteralPattern matches single, double or backtick quoted strings
	// without escapes or interpolation.
	stringLiteralPattern = regexp.MustCompile("\"([^\"\\\\\\n]*)\"|'([^'\\\\\\n]*)'|`([^`$\\\\]*)`")
)

// PrecacheStep checks the service worker precache list against the project
// root: every local entry must exist and offline.html must be listed.
type PrecacheStep struct {
	logger *slog.Logger
}

// NewPrecacheStep creates the precache audit step. A nil logger uses slog.Default().
func NewPrecacheStep(logger *slog.Logger) *PrecacheStep {
	return &PrecacheStep{logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *PrecacheStep) Name() string {
	return "precache"
}

// Do executes the precache audit.
func (s *PrecacheStep) Do(_ context.Context, st *checker.State) error {
	if !st.Exists(model.ArtifactServiceWorker) {
		return nil
	}
	text, err := st.Text(model.ArtifactServiceWorker)
	if err != nil {
		return nil
	}

	entries, ok := PrecacheEntries(text)
	if !ok {
		s.logger.Debug("service worker has no precache list")
		return nil
	}
	s.logger.Debug("precache list found", "entries", len(entries))

	listed := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name, ok := site.ResolveRef(entry)
		if !ok {
			continue
		}
		listed[name] = true
		if !st.Site.Exists(name) {
			st.Report.AddFinding(model.NewWarning(model.KindMissingFile, name,
				fmt.Sprintf("precached asset %s not found", entry)).WithCheck(s.Name()))
		}
	}

	if st.Exists(model.ArtifactOffline) && !listed[model.ArtifactOffline] {
		st.Report.AddFinding(model.NewWarning(model.KindContentMismatch, model.ArtifactServiceWorker,
			"offline.html is not precached by service-worker.js").WithCheck(s.Name()))
	}
	return nil
}

// PrecacheEntries extracts the string entries of the PRECACHE_ASSETS array
// in a service worker script. The array is read as JSON with comments and
// trailing commas allowed; arrays that are not JSON, such as ones using
// single quotes, fall back to collecting their plain string literals.
// The boolean is false when the script has no such array.
func PrecacheEntries(script string) ([]string, bool) {
	m := precacheListPattern.FindStringSubmatch(script)
	if m == nil {
		return nil, false
	}
	list := m[1]

	var values []any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(list)), &values); err == nil {
		entries := make([]string, 0, len(values))
		for _, v := range values {
			if str, ok := v.(string); ok {
				entries = append(entries, str)
			}
		}
		return entries, true
	}

	entries := make([]string, 0)
	for _, lit := range stringLiteralPattern.FindAllStringSubmatch(list, -1) {
		// Exactly one of the three quote groups matched.
		entries = append(entries, slices.DeleteFunc(lit[1:], func(s string) bool { return s == "" })...)
	}
	return entries, true
}
