package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nao1215/pwasmoke/internal/model"
)

// Markers searched for in index.html.
const (
	// MarkerManifestRel must appear together with the manifest file name.
	MarkerManifestRel = `rel="manifest"`

	// MarkerServiceWorker must appear together with the service worker
	// file name.
	MarkerServiceWorker = "serviceWorker"

	// MarkerNavTab is counted; MinNavTabs occurrences are required.
	MarkerNavTab = `class="nav-tab"`

	// MarkerAssessmentForm identifies the assessment form.
	MarkerAssessmentForm = `id="assessmentForm"`

	// MinNavTabs is the minimum number of navigation tabs.
	MinNavTabs = 4
)

// Messages recorded by the core steps. They are part of the output format
// and must not change.
const (
	msgManifestLink       = "manifest link not found or not pointing to manifest.json in index.html"
	msgServiceWorkerReg   = "service worker registration code not found in index.html"
	msgNavTabsFormat      = "expected >=4 nav-tab buttons, found %d"
	msgAssessmentForm     = "assessmentForm not found in index.html"
	msgManifestInvalid    = "manifest.json invalid JSON: "
	msgManifestName       = "manifest.json missing name or short_name"
	msgManifestStartURL   = "manifest.json missing start_url"
	msgNotFoundSuffix     = " not found"
	stepNameIndex         = "index"
	stepNameManifest      = "manifest"
	stepNameServiceWorker = "service_worker"
	stepNameOffline       = "offline"
)

func notFound(artifact string) model.Finding {
	return model.NewFinding(model.KindMissingFile, artifact, artifact+msgNotFoundSuffix)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// IndexStep checks index.html for the manifest link, the service worker
// registration, the navigation tabs and the assessment form.
// Each marker check is independent of the others.
type IndexStep struct {
	logger *slog.Logger
}

// NewIndexStep creates the index.html step. A nil logger uses slog.Default().
func NewIndexStep(logger *slog.Logger) *IndexStep {
	return &IndexStep{logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return stepNameIndex
}

// Do executes the index.html checks.
func (s *IndexStep) Do(_ context.Context, st *State) error {
	add := func(f model.Finding) {
		st.Report.AddFinding(f.WithCheck(s.Name()))
	}

	if !st.Exists(model.ArtifactIndex) {
		add(notFound(model.ArtifactIndex))
		return nil
	}

	text, err := st.Text(model.ArtifactIndex)
	if err != nil {
		s.logger.Debug("index.html unreadable", "error", err)
		add(readFailure(model.ArtifactIndex, err))
		return nil
	}

	if !strings.Contains(text, MarkerManifestRel) || !strings.Contains(text, model.ArtifactManifest) {
		add(model.NewFinding(model.KindContentMismatch, model.ArtifactIndex, msgManifestLink))
	}

	if !strings.Contains(text, MarkerServiceWorker) || !strings.Contains(text, model.ArtifactServiceWorker) {
		add(model.NewFinding(model.KindContentMismatch, model.ArtifactIndex, msgServiceWorkerReg))
	}

	navTabs := strings.Count(text, MarkerNavTab)
	s.logger.Debug("nav tabs counted", "count", navTabs)
	if navTabs < MinNavTabs {
		add(model.NewFinding(model.KindContentMismatch, model.ArtifactIndex,
			fmt.Sprintf(msgNavTabsFormat, navTabs)).WithValue(strconv.Itoa(navTabs)))
	}

	if !strings.Contains(text, MarkerAssessmentForm) {
		add(model.NewFinding(model.KindContentMismatch, model.ArtifactIndex, msgAssessmentForm))
	}

	return nil
}

// ManifestStep checks that manifest.json parses as a JSON object with
// truthy name, short_name and start_url values.
type ManifestStep struct {
	logger *slog.Logger
}

// NewManifestStep creates the manifest.json step. A nil logger uses slog.Default().
func NewManifestStep(logger *slog.Logger) *ManifestStep {
	return &ManifestStep{logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *ManifestStep) Name() string {
	return stepNameManifest
}

// Do executes the manifest.json checks.
func (s *ManifestStep) Do(_ context.Context, st *State) error {
	add := func(f model.Finding) {
		st.Report.AddFinding(f.WithCheck(s.Name()))
	}

	if !st.Exists(model.ArtifactManifest) {
		add(notFound(model.ArtifactManifest))
		return nil
	}

	manifest, err := st.Manifest()
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			s.logger.Debug("manifest.json did not parse", "error", err)
			add(model.NewFinding(model.KindMalformedData, model.ArtifactManifest, msgManifestInvalid+err.Error()))
			return nil
		}
		add(readFailure(model.ArtifactManifest, err))
		return nil
	}

	if !Truthy(manifest["name"]) || !Truthy(manifest["short_name"]) {
		add(model.NewFinding(model.KindMissingField, model.ArtifactManifest, msgManifestName))
	}

	if !Truthy(manifest["start_url"]) {
		add(model.NewFinding(model.KindMissingField, model.ArtifactManifest, msgManifestStartURL))
	}

	return nil
}

// Truthy reports whether a decoded JSON value counts as present.
// Missing keys, null, false, 0, "", [] and {} all count as missing.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// ExistenceStep checks that an artifact exists. Its content is only read to
// record a digest.
type ExistenceStep struct {
	name     string
	artifact string
	logger   *slog.Logger
}

// NewServiceWorkerStep creates the service-worker.js existence step.
func NewServiceWorkerStep(logger *slog.Logger) *ExistenceStep {
	return &ExistenceStep{name: stepNameServiceWorker, artifact: model.ArtifactServiceWorker, logger: loggerOrDefault(logger)}
}

// NewOfflineStep creates the offline.html existence step.
func NewOfflineStep(logger *slog.Logger) *ExistenceStep {
	return &ExistenceStep{name: stepNameOffline, artifact: model.ArtifactOffline, logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *ExistenceStep) Name() string {
	return s.name
}

// Do executes the existence check.
func (s *ExistenceStep) Do(_ context.Context, st *State) error {
	if !st.Exists(s.artifact) {
		st.Report.AddFinding(notFound(s.artifact).WithCheck(s.Name()))
		return nil
	}
	st.recordDigest(s.logger, s.artifact)
	return nil
}
