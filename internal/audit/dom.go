package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
)

// DOMStep parses index.html and checks that what it references exists:
// the manifest link target, local scripts and the section each navigation
// tab switches to.
type DOMStep struct {
	logger *slog.Logger
}

// NewDOMStep creates the DOM audit step. A nil logger uses slog.Default().
func NewDOMStep(logger *slog.Logger) *DOMStep {
	return &DOMStep{logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *DOMStep) Name() string {
	return "dom"
}

// Do executes the DOM audit.
func (s *DOMStep) Do(_ context.Context, st *checker.State) error {
	if !st.Exists(model.ArtifactIndex) {
		return nil
	}
	text, err := st.Text(model.ArtifactIndex)
	if err != nil {
		return nil
	}

	doc, err := ParseDocument(strings.NewReader(text))
	if err != nil {
		s.logger.Debug("index.html did not parse", "error", err)
		return nil
	}

	add := func(kind model.Kind, artifact, msg string) {
		st.Report.AddFinding(model.NewWarning(kind, artifact, msg).WithCheck(s.Name()))
	}

	s.checkManifestLinks(st, doc, add)

	for _, src := range doc.Scripts {
		name, ok := site.ResolveRef(src)
		if !ok {
			continue
		}
		if !st.Site.IsFile(name) {
			add(model.KindMissingFile, name, fmt.Sprintf("script %s referenced by index.html not found", src))
		}
	}

	for i, tab := range doc.NavTabs {
		switch {
		case !tab.HasTarget || tab.Target == "":
			add(model.KindContentMismatch, model.ArtifactIndex,
				fmt.Sprintf("nav-tab %d in index.html has no data-tab attribute", i+1))
		case !doc.IDs[tab.Target]:
			add(model.KindContentMismatch, model.ArtifactIndex,
				fmt.Sprintf("nav-tab data-tab %q in index.html does not match any element id", tab.Target))
		}
	}

	return nil
}

func (s *DOMStep) checkManifestLinks(st *checker.State, doc *Document, add func(model.Kind, string, string)) {
	if len(doc.ManifestLinks) == 0 {
		add(model.KindContentMismatch, model.ArtifactIndex, `index.html has no <link rel="manifest"> element`)
		return
	}

	for _, href := range doc.ManifestLinks {
		if strings.TrimSpace(href) == "" {
			add(model.KindContentMismatch, model.ArtifactIndex, "manifest link in index.html has no href")
			continue
		}
		name, ok := site.ResolveRef(href)
		if !ok {
			s.logger.Debug("manifest link is not local", "href", href)
			continue
		}
		if !st.Site.IsFile(name) {
			add(model.KindMissingFile, name, fmt.Sprintf("manifest link target %s not found", href))
		}
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
