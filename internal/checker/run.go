package checker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
)

// ErrEmptyRoot is returned by Run when the root path is empty.
var ErrEmptyRoot = errors.New("project root path is empty")

// checkOptions holds the settings of one check run.
type checkOptions struct {
	logger        *slog.Logger
	allowComments bool
	auditSteps    []Step
}

// CheckOption configures Check, Run and BatchRunner.
type CheckOption func(*checkOptions)

// WithCheckLogger sets the logger used by the pipeline and the core steps.
func WithCheckLogger(logger *slog.Logger) CheckOption {
	return func(o *checkOptions) {
		o.logger = logger
	}
}

// WithAllowComments enables comment stripping in manifest.json.
func WithAllowComments(allow bool) CheckOption {
	return func(o *checkOptions) {
		o.allowComments = allow
	}
}

// WithAuditSteps appends strict audit steps after the core steps and marks
// reports as strict. Without this option no audit step ever runs.
func WithAuditSteps(steps ...Step) CheckOption {
	return func(o *checkOptions) {
		o.auditSteps = append(o.auditSteps, steps...)
	}
}

func newCheckOptions(opts []CheckOption) *checkOptions {
	o := &checkOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// CoreSteps returns the smoke test steps in evaluation order.
func CoreSteps(logger *slog.Logger) []Step {
	return []Step{
		NewIndexStep(logger),
		NewManifestStep(logger),
		NewServiceWorkerStep(logger),
		NewOfflineStep(logger),
	}
}

// NewCheckPipeline builds the pipeline for one run: the core steps, then
// the audit steps if any were configured.
//
// The pipeline continues on step errors so that one broken audit step does
// not hide the findings of the others.
func NewCheckPipeline(opts ...CheckOption) *Pipeline {
	o := newCheckOptions(opts)
	return newCheckPipeline(o)
}

func newCheckPipeline(o *checkOptions) *Pipeline {
	p := New(WithLogger(o.logger), WithContinueOnError(true))
	p.AddSteps(CoreSteps(o.logger)...)
	p.AddSteps(o.auditSteps...)
	return p
}

// Check runs the smoke test against s and returns the filled report.
// The returned error is non-nil only if the run was cancelled; check
// failures are findings in the report.
func Check(ctx context.Context, s *site.Site, opts ...CheckOption) (*model.CheckReport, error) {
	o := newCheckOptions(opts)

	report := model.NewCheckReport(s.Root())
	report.Strict = len(o.auditSteps) > 0

	st := NewState(s, report)
	st.AllowComments = o.allowComments

	o.logger.Debug("checking project root", "root", s.Root(), "strict", report.Strict)

	if err := newCheckPipeline(o).Execute(ctx, st); err != nil {
		return report, err
	}

	o.logger.Debug("check finished",
		"root", s.Root(),
		"passed", report.Passed(),
		"findings", len(report.Findings),
	)
	return report, nil
}

// Run checks the project root at root and returns whether it passed along
// with the failure messages in evaluation order.
// The error is reserved for an unusable root or a cancelled run.
func Run(ctx context.Context, root string, opts ...CheckOption) (bool, []string, error) {
	if root == "" {
		return false, nil, ErrEmptyRoot
	}

	report, err := Check(ctx, site.Open(root), opts...)
	if err != nil {
		return false, report.Messages(), err
	}
	return report.Passed(), report.Messages(), nil
}
