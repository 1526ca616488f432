package checker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of roots checked at once when no
// concurrency is configured.
const DefaultConcurrency = 4

// BatchRunner checks several project roots concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
//
// Design decision: We use a separate BatchRunner rather than adding batch
// functionality to Pipeline. A pipeline describes one run against one root;
// the runner only decides how many of those runs are in flight.
type BatchRunner struct {
	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// open creates the site for a root. Tests replace it with in-memory sites.
	open func(root string) *site.Site

	// checkOpts are passed to every Check call.
	checkOpts []CheckOption
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithSiteOpener replaces the function that turns a root path into a Site.
func WithSiteOpener(open func(root string) *site.Site) BatchOption {
	return func(b *BatchRunner) {
		if open != nil {
			b.open = open
		}
	}
}

// WithRunOptions sets the options applied to each run.
func WithRunOptions(opts ...CheckOption) BatchOption {
	return func(b *BatchRunner) {
		b.checkOpts = append(b.checkOpts, opts...)
	}
}

// NewBatchRunner creates a new BatchRunner.
func NewBatchRunner(opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		concurrency: DefaultConcurrency,
		open:        site.Open,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// RunBatch checks every root and returns one report per root, in the same
// order as roots. Reports of runs that never started because the context
// was cancelled are nil.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Results are written into a pre-sized slice by index, so output order never
// depends on which run finishes first.
func (b *BatchRunner) RunBatch(ctx context.Context, roots []string) ([]*model.CheckReport, error) {
	b.logger.Debug("starting batch",
		"roots", len(roots),
		"concurrency", b.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.CheckReport, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			b.logger.Debug("checking root",
				"root", root,
				"index", i+1,
				"total", len(roots),
			)

			// Each goroutine owns results[i], so no lock is needed.
			report, err := Check(ctx, b.open(root), b.checkOpts...)
			results[i] = report
			if err != nil {
				return err
			}
			return nil
		})
	}

	err := g.Wait()

	b.logger.Debug("batch complete",
		"roots", len(roots),
		"elapsed", time.Since(startTime),
	)

	return results, err
}
