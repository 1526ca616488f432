package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/pwasmoke/internal/audit"
	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/config"
	"github.com/nao1215/pwasmoke/internal/database"
	pwlog "github.com/nao1215/pwasmoke/internal/log"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/report"
	"github.com/nao1215/pwasmoke/internal/site"
	"github.com/nao1215/pwasmoke/internal/watch"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [root...]",
		Short: "Run the smoke test against one or more project roots",
		Long: `Check verifies that each project root ships a working PWA app shell:
- index.html exists and links manifest.json
- manifest.json parses and has a non-empty name and start_url
- service-worker.js and offline.html exist

With --strict it also audits what the files reference: the manifest
schema, icon files and their metadata, scripts, navigation tabs and the
service worker precache list. Strict warnings fail the run.

Examples:
  # Check the project root found from the current directory
  pwasmoke check

  # Check two roots, two at a time
  pwasmoke check --batch 2 ./app ./docs

  # Strict audit with a Markdown report written to a file
  pwasmoke check --strict --markdown -o reports/smoke.md ./app

  # Re-run on every change
  pwasmoke check --watch ./app

  # Record the run so "pwasmoke history --compare" can diff it later
  pwasmoke check --history ./app

Configuration file (.pwasmoke) example:
  root: public
  strict: true
  manifest:
    allowComments: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	addCheckFlags(cmd)

	return cmd
}

// addCheckFlags registers the check flags on cmd. The root command shares
// them so that a bare "pwasmoke" accepts the same options.
func addCheckFlags(cmd *cobra.Command) {
	// Check behavior flags
	cmd.Flags().BoolP("strict", "s", false,
		"Run the strict audit after the smoke checks")
	cmd.Flags().Bool("allow-comments", false,
		"Strip comments and trailing commas from manifest.json before parsing")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of project roots checked concurrently")

	// Watch flags
	cmd.Flags().BoolP("watch", "w", false,
		"Re-run the check whenever a file under the root changes")
	cmd.Flags().Duration("debounce", config.DefaultDebounce,
		"Quiet period after a change before the check re-runs")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: nearest .pwasmoke in current or parent directory)")

	// History flags
	cmd.Flags().Bool("history", false,
		"Record this run in the history database")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run, even if the configuration file enables history")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("explain", false,
		"Print the finding kind and a recommendation under each failure")
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	explain, err := cmd.Flags().GetBool("explain")
	if err != nil {
		return err
	}

	// Set up structured logging
	logger := pwlog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	// Cancel the run on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &runner{
		cfg:     cfg,
		out:     cmd.OutOrStdout(),
		logger:  logger,
		explain: explain,
	}
	return r.run(ctx)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the configuration file and cobra
// command flags. Flags the user set win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file is found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f, configPath)
		cfg.Roots = []string{f.ResolveRoot(configPath)}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if cmd.Flags().Changed("strict") {
		if cfg.Strict, err = cmd.Flags().GetBool("strict"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("allow-comments") {
		if cfg.AllowComments, err = cmd.Flags().GetBool("allow-comments"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("debounce") {
		if cfg.Debounce, err = cmd.Flags().GetDuration("debounce"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("history") {
		if cfg.SaveHistory, err = cmd.Flags().GetBool("history"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("no-history") {
		noHistory, err := cmd.Flags().GetBool("no-history")
		if err != nil {
			return nil, err
		}
		cfg.SaveHistory = !noHistory
	}

	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	if cfg.Watch, err = cmd.Flags().GetBool("watch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// An explicit root argument wins over the configuration file.
	if len(args) > 0 {
		cfg.Roots = args
	}
	if len(cfg.Roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		cfg.Roots = []string{cwd}
	}

	// History is keyed by root, so the same directory must always be
	// recorded under the same name.
	for i, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("invalid project root %q: %w", root, err)
		}
		cfg.Roots[i] = abs
	}

	return cfg, nil
}

// runner executes checks for a validated configuration.
type runner struct {
	cfg     *config.Config
	out     io.Writer
	logger  *slog.Logger
	explain bool
	db      *database.RunDB
}

// run checks every root once, or keeps checking the single root in watch
// mode. It returns ErrCheckFailed when the last result had a failing root.
func (r *runner) run(ctx context.Context) error {
	r.logger.Info("starting check",
		"roots", r.cfg.Roots,
		"strict", r.cfg.Strict,
		"batchSize", r.cfg.BatchSize,
		"saveHistory", r.cfg.SaveHistory,
	)

	// History is a side record: a database that cannot be opened leaves the
	// exit status to the findings alone.
	if r.cfg.SaveHistory {
		db, err := database.Open(r.cfg.DBDir, database.DefaultOptions())
		if err != nil {
			r.logger.Warn("history disabled: failed to open history database",
				"dir", r.cfg.DBDir,
				"error", err,
			)
		} else {
			defer db.Close()
			r.db = db
			r.logger.Debug("history database opened", "path", db.Path())
		}
	}

	if r.cfg.Watch {
		return r.watch(ctx)
	}

	passed, err := r.once(ctx)
	if err != nil {
		return err
	}
	if !passed {
		return ErrCheckFailed
	}
	return nil
}

// watch re-runs the check on every settled change under the root until
// ctx is cancelled. Failing checks keep the watch going.
func (r *runner) watch(ctx context.Context) error {
	w, err := watch.New(r.cfg.Roots[0],
		watch.WithDebounce(r.cfg.Debounce),
		watch.WithLogger(r.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.cfg.Roots[0], err)
	}

	lastPassed := true
	err = w.Run(ctx, func(ctx context.Context) error {
		passed, err := r.once(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		lastPassed = passed
		return nil
	})
	if err != nil {
		return err
	}
	if !lastPassed {
		return ErrCheckFailed
	}
	return nil
}

// once checks every root, writes the report and records the run.
func (r *runner) once(ctx context.Context) (bool, error) {
	reports, err := r.check(ctx)
	if err != nil {
		return false, err
	}

	if err := r.writeReports(reports); err != nil {
		return false, err
	}

	if r.db != nil {
		for _, rep := range reports {
			if err := r.db.SaveRun(ctx, rep); err != nil {
				r.logger.Warn("failed to save run", "root", rep.Root, "error", err)
				continue
			}
			r.logger.Debug("run saved", "root", rep.Root, "runID", rep.RunID)
		}
	}

	return report.AllPassed(reports), nil
}

// check runs the checker against the configured roots. A single root is
// checked directly; several go through the batch runner.
func (r *runner) check(ctx context.Context) ([]*model.CheckReport, error) {
	opts := checkOptions(r.cfg, r.logger)

	if len(r.cfg.Roots) == 1 {
		rep, err := checker.Check(ctx, site.Open(r.cfg.Roots[0]), opts...)
		if err != nil {
			return nil, err
		}
		return []*model.CheckReport{rep}, nil
	}

	br := checker.NewBatchRunner(
		checker.WithConcurrency(r.cfg.BatchSize),
		checker.WithBatchLogger(r.logger),
		checker.WithRunOptions(opts...),
	)
	return br.RunBatch(ctx, r.cfg.Roots)
}

// checkOptions translates the configuration into checker options.
func checkOptions(cfg *config.Config, logger *slog.Logger) []checker.CheckOption {
	opts := []checker.CheckOption{
		checker.WithCheckLogger(logger),
		checker.WithAllowComments(cfg.AllowComments),
	}
	if cfg.Strict {
		opts = append(opts, checker.WithAuditSteps(audit.Steps(logger)...))
	}
	return opts
}

// writeReports outputs the reports in the requested format. With a report
// file, the file gets the requested format and stdout still gets the text
// status.
func (r *runner) writeReports(reports []*model.CheckReport) error {
	var w report.Writer
	if r.cfg.ReportFile != "" {
		f, err := createReportFile(r.cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = report.NewMultiWriter(r.textWriter(r.out), r.formatWriter(f))
	} else {
		w = r.formatWriter(r.out)
	}

	var err error
	if len(reports) == 1 {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteBatch(reports)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// formatWriter returns the writer for the requested report format.
func (r *runner) formatWriter(out io.Writer) report.Writer {
	switch {
	case r.cfg.JSONReport:
		return report.NewJSONWriter(out,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
		)
	case r.cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return r.textWriter(out)
	}
}

func (r *runner) textWriter(out io.Writer) report.Writer {
	return report.NewSimpleWriter(out, report.WithVerbose(r.explain))
}

// createReportFile creates or truncates the report file, creating parent
// directories as needed.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may reveal local paths, so only the owner can read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
