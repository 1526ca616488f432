package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/pwasmoke/internal/config"
	"github.com/nao1215/pwasmoke/internal/database"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/report"
	"github.com/spf13/cobra"
)

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	root      string
	dbDir     string
	listRoots bool
	compare   bool
	withRunID string
	since     string
	json      bool
	markdown  bool
}

// NewHistoryCmd creates the history command.
// This command shows and compares runs stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [root]",
		Short: "Show or compare recorded check runs",
		Long: `History lists the runs recorded for a project root, newest first.
Runs are recorded by "pwasmoke check --history" or by "history: true" in
the configuration file.

With --compare it shows what changed between two runs of the root:
- Failures that are new in the latest run
- Failures that were resolved since the earlier run
- Artifacts whose content changed

By default the latest run is compared with the one before it. Use
--with-run-id or --since to choose the earlier run.

Without a root argument the project root is discovered the same way as
for "pwasmoke check".

Examples:
  # List runs of the current project root
  pwasmoke history

  # List every recorded project root
  pwasmoke history --list-roots

  # Compare the latest two runs
  pwasmoke history --compare ./app

  # Compare the latest run with the first run since a date, as Markdown
  pwasmoke history --compare --since 2026-01-01 --markdown ./app`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-roots", "L", false,
		"List all project roots in the history database")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest run with an earlier one")
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with the run of this ID (implies --compare)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run on or after this date, YYYY-MM-DD (implies --compare)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd, args)
	if err != nil {
		return err
	}

	// Validate before opening the database so a usage error leaves no file behind.
	if opts.json && opts.markdown {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	db, err := database.Open(opts.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), db, opts, cmd.OutOrStdout())
}

func parseHistoryFlags(cmd *cobra.Command, args []string) (*historyOptions, error) {
	opts := &historyOptions{}
	var err error

	if opts.listRoots, err = cmd.Flags().GetBool("list-roots"); err != nil {
		return nil, err
	}
	if opts.compare, err = cmd.Flags().GetBool("compare"); err != nil {
		return nil, err
	}
	if opts.withRunID, err = cmd.Flags().GetString("with-run-id"); err != nil {
		return nil, err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return nil, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.dbDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	if opts.withRunID != "" || opts.since != "" {
		opts.compare = true
	}

	if opts.listRoots {
		return opts, nil
	}

	root := ""
	if len(args) > 0 {
		root = args[0]
	} else if root, err = discoverRoot(); err != nil {
		return nil, err
	}
	if opts.root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("invalid project root %q: %w", root, err)
	}
	return opts, nil
}

// discoverRoot returns the project root named by the nearest .pwasmoke
// file, or the working directory when there is none.
func discoverRoot() (string, error) {
	if configPath := config.FindConfigFile(""); configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		return f.ResolveRoot(configPath), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return cwd, nil
}

// runHistory performs the history operation selected by opts.
func runHistory(ctx context.Context, db *database.RunDB, opts *historyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.listRoots:
		return listRoots(ctx, db, out)
	case opts.compare:
		return runComparison(ctx, db, opts, out)
	default:
		return listRunHistory(ctx, db, opts.root, out)
	}
}

// listRoots lists all project roots that have runs in the database.
func listRoots(ctx context.Context, db *database.RunDB, out io.Writer) error {
	roots, err := db.ListRoots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list project roots: %w", err)
	}

	if len(roots) == 0 {
		fmt.Fprintln(out, "No project roots found in the history database.")
		fmt.Fprintln(out, "\nUse 'pwasmoke check <root>' to record a run.")
		return nil
	}

	fmt.Fprintf(out, "Project roots (%d):\n\n", len(roots))
	for _, root := range roots {
		fmt.Fprintf(out, "  • %s\n", root)
	}
	fmt.Fprintln(out, "\nUse 'pwasmoke history <root>' to see the runs of a root.")

	return nil
}

// listRunHistory lists all runs recorded for a project root.
func listRunHistory(ctx context.Context, db *database.RunDB, root string, out io.Writer) error {
	runs, err := db.GetRunHistory(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No run history found for %s\n", root)
		fmt.Fprintln(out, "\nUse 'pwasmoke check' to record a run.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", root, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-6s  %-6s  %s\n", "Run ID", "Date", "Status", "Mode", "Findings")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %-6s  %-6s  %s\n",
			run.RunID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			runStatus(run.Passed),
			runMode(run.Strict),
			formatFindingCounts(run.Errors, run.Warnings),
		)
	}

	fmt.Fprintln(out, "\nUse 'pwasmoke history --compare <root>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'pwasmoke history --with-run-id <id> <root>' to compare with a specific run.")

	return nil
}

func runStatus(passed bool) string {
	if passed {
		return "OK"
	}
	return "FAIL"
}

func runMode(strict bool) string {
	if strict {
		return "strict"
	}
	return "smoke"
}

// formatFindingCounts formats error and warning counts for the history table.
func formatFindingCounts(errs, warnings int) string {
	var parts []string
	if errs > 0 {
		parts = append(parts, fmt.Sprintf("E:%d", errs))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("W:%d", warnings))
	}
	if len(parts) == 0 {
		return "No findings"
	}
	return strings.Join(parts, " ")
}

// runComparison compares the latest run of a root with an earlier one and
// writes the result in the requested format.
func runComparison(ctx context.Context, db *database.RunDB, opts *historyOptions, out io.Writer) error {
	previous, current, err := selectRuns(ctx, db, opts)
	if err != nil {
		return err
	}

	c := report.Compare(previous, current)

	switch {
	case opts.json:
		return report.WriteComparisonJSON(out, c)
	case opts.markdown:
		return report.WriteComparisonMarkdown(out, c)
	default:
		return report.WriteComparisonText(out, c)
	}
}

// selectRuns returns the earlier and the latest run to compare.
func selectRuns(ctx context.Context, db *database.RunDB, opts *historyOptions) (*model.CheckReport, *model.CheckReport, error) {
	latest, err := db.GetLatestRuns(ctx, opts.root, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run history: %w", err)
	}
	if len(latest) == 0 {
		return nil, nil, fmt.Errorf("no run history found for %s", opts.root)
	}
	current := latest[0]

	switch {
	case opts.withRunID != "":
		previous, err := db.GetRunByID(ctx, opts.withRunID)
		if err != nil {
			if errors.Is(err, database.ErrRunNotFound) {
				return nil, nil, fmt.Errorf("run with ID %s not found", opts.withRunID)
			}
			return nil, nil, fmt.Errorf("failed to get run %s: %w", opts.withRunID, err)
		}
		if previous.Root != opts.root {
			return nil, nil, fmt.Errorf("run %s belongs to %s, not %s", opts.withRunID, previous.Root, opts.root)
		}
		return previous, current, nil

	case opts.since != "":
		previous, err := firstRunSince(ctx, db, opts.root, opts.since)
		if err != nil {
			return nil, nil, err
		}
		if previous.RunID == current.RunID {
			return nil, nil, fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", opts.since)
		}
		return previous, current, nil

	default:
		if len(latest) < 2 {
			return nil, nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(latest))
		}
		return latest[1], current, nil
	}
}

// firstRunSince returns the oldest run of root on or after the given date.
func firstRunSince(ctx context.Context, db *database.RunDB, root, since string) (*model.CheckReport, error) {
	date, err := time.ParseInLocation("2006-01-02", since, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
	}

	runs, err := db.GetRunHistory(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}

	// Runs are newest first, so walk backwards to find the oldest match.
	for i := len(runs) - 1; i >= 0; i-- {
		if !runs[i].Timestamp.Before(date) {
			rep, err := db.GetRunByID(ctx, runs[i].RunID)
			if err != nil {
				return nil, fmt.Errorf("failed to get run %s: %w", runs[i].RunID, err)
			}
			return rep, nil
		}
	}
	return nil, fmt.Errorf("no runs found since %s", since)
}
