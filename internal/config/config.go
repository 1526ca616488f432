package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultBatchSize of 4 concurrent roots keeps batch runs fast without
	// opening many files at once. Each root is still checked sequentially.
	DefaultBatchSize = 4

	// DefaultDebounce collapses the burst of events an editor produces when
	// saving a file into a single re-run.
	DefaultDebounce = 300 * time.Millisecond

	// AppName is the application name used for XDG directory paths.
	AppName = "pwasmoke"
)

// Config holds all configuration options for pwasmoke.
// This struct is populated from defaults, the optional .pwasmoke file and
// CLI flags, in that order, and is passed through the application rather
// than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The YAML file has nested sections, but ApplyFile flattens them here so that
// the rest of the application reads one level of fields.
type Config struct {
	// Roots is the list of project roots to check.
	// More than one root switches the check command to batch mode.
	Roots []string

	// Strict enables the strict audit after the smoke checks.
	Strict bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of roots checked concurrently in batch mode.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .pwasmoke from the working directory
	// upwards.
	ConfigFilePath string

	// JSONReport enables JSON report output instead of the smoke text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the smoke text.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Watch re-runs the check whenever a file in the root changes.
	Watch bool

	// Debounce is the quiet period after the last file event before a
	// watch re-run starts.
	Debounce time.Duration

	// SaveHistory records every run in the history database. It is off by
	// default so that a plain check writes nothing outside the project.
	SaveHistory bool

	// DBDir is the directory path for storing the SQLite history database.
	// Defaults to XDG data directory (~/.local/share/pwasmoke on Linux).
	DBDir string

	// AllowComments strips // and /* */ comments and trailing commas from
	// manifest.json before parsing it.
	AllowComments bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero (batch size, debounce,
// database location). This also serves as documentation of what the
// defaults are.
func NewConfig() *Config {
	return &Config{
		BatchSize: DefaultBatchSize,
		Debounce:  DefaultDebounce,
		DBDir:     XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pwasmoke.
// On Linux: ~/.local/share/pwasmoke
// On macOS: ~/Library/Application Support/pwasmoke
// On Windows: %LOCALAPPDATA%\pwasmoke
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ApplyFile copies the settings present in a configuration file into c.
// configPath is the location the file was loaded from; a relative root in
// the file is resolved against its directory. Unset keys leave c unchanged.
func (c *Config) ApplyFile(f *File, configPath string) {
	if f == nil {
		return
	}
	if f.Root != "" {
		c.Roots = []string{f.ResolveRoot(configPath)}
	}
	if f.Strict != nil {
		c.Strict = *f.Strict
	}
	if f.Batch != 0 {
		c.BatchSize = f.Batch
	}
	if f.History != nil {
		c.SaveHistory = *f.History
	}
	if f.Manifest.AllowComments {
		c.AllowComments = true
	}
	if f.Watch.Debounce != 0 {
		c.Debounce = f.Watch.Debounce
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any check begins.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return ErrNoRoot
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.Watch {
		if c.Debounce <= 0 {
			return ErrInvalidDebounce
		}
		if len(c.Roots) > 1 {
			return ErrWatchMultipleRoots
		}
	}

	return nil
}
