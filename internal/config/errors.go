package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoRoot is returned when no project root could be determined.
	ErrNoRoot = errors.New("no project root specified")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no root is ever checked.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidDebounce is returned when the watch debounce is not positive.
	ErrInvalidDebounce = errors.New("invalid watch debounce: must be positive")

	// ErrWatchMultipleRoots is returned when --watch is combined with more
	// than one project root.
	ErrWatchMultipleRoots = errors.New("--watch supports a single project root")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
