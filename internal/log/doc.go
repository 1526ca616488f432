// Package log provides the pwasmoke logger, built on top of the standard
// slog package.
//
// This package extends slog to provide:
//   - Shortening of the user's home directory to "~" in paths, root lists
//     and error messages
//   - Configurable log levels with verbose mode support
//
// Project roots are usually somewhere below the home directory, and logs
// end up pasted into CI output and bug reports, so paths are shortened even
// in verbose mode.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("checking root", "root", "/home/alice/site") // root=~/site
//	slog.SetDefault(logger)
package log
