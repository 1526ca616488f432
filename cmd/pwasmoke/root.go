// Package main provides the entry point for the pwasmoke CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitCheckFailed = 2
)

// ErrCheckFailed is returned by the check commands when at least one
// project root failed. The report has already been written, so Execute
// prints nothing more for it.
var ErrCheckFailed = errors.New("smoke test failed")

// NewRootCmd creates the root command for pwasmoke.
// Run without a subcommand it behaves like "pwasmoke check".
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pwasmoke [root...]",
		Short: "Smoke test for static Progressive Web App roots",
		Long: `pwasmoke checks that a static PWA project root ships a complete app shell:
index.html linking manifest.json, a manifest with name and start_url,
service-worker.js and offline.html.

It prints "SMOKE TEST: OK" and exits 0 when every check passes, or
"SMOKE TEST: FAIL" followed by one line per failure and exits 2.
Operational errors exit 1.

Without a root argument, pwasmoke walks up from the current directory to
the nearest .pwasmoke configuration file and checks the root it names.`,
		Version:       getVersion(),
		Args:          cobra.ArbitraryArgs,
		RunE:          runCheckCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addCheckFlags(cmd)

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the resulting status.
func Execute() {
	os.Exit(handleError(NewRootCmd().Execute(), os.Stderr))
}

// handleError reports err on stderr and maps it to an exit code.
// A failed check has already been reported on stdout.
func handleError(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrCheckFailed):
		return exitCheckFailed
	default:
		fmt.Fprintln(stderr, err)
		return exitError
	}
}
