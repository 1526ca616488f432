package audit

import (
	"log/slog"

	"github.com/nao1215/pwasmoke/internal/checker"
)

// Steps returns the strict audit steps in evaluation order.
// The steps keep no per-run state, so one slice can be shared by the
// goroutines of a batch run.
func Steps(logger *slog.Logger) []checker.Step {
	return []checker.Step{
		NewDOMStep(logger),
		NewManifestSchemaStep(logger),
		NewIconsStep(logger),
		NewPrecacheStep(logger),
	}
}
