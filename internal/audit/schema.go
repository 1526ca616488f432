package audit

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed manifest.schema.json
var manifestSchemaJSON string

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// manifestSchema is the compiled JSON Schema for manifest.json.
var manifestSchema = mustCompileSchema(manifestSchemaJSON, "manifest.schema.json")

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateManifest validates a decoded manifest against the embedded schema
// and returns one "<location>: <problem>" line per violation.
func ValidateManifest(manifest any) []string {
	err := manifestSchema.Validate(manifest)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("schema: %v", err)}
	}

	var errs []string
	collectSchemaErrors(ve, &errs)
	// Causes follow map iteration order inside the validator.
	slices.Sort(errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// ManifestSchemaStep validates manifest.json against the Web App Manifest
// schema subset embedded in the binary.
type ManifestSchemaStep struct {
	logger *slog.Logger
}

// NewManifestSchemaStep creates the schema audit step. A nil logger uses slog.Default().
func NewManifestSchemaStep(logger *slog.Logger) *ManifestSchemaStep {
	return &ManifestSchemaStep{logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *ManifestSchemaStep) Name() string {
	return "manifest_schema"
}

// Do executes the schema validation.
func (s *ManifestSchemaStep) Do(_ context.Context, st *checker.State) error {
	if !st.Exists(model.ArtifactManifest) {
		return nil
	}
	manifest, err := st.Manifest()
	if err != nil {
		return nil
	}

	violations := ValidateManifest(manifest)
	s.logger.Debug("manifest validated", "violations", len(violations))

	for _, v := range violations {
		st.Report.AddFinding(model.NewWarning(model.KindMalformedData, model.ArtifactManifest,
			"manifest.json schema violation at "+v).WithCheck(s.Name()))
	}
	return nil
}
