package checker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
	"github.com/tidwall/jsonc"
)

// ErrManifestNotObject is returned by State.Manifest when manifest.json is
// valid JSON but its top-level value is not an object.
var ErrManifestNotObject = errors.New("top-level value is not an object")

// State is the per-run data shared by all steps of a pipeline.
// Artifacts are read at most once per run; later steps reuse the cached
// content or the cached read error.
type State struct {
	// Site is the project root being checked.
	Site *site.Site

	// Report receives the findings of every step.
	Report *model.CheckReport

	// AllowComments strips comments and trailing commas from manifest.json
	// before it is parsed.
	AllowComments bool

	files map[string]cachedFile

	manifestParsed bool
	manifest       map[string]any
	manifestErr    error
}

type cachedFile struct {
	data []byte
	err  error
}

// NewState creates the state for one run of s, writing into report.
func NewState(s *site.Site, report *model.CheckReport) *State {
	return &State{
		Site:   s,
		Report: report,
		files:  make(map[string]cachedFile),
	}
}

// Exists reports whether the artifact exists in the root.
func (st *State) Exists(name string) bool {
	return st.Site.Exists(name)
}

// Bytes returns the raw content of an artifact. The first successful read
// records the artifact digest in the report.
func (st *State) Bytes(name string) ([]byte, error) {
	if cached, ok := st.files[name]; ok {
		return cached.data, cached.err
	}

	data, err := st.Site.ReadBytes(name)
	st.files[name] = cachedFile{data: data, err: err}
	if err == nil {
		st.Report.RecordDigest(name, site.DigestBytes(data))
	}
	return data, err
}

// Text returns the decoded text of an artifact.
func (st *State) Text(name string) (string, error) {
	data, err := st.Bytes(name)
	if err != nil {
		return "", err
	}
	return site.DecodeText(data)
}

// Manifest returns the parsed manifest.json object.
// Read errors are returned as is. Parse errors are returned wrapped, and a
// valid document whose top-level value is not an object returns
// ErrManifestNotObject.
func (st *State) Manifest() (map[string]any, error) {
	if st.manifestParsed {
		return st.manifest, st.manifestErr
	}
	st.manifestParsed = true
	st.manifest, st.manifestErr = st.parseManifest()
	return st.manifest, st.manifestErr
}

func (st *State) parseManifest() (map[string]any, error) {
	text, err := st.Text(model.ArtifactManifest)
	if err != nil {
		return nil, err
	}

	data := []byte(text)
	if st.AllowComments {
		data = jsonc.ToJSON(data)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ParseError{Err: err}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Err: ErrManifestNotObject}
	}
	return obj, nil
}

// ParseError reports that manifest.json is not a valid JSON object.
type ParseError struct {
	Err error
}

// Error returns the parser's description of the failure.
func (e *ParseError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying parser error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// readFailure builds the finding for an artifact that exists but could not
// be read, such as a directory standing where a file is expected.
func readFailure(name string, err error) model.Finding {
	reason := err
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		reason = pathErr.Err
	}
	return model.NewFinding(model.KindMalformedData, name,
		fmt.Sprintf("%s could not be read: %v", name, reason))
}

// recordDigest reads an artifact only to fingerprint it. Failures are not
// findings: existence is the only requirement for these artifacts.
func (st *State) recordDigest(logger *slog.Logger, name string) {
	if _, err := st.Bytes(name); err != nil {
		logger.Debug("artifact not fingerprinted", "artifact", name, "error", err)
	}
}
