package audit

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
)

// rasterExtensions are icon formats that can embed EXIF metadata.
var rasterExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".tif":  true,
	".tiff": true,
	".heic": true,
}

// identifyingTags are EXIF tags that reveal where, with what or by whom an
// image was made. Icons are published with the app, so these leak to every
// visitor.
var identifyingTags = map[string]bool{
	"GPSLatitude":        true,
	"GPSLongitude":       true,
	"Make":               true,
	"Model":              true,
	"SerialNumber":       true,
	"CameraSerialNumber": true,
	"BodySerialNumber":   true,
	"LensSerialNumber":   true,
	"Software":           true,
	"ProcessingSoftware": true,
	"Artist":             true,
	"Copyright":          true,
	"XPAuthor":           true,
}

// IconsStep checks that every icon listed in manifest.json exists and that
// raster icons carry no identifying EXIF metadata.
type IconsStep struct {
	logger *slog.Logger
}

// NewIconsStep creates the icon audit step. A nil logger uses slog.Default().
func NewIconsStep(logger *slog.Logger) *IconsStep {
	return &IconsStep{logger: loggerOrDefault(logger)}
}

// Name returns the step name.
func (s *IconsStep) Name() string {
	return "icons"
}

// Do executes the icon audit.
func (s *IconsStep) Do(ctx context.Context, st *checker.State) error {
	if !st.Exists(model.ArtifactManifest) {
		return nil
	}
	manifest, err := st.Manifest()
	if err != nil {
		return nil
	}

	for _, src := range IconSources(manifest) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name, ok := site.ResolveRef(src)
		if !ok {
			s.logger.Debug("icon is not local", "src", src)
			continue
		}

		if !st.Site.IsFile(name) {
			st.Report.AddFinding(model.NewWarning(model.KindMissingFile, name,
				fmt.Sprintf("icon %s listed in manifest.json not found", src)).WithCheck(s.Name()))
			continue
		}

		if !rasterExtensions[strings.ToLower(path.Ext(name))] {
			continue
		}

		data, err := st.Bytes(name)
		if err != nil {
			s.logger.Debug("icon unreadable", "icon", name, "error", err)
			continue
		}

		if tags := IdentifyingEXIFTags(data); len(tags) > 0 {
			st.Report.AddFinding(model.NewWarning(model.KindContentMismatch, name,
				fmt.Sprintf("icon %s carries EXIF metadata: %s", src, strings.Join(tags, ", "))).
				WithCheck(s.Name()).
				WithValue(strings.Join(tags, ",")))
		}
	}
	return nil
}

// IconSources returns the src of every icon entry in a decoded manifest,
// in manifest order. Entries without a string src are skipped; the schema
// audit reports them.
func IconSources(manifest map[string]any) []string {
	icons, ok := manifest["icons"].([]any)
	if !ok {
		return nil
	}

	sources := make([]string, 0, len(icons))
	for _, icon := range icons {
		entry, ok := icon.(map[string]any)
		if !ok {
			continue
		}
		if src, ok := entry["src"].(string); ok && src != "" {
			sources = append(sources, src)
		}
	}
	return sources
}

// IdentifyingEXIFTags returns the sorted names of identifying EXIF tags in
// image data. Images without EXIF, or with EXIF that does not parse, have
// none.
func IdentifyingEXIFTags(data []byte) []string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	var tags []string
	for _, entry := range entries {
		if identifyingTags[entry.TagName] && !slices.Contains(tags, entry.TagName) {
			tags = append(tags, entry.TagName)
		}
	}
	slices.Sort(tags)
	return tags
}
