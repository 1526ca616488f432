package audit

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/pwasmoke/internal/checker"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
	"github.com/nao1215/pwasmoke/internal/site/sitetest"
)

// strictCheck runs the core and audit steps against an in-memory root.
func strictCheck(t *testing.T, fsys fstest.MapFS) *model.CheckReport {
	t.Helper()

	report, err := checker.Check(context.Background(), site.New(fsys, "mem"),
		checker.WithAuditSteps(Steps(nil)...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return report
}

// findingsOf returns the messages recorded by one step.
func findingsOf(report *model.CheckReport, step string) []string {
	messages := make([]string, 0)
	for _, f := range report.Findings {
		if f.Check == step {
			messages = append(messages, f.Message)
		}
	}
	return messages
}

// tiffWithMake returns a little-endian TIFF blob whose IFD0 holds a single
// Make tag.
func tiffWithMake(vendor string) []byte {
	value := append([]byte(vendor), 0)

	buf := []byte{'I', 'I', 0x2a, 0x00}
	buf = binary.LittleEndian.AppendUint32(buf, 8)

	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = binary.LittleEndian.AppendUint16(buf, 0x010f)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
	buf = binary.LittleEndian.AppendUint32(buf, 26)
	buf = binary.LittleEndian.AppendUint32(buf, 0)

	return append(buf, value...)
}

// TestSteps verifies the audit order and that a valid root is clean.
func TestSteps(t *testing.T) {
	t.Parallel()

	report := strictCheck(t, sitetest.ValidPWA())

	if !report.Passed() {
		t.Errorf("expected valid root to pass the audit, got %v", report.Messages())
	}
	want := []string{"index", "manifest", "service_worker", "offline", "dom", "manifest_schema", "icons", "precache"}
	if diff := cmp.Diff(want, report.PerformedSteps); diff != "" {
		t.Errorf("performed steps mismatch (-want +got):\n%s", diff)
	}
	if !report.Strict {
		t.Error("expected Strict to be true")
	}
}

// TestAuditSkipsMissingArtifacts verifies audit steps leave missing files
// to the core steps.
func TestAuditSkipsMissingArtifacts(t *testing.T) {
	t.Parallel()

	t.Run("empty root only has core findings", func(t *testing.T) {
		t.Parallel()
		report := strictCheck(t, fstest.MapFS{})
		if len(report.Findings) != 4 {
			t.Errorf("expected four core findings, got %v", report.Messages())
		}
		if n := report.CountBySeverity(model.SeverityWarning); n != 0 {
			t.Errorf("expected no warnings, got %d", n)
		}
	})

	t.Run("invalid manifest skips manifest audits", func(t *testing.T) {
		t.Parallel()
		report := strictCheck(t, sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", "{"))
		if got := findingsOf(report, "manifest_schema"); len(got) != 0 {
			t.Errorf("expected no schema findings, got %v", got)
		}
		if got := findingsOf(report, "icons"); len(got) != 0 {
			t.Errorf("expected no icon findings, got %v", got)
		}
	})
}

// TestAuditFindingsAreWarnings verifies audit findings carry warning
// severity and still fail the run.
func TestAuditFindingsAreWarnings(t *testing.T) {
	t.Parallel()

	report := strictCheck(t, sitetest.Without(sitetest.ValidPWA(), "app.js", "icons/icon-192.png"))

	if report.Passed() {
		t.Fatal("expected audit findings to fail the run")
	}
	if len(findingsOf(report, "dom")) == 0 || len(findingsOf(report, "icons")) == 0 {
		t.Fatalf("expected dom and icons findings, got %v", report.Messages())
	}
	for _, f := range report.Findings {
		if f.Severity != model.SeverityWarning {
			t.Errorf("expected %s severity for %q, got %s", model.SeverityWarning, f.Message, f.Severity)
		}
	}
	if n := report.CountBySeverity(model.SeverityError); n != 0 {
		t.Errorf("expected no error findings, got %d", n)
	}
}

// TestDOMStep tests the index.html structure audit.
func TestDOMStep(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		index string
		want  []string
	}{
		{
			name:  "missing script",
			index: strings.Replace(sitetest.IndexHTML, `src="app.js"`, `src="js/main.js?v=2"`, 1),
			want:  []string{"script js/main.js?v=2 referenced by index.html not found"},
		},
		{
			name: "remote script is not checked",
			index: strings.Replace(sitetest.IndexHTML, `src="app.js"`,
				`src="https://cdn.example.com/lib.js"`, 1),
			want: []string{},
		},
		{
			name:  "tab without target section",
			index: strings.Replace(sitetest.IndexHTML, `<section id="history">`, `<section id="log">`, 1),
			want:  []string{`nav-tab data-tab "history" in index.html does not match any element id`},
		},
		{
			name: "tab without data-tab",
			index: strings.Replace(sitetest.IndexHTML,
				`<button class="nav-tab" data-tab="settings">`, `<button class="nav-tab">`, 1),
			want: []string{"nav-tab 4 in index.html has no data-tab attribute"},
		},
		{
			name: "manifest link without href",
			index: strings.Replace(sitetest.IndexHTML,
				`<link rel="manifest" href="manifest.json">`,
				`<link rel="manifest"><!-- manifest.json -->`, 1),
			want: []string{"manifest link in index.html has no href"},
		},
		{
			name: "manifest marker only in a comment",
			index: strings.Replace(sitetest.IndexHTML,
				`<link rel="manifest" href="manifest.json">`,
				`<!-- <link rel="manifest" href="manifest.json"> -->`, 1),
			want: []string{`index.html has no <link rel="manifest"> element`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			report := strictCheck(t, sitetest.WithFile(sitetest.ValidPWA(), "index.html", tc.index))
			if diff := cmp.Diff(tc.want, findingsOf(report, "dom")); diff != "" {
				t.Errorf("dom findings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParseDocument tests element extraction.
func TestParseDocument(t *testing.T) {
	t.Parallel()

	content := `<html><head>
<LINK REL="Manifest" href="/app.webmanifest">
<link rel="stylesheet" href="style.css">
</head><body>
<div class="nav-tabs"><a class="nav-tab active" data-tab="one">1</a></div>
<section id="one"></section>
<script src="a.js"></script><script>inline()</script>
</body></html>`

	doc, err := ParseDocument(strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"/app.webmanifest"}, doc.ManifestLinks); diff != "" {
		t.Errorf("manifest links mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.js"}, doc.Scripts); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NavTab{{Tag: "a", Target: "one", HasTarget: true}}, doc.NavTabs); diff != "" {
		t.Errorf("nav tabs mismatch (-want +got):\n%s", diff)
	}
	if !doc.IDs["one"] {
		t.Error("expected id one to be collected")
	}
}

// TestManifestSchemaStep tests schema validation findings.
func TestManifestSchemaStep(t *testing.T) {
	t.Parallel()

	t.Run("smoke-valid manifest without icons", func(t *testing.T) {
		t.Parallel()

		report := strictCheck(t, sitetest.WithFile(sitetest.ValidPWA(), "manifest.json",
			`{"name": "App", "short_name": "A", "start_url": "/"}`))
		got := findingsOf(report, "manifest_schema")
		if len(got) != 1 {
			t.Fatalf("expected one schema finding, got %v", got)
		}
		if !strings.HasPrefix(got[0], "manifest.json schema violation at /: ") || !strings.Contains(got[0], "icons") {
			t.Errorf("unexpected message %q", got[0])
		}
		if report.Findings[0].Kind != model.KindMalformedData {
			t.Errorf("expected malformed data, got %v", report.Findings[0].Kind)
		}
	})

	t.Run("violations are located", func(t *testing.T) {
		t.Parallel()

		violations := ValidateManifest(map[string]any{
			"name":       "App",
			"short_name": "A",
			"start_url":  "/",
			"display":    "window",
			"icons":      []any{map[string]any{"src": "i.png", "sizes": "big"}},
		})
		if len(violations) != 2 {
			t.Fatalf("expected two violations, got %v", violations)
		}
		if !strings.HasPrefix(violations[0], "/display: ") {
			t.Errorf("expected display violation first, got %q", violations[0])
		}
		if !strings.HasPrefix(violations[1], "/icons/0/sizes: ") {
			t.Errorf("expected sizes violation second, got %q", violations[1])
		}
	})

	t.Run("valid manifest has no violations", func(t *testing.T) {
		t.Parallel()

		st := checker.NewState(site.New(sitetest.ValidPWA(), "mem"), model.NewCheckReport("mem"))
		manifest, err := st.Manifest()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v := ValidateManifest(manifest); len(v) != 0 {
			t.Errorf("expected no violations, got %v", v)
		}
	})
}

// TestIconsStep tests icon existence and metadata checks.
func TestIconsStep(t *testing.T) {
	t.Parallel()

	t.Run("missing icon", func(t *testing.T) {
		t.Parallel()

		report := strictCheck(t, sitetest.Without(sitetest.ValidPWA(), "icons/icon-512.png"))
		want := []string{"icon icons/icon-512.png listed in manifest.json not found"}
		if diff := cmp.Diff(want, findingsOf(report, "icons")); diff != "" {
			t.Errorf("icon findings mismatch (-want +got):\n%s", diff)
		}
		if f := report.FindingsForArtifact("icons/icon-512.png"); len(f) == 0 || f[0].Kind != model.KindMissingFile {
			t.Errorf("expected missing file finding, got %v", f)
		}
	})

	t.Run("icon with camera metadata", func(t *testing.T) {
		t.Parallel()

		data := append(append([]byte{}, sitetest.PNG...), tiffWithMake("Canon")...)
		fsys := sitetest.ValidPWA()
		fsys["icons/icon-192.png"] = &fstest.MapFile{Data: data}

		report := strictCheck(t, fsys)
		want := []string{"icon icons/icon-192.png carries EXIF metadata: Make"}
		if diff := cmp.Diff(want, findingsOf(report, "icons")); diff != "" {
			t.Errorf("icon findings mismatch (-want +got):\n%s", diff)
		}
		if _, ok := report.Digests["icons/icon-192.png"]; !ok {
			t.Error("expected the inspected icon to be fingerprinted")
		}
	})

	t.Run("vector and remote icons are not inspected", func(t *testing.T) {
		t.Parallel()

		manifest := `{"name": "App", "short_name": "A", "start_url": "/", "icons": [
  {"src": "icons/icon.svg"},
  {"src": "https://cdn.example.com/icon.png"}
]}`
		fsys := sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", manifest)
		fsys["icons/icon.svg"] = &fstest.MapFile{Data: []byte("<svg/>")}

		report := strictCheck(t, fsys)
		if got := findingsOf(report, "icons"); len(got) != 0 {
			t.Errorf("expected no icon findings, got %v", got)
		}
		if _, ok := report.Digests["icons/icon.svg"]; ok {
			t.Error("expected svg icon not to be read")
		}
	})
}

// TestIconSources tests icon src extraction.
func TestIconSources(t *testing.T) {
	t.Parallel()

	manifest := map[string]any{
		"icons": []any{
			map[string]any{"src": "a.png"},
			map[string]any{"sizes": "48x48"},
			"b.png",
			map[string]any{"src": 3.0},
			map[string]any{"src": "c.png"},
		},
	}
	if diff := cmp.Diff([]string{"a.png", "c.png"}, IconSources(manifest)); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if got := IconSources(map[string]any{"icons": "a.png"}); len(got) != 0 {
		t.Errorf("expected no sources, got %v", got)
	}
}

// TestIdentifyingEXIFTags tests metadata extraction on raw image bytes.
func TestIdentifyingEXIFTags(t *testing.T) {
	t.Parallel()

	if tags := IdentifyingEXIFTags(sitetest.PNG); len(tags) != 0 {
		t.Errorf("expected no tags for a plain PNG, got %v", tags)
	}
	if tags := IdentifyingEXIFTags(nil); len(tags) != 0 {
		t.Errorf("expected no tags for empty data, got %v", tags)
	}
	if diff := cmp.Diff([]string{"Make"}, IdentifyingEXIFTags(tiffWithMake("Nikon"))); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

// TestPrecacheEntries tests precache list extraction.
func TestPrecacheEntries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		script string
		want   []string
		found  bool
	}{
		{
			name:   "json with comments and trailing comma",
			script: sitetest.ServiceWorkerJS,
			want: []string{"./", "index.html", "manifest.json",
				"icons/icon-192.png", "icons/icon-512.png", "offline.html"},
			found: true,
		},
		{
			name:   "single quoted entries",
			script: "const PRECACHE_ASSETS = ['./', 'index.html', `app.js`];",
			want:   []string{"./", "index.html", "app.js"},
			found:  true,
		},
		{
			name:   "empty list",
			script: "let PRECACHE_ASSETS=[];",
			want:   []string{},
			found:  true,
		},
		{
			name:   "no list",
			script: "self.addEventListener('fetch', () => {});",
			found:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, found := PrecacheEntries(tc.script)
			if found != tc.found {
				t.Fatalf("expected found=%v, got %v", tc.found, found)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestPrecacheStep tests the precache audit.
func TestPrecacheStep(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		sw   string
		want []string
	}{
		{
			name: "stale entry",
			sw:   `const PRECACHE_ASSETS = ["index.html", "styles.css", "offline.html"];`,
			want: []string{"precached asset styles.css not found"},
		},
		{
			name: "offline page not precached",
			sw:   `const PRECACHE_ASSETS = ["/index.html", "https://fonts.example.com/a.woff2"];`,
			want: []string{"offline.html is not precached by service-worker.js"},
		},
		{
			name: "no precache list",
			sw:   `self.addEventListener("fetch", () => {});`,
			want: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			report := strictCheck(t, sitetest.WithFile(sitetest.ValidPWA(), "service-worker.js", tc.sw))
			if diff := cmp.Diff(tc.want, findingsOf(report, "precache")); diff != "" {
				t.Errorf("precache findings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
