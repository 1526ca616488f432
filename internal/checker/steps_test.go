package checker

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/pwasmoke/internal/model"
	"github.com/nao1215/pwasmoke/internal/site"
	"github.com/nao1215/pwasmoke/internal/site/sitetest"
)

// check runs the core pipeline against an in-memory root.
func check(t *testing.T, fsys fstest.MapFS, opts ...CheckOption) *model.CheckReport {
	t.Helper()

	report, err := Check(context.Background(), site.New(fsys, "mem"), opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return report
}

// TestCheck covers the observable behavior of a default run.
func TestCheck(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		fsys fstest.MapFS
		want []string
	}{
		{
			name: "valid root passes",
			fsys: sitetest.ValidPWA(),
			want: []string{},
		},
		{
			name: "root missing all four files",
			fsys: fstest.MapFS{},
			want: []string{
				"index.html not found",
				"manifest.json not found",
				"service-worker.js not found",
				"offline.html not found",
			},
		},
		{
			name: "nav-tab count below threshold names the count",
			fsys: sitetest.WithNavTabs(sitetest.ValidPWA(), 3),
			want: []string{"expected >=4 nav-tab buttons, found 3"},
		},
		{
			name: "more than four nav-tabs passes",
			fsys: sitetest.WithNavTabs(sitetest.ValidPWA(), 6),
			want: []string{},
		},
		{
			name: "zero nav-tabs",
			fsys: sitetest.WithNavTabs(sitetest.ValidPWA(), 0),
			want: []string{"expected >=4 nav-tab buttons, found 0"},
		},
		{
			name: "invalid JSON produces only the parse error",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", `{"name": "x",`),
			want: []string{"manifest.json invalid JSON: unexpected end of JSON input"},
		},
		{
			name: "empty manifest is invalid JSON",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", ""),
			want: []string{"manifest.json invalid JSON: unexpected end of JSON input"},
		},
		{
			name: "non-object manifest is invalid JSON",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", `["name"]`),
			want: []string{"manifest.json invalid JSON: top-level value is not an object"},
		},
		{
			name: "empty short_name gives combined error only",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "manifest.json",
				`{"name": "App", "short_name": "", "start_url": "/"}`),
			want: []string{"manifest.json missing name or short_name"},
		},
		{
			name: "missing name and start_url give two errors",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", `{"short_name": "A"}`),
			want: []string{
				"manifest.json missing name or short_name",
				"manifest.json missing start_url",
			},
		},
		{
			name: "falsy start_url counts as missing",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "manifest.json",
				`{"name": "App", "short_name": "A", "start_url": 0}`),
			want: []string{"manifest.json missing start_url"},
		},
		{
			name: "only service worker and offline page missing",
			fsys: sitetest.Without(sitetest.ValidPWA(), "service-worker.js", "offline.html"),
			want: []string{"service-worker.js not found", "offline.html not found"},
		},
		{
			name: "index without markers reports each one",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "index.html", "<html></html>"),
			want: []string{
				"manifest link not found or not pointing to manifest.json in index.html",
				"service worker registration code not found in index.html",
				"expected >=4 nav-tab buttons, found 0",
				"assessmentForm not found in index.html",
			},
		},
		{
			name: "manifest link pointing elsewhere",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "index.html",
				strings.ReplaceAll(sitetest.IndexHTML, `href="manifest.json"`, `href="app.webmanifest"`)),
			want: []string{"manifest link not found or not pointing to manifest.json in index.html"},
		},
		{
			name: "service worker file name missing",
			fsys: sitetest.WithFile(sitetest.ValidPWA(), "index.html",
				strings.ReplaceAll(sitetest.IndexHTML, "service-worker.js", "sw.js")),
			want: []string{"service worker registration code not found in index.html"},
		},
		{
			name: "missing index skips its content checks",
			fsys: sitetest.Without(sitetest.ValidPWA(), "index.html"),
			want: []string{"index.html not found"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			report := check(t, tc.fsys)
			if diff := cmp.Diff(tc.want, report.Messages()); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
			if report.Passed() != (len(tc.want) == 0) {
				t.Errorf("expected passed=%v, got %v", len(tc.want) == 0, report.Passed())
			}
		})
	}
}

// TestCheckFindingKinds verifies the taxonomy attached to each message.
func TestCheckFindingKinds(t *testing.T) {
	t.Parallel()

	fsys := sitetest.WithFile(sitetest.WithNavTabs(sitetest.ValidPWA(), 2), "manifest.json", `{"name": "x"}`)
	fsys = sitetest.Without(fsys, "offline.html")

	report := check(t, fsys)

	type kindAndCheck struct {
		Kind  model.Kind
		Check string
		Value string
	}
	got := make([]kindAndCheck, len(report.Findings))
	for i, f := range report.Findings {
		got[i] = kindAndCheck{Kind: f.Kind, Check: f.Check, Value: f.Value}
	}

	want := []kindAndCheck{
		{Kind: model.KindContentMismatch, Check: "index", Value: "2"},
		{Kind: model.KindMissingField, Check: "manifest"},
		{Kind: model.KindMissingField, Check: "manifest"},
		{Kind: model.KindMissingFile, Check: "offline"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
	for _, f := range report.Findings {
		if f.Severity != model.SeverityError {
			t.Errorf("expected core finding to be an error, got %v", f.Severity)
		}
	}
}

// TestCheckUnreadableArtifacts covers artifacts that exist but are directories.
func TestCheckUnreadableArtifacts(t *testing.T) {
	t.Parallel()

	fsys := sitetest.Without(sitetest.ValidPWA(), "index.html", "manifest.json", "offline.html")
	fsys["index.html/keep"] = &fstest.MapFile{Data: []byte("x")}
	fsys["manifest.json/keep"] = &fstest.MapFile{Data: []byte("x")}
	fsys["offline.html/keep"] = &fstest.MapFile{Data: []byte("x")}

	report := check(t, fsys)

	want := []string{
		"index.html could not be read: is a directory",
		"manifest.json could not be read: is a directory",
	}
	if diff := cmp.Diff(want, report.Messages()); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	for _, f := range report.Findings {
		if f.Kind != model.KindMalformedData {
			t.Errorf("expected malformed data, got %v", f.Kind)
		}
	}
	if _, ok := report.Digests["offline.html"]; ok {
		t.Error("expected no digest for a directory")
	}
}

// TestCheckAllowComments covers comment stripping in manifest.json.
func TestCheckAllowComments(t *testing.T) {
	t.Parallel()

	manifest := `{
  // display name
  "name": "App",
  "short_name": "A", /* home screen */
  "start_url": "/",
}`
	fsys := sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", manifest)

	t.Run("comments are rejected by default", func(t *testing.T) {
		t.Parallel()
		report := check(t, fsys)
		if len(report.Findings) != 1 || !strings.HasPrefix(report.Findings[0].Message, "manifest.json invalid JSON: ") {
			t.Errorf("expected one invalid JSON finding, got %v", report.Messages())
		}
	})

	t.Run("comments are stripped when allowed", func(t *testing.T) {
		t.Parallel()
		report := check(t, fsys, WithAllowComments(true))
		if !report.Passed() {
			t.Errorf("expected pass, got %v", report.Messages())
		}
	})
}

// TestCheckByteOrderMark verifies a BOM does not break manifest parsing.
func TestCheckByteOrderMark(t *testing.T) {
	t.Parallel()

	fsys := sitetest.WithFile(sitetest.ValidPWA(), "manifest.json", "\ufeff"+sitetest.ManifestJSON)
	report := check(t, fsys)
	if !report.Passed() {
		t.Errorf("expected pass, got %v", report.Messages())
	}
}

// TestCheckDigests verifies every readable artifact is fingerprinted.
func TestCheckDigests(t *testing.T) {
	t.Parallel()

	report := check(t, sitetest.ValidPWA())

	for _, artifact := range model.Artifacts() {
		digest, ok := report.Digests[artifact]
		if !ok {
			t.Errorf("expected digest for %s", artifact)
			continue
		}
		if want := site.DigestBytes(sitetest.ValidPWA()[artifact].Data); digest != want {
			t.Errorf("digest mismatch for %s: got %s, want %s", artifact, digest, want)
		}
	}
}

// TestCheckIdempotent runs twice against an unchanged root.
func TestCheckIdempotent(t *testing.T) {
	t.Parallel()

	fsys := sitetest.WithNavTabs(sitetest.Without(sitetest.ValidPWA(), "offline.html"), 1)

	first := check(t, fsys)
	second := check(t, fsys)

	if diff := cmp.Diff(first.Messages(), second.Messages()); diff != "" {
		t.Errorf("messages differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Digests, second.Digests); diff != "" {
		t.Errorf("digests differ between runs (-first +second):\n%s", diff)
	}
	if first.RunID == second.RunID {
		t.Error("expected distinct run ids")
	}
}

// TestCheckStrictFlag verifies audit steps only run when configured.
func TestCheckStrictFlag(t *testing.T) {
	t.Parallel()

	t.Run("no audit step runs by default", func(t *testing.T) {
		t.Parallel()
		report := check(t, sitetest.ValidPWA())
		if report.Strict {
			t.Error("expected Strict to be false")
		}
		if diff := cmp.Diff([]string{"index", "manifest", "service_worker", "offline"}, report.PerformedSteps); diff != "" {
			t.Errorf("performed steps mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("audit findings follow core findings", func(t *testing.T) {
		t.Parallel()
		audit := funcStep{name: "audit", fn: func(_ context.Context, st *State) error {
			st.Report.AddFinding(model.NewWarning(model.KindMissingFile, "icons/x.png", "icon icons/x.png not found"))
			return nil
		}}

		report := check(t, sitetest.Without(sitetest.ValidPWA(), "offline.html"), WithAuditSteps(audit))
		if !report.Strict {
			t.Error("expected Strict to be true")
		}
		want := []string{"offline.html not found", "icon icons/x.png not found"}
		if diff := cmp.Diff(want, report.Messages()); diff != "" {
			t.Errorf("messages mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestTruthy pins the falsy values of decoded JSON.
func TestTruthy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero", float64(0), false},
		{"non-zero", float64(-1), true},
		{"empty string", "", false},
		{"space", " ", true},
		{"empty array", []any{}, false},
		{"array", []any{"x"}, true},
		{"empty object", map[string]any{}, false},
		{"object", map[string]any{"a": nil}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Truthy(tc.value); got != tc.want {
				t.Errorf("Truthy(%#v) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

// TestRun tests the root-path entry point.
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("valid directory passes", func(t *testing.T) {
		t.Parallel()
		root := sitetest.WriteDir(t, sitetest.ValidPWA())

		passed, messages, err := Run(context.Background(), root)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !passed || len(messages) != 0 {
			t.Errorf("expected pass, got %v %v", passed, messages)
		}
	})

	t.Run("empty directory fails with four messages", func(t *testing.T) {
		t.Parallel()

		passed, messages, err := Run(context.Background(), t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if passed || len(messages) != 4 {
			t.Errorf("expected four failures, got %v %v", passed, messages)
		}
	})

	t.Run("empty root is an error", func(t *testing.T) {
		t.Parallel()

		if _, _, err := Run(context.Background(), ""); err == nil {
			t.Error("expected error for empty root")
		}
	})
}
