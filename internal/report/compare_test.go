package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/pwasmoke/internal/model"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	previous := model.NewCheckReport("/srv/app")
	previous.DateChecked = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	previous.AddFinding(model.NewFinding(model.KindMissingFile, model.ArtifactOffline, "offline.html not found"))
	previous.AddFinding(model.NewFinding(model.KindMissingField, model.ArtifactManifest, "manifest.json missing start_url"))
	previous.RecordDigest(model.ArtifactIndex, "aa")
	previous.RecordDigest(model.ArtifactManifest, "bb")

	current := model.NewCheckReport("/srv/app")
	current.DateChecked = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	current.AddFinding(model.NewFinding(model.KindMissingFile, model.ArtifactOffline, "offline.html not found"))
	current.RecordDigest(model.ArtifactIndex, "aa")
	current.RecordDigest(model.ArtifactManifest, "cc")
	current.RecordDigest(model.ArtifactOffline, "dd")

	t.Run("classifies findings and artifacts", func(t *testing.T) {
		t.Parallel()

		c := Compare(previous, current)

		if c.Direction != DirectionImproved {
			t.Errorf("expected improved, got %s", c.Direction)
		}
		if len(c.NewFailures) != 0 {
			t.Errorf("expected no new failures, got %v", c.NewFailures)
		}
		if len(c.ResolvedFailures) != 1 || c.ResolvedFailures[0].Message != "manifest.json missing start_url" {
			t.Errorf("unexpected resolved failures: %v", c.ResolvedFailures)
		}
		if c.UnchangedCount != 1 {
			t.Errorf("expected 1 unchanged finding, got %d", c.UnchangedCount)
		}

		want := []ArtifactChange{
			{Artifact: "manifest.json", Change: ArtifactModified, Previous: "bb", Current: "cc"},
			{Artifact: "offline.html", Change: ArtifactAdded, Current: "dd"},
		}
		if diff := cmp.Diff(want, c.ChangedArtifacts); diff != "" {
			t.Errorf("artifact changes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("reverse comparison worsens", func(t *testing.T) {
		t.Parallel()

		c := Compare(current, previous)
		if c.Direction != DirectionWorsened {
			t.Errorf("expected worsened, got %s", c.Direction)
		}
		if len(c.NewFailures) != 1 {
			t.Errorf("expected one new failure, got %v", c.NewFailures)
		}
		if len(c.ChangedArtifacts) != 2 || c.ChangedArtifacts[1].Change != ArtifactRemoved {
			t.Errorf("expected offline.html removed, got %v", c.ChangedArtifacts)
		}
	})

	t.Run("same run is unchanged", func(t *testing.T) {
		t.Parallel()

		c := Compare(current, current)
		if c.Direction != DirectionUnchanged || len(c.ChangedArtifacts) != 0 {
			t.Errorf("expected no change, got %+v", c)
		}
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteComparisonText(&buf, Compare(previous, current)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{
			"Run Comparison: /srv/app",
			"IMPROVED",
			"[-] manifest.json missing start_url",
			"[modified] manifest.json",
			"Unchanged: 1 findings",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteComparisonJSON(&buf, Compare(previous, current)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded Comparison
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Direction != DirectionImproved || decoded.Previous.Errors != 2 {
			t.Errorf("unexpected decoded comparison: %+v", decoded)
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteComparisonMarkdown(&buf, Compare(previous, current)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{"# Run Comparison: /srv/app", "## Resolved Failures (1)", "~~", "## Changed Artifacts (2)"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", 0: "0", -2: "-2"}
	for in, want := range tests {
		if got := formatDelta(in); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", in, got, want)
		}
	}
}
