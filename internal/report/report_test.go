package report

import (
	"bytes"
	"strings"
	"testing"

	"bindery/internal/catalog"
	"bindery/internal/scan"
)

func TestRunRendering(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)

	run := &catalog.Run{ID: "run-1", Mode: "in-place", Committed: 4, Quarantined: 1, Failed: 2}
	records := []catalog.Record{
		{SourcePath: "/b/ok.txt", Status: catalog.StatusCommitted},
		{SourcePath: "/b/bad.pdf", Status: catalog.StatusFailed, ErrorMessage: "corrupt pdf"},
	}
	writer.Run(run, records)

	out := buf.String()
	for _, want := range []string{"run-1", "in-place", "Committed", "4", "/b/bad.pdf", "corrupt pdf"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "/b/ok.txt") {
		t.Fatalf("committed files should not be listed as problems:\n%s", out)
	}
	if strings.Contains(out, ansiBlue) {
		t.Fatal("non-terminal writer must not colorize")
	}
}

func TestSurveyRendering(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Survey([]scan.ExtensionStat{
		{Ext: ".epub", Count: 12, Extractable: true},
		{Ext: ".mobi", Count: 3, Detail: "no reader registered"},
		{Ext: "", Count: 1, Detail: "no reader registered"},
	})

	out := buf.String()
	for _, want := range []string{".epub", "12", "yes", ".mobi", "no reader registered", "(none)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
