package analytics

import (
	"bytes"
	"image/png"
	"testing"

	"warscope-bot/internal/storage"
)

func TestSummarize(t *testing.T) {
	report := Summarize([]storage.AuditLog{
		{Event: "mute"},
		{Event: "report"},
		{Event: "mute"},
		{Event: "denied"},
	})
	if report.Total != 4 {
		t.Fatalf("expected 4, got %d", report.Total)
	}
	sorted := report.Sorted()
	if len(sorted) != 3 || sorted[0].Event != "mute" || sorted[0].Count != 2 {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if sorted[1].Event != "denied" || sorted[2].Event != "report" {
		t.Fatalf("expected ties sorted by name: %+v", sorted)
	}
}

func TestDisabledWithoutStore(t *testing.T) {
	if New(nil).Enabled() {
		t.Fatalf("expected disabled service")
	}
}

func TestChart(t *testing.T) {
	empty, err := Report{ByEvent: map[string]int{}}.Chart()
	if err != nil || empty != nil {
		t.Fatalf("expected no chart for empty report, got %d bytes err=%v", len(empty), err)
	}

	report := Summarize([]storage.AuditLog{{Event: "mute"}, {Event: "mute"}, {Event: "purge"}})
	data, err := report.Chart()
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds().Dx(); got != chartWidth {
		t.Fatalf("unexpected width %d", got)
	}
	if got := img.Bounds().Dy(); got != chartMargin*2+2*chartRow {
		t.Fatalf("unexpected height %d", got)
	}
}
