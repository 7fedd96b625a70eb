package manifest

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/landing-ops/pkg/storage"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 4, 2, 10, 30, 0, 0, time.UTC)
	m := Summarize("AUTO", []ItemSummary{
		{RunID: 3, OK: true, Status: StatusOK, Overall: "PASS"},
		{RunID: 1, OK: true, Status: StatusWarn, Overall: "FAIL", Hint: "blocked"},
		{RunID: 9, Status: StatusErr, ErrorType: "not_found"},
	}, now)

	if m.Total != 3 || m.OK != 1 || m.Warn != 1 || m.Failed != 1 {
		t.Errorf("Summarize() counts = %d/%d/%d/%d", m.Total, m.OK, m.Warn, m.Failed)
	}
	if m.Verdicts["PASS"] != 1 || m.Verdicts["FAIL"] != 1 {
		t.Errorf("Verdicts = %v", m.Verdicts)
	}
	if m.Results[0].RunID != 3 || m.Results[2].RunID != 9 {
		t.Errorf("Results order = %+v, want input order", m.Results)
	}
	if m.GeneratedAt != "2025-04-02T10:30:00Z" {
		t.Errorf("GeneratedAt = %q", m.GeneratedAt)
	}
}

func TestSave(t *testing.T) {
	sink := storage.NewLocal(t.TempDir())
	m := Summarize("EXPORT", []ItemSummary{{RunID: 1, OK: true, Status: StatusOK}}, time.Date(2025, 4, 2, 10, 30, 0, 0, time.UTC))

	loc, err := Save(context.Background(), &m, sink)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasSuffix(loc, "bulk-export-20250402-103000.json") {
		t.Errorf("Save() location = %q", loc)
	}
	if m.Location != loc {
		t.Errorf("Location = %q, want %q", m.Location, loc)
	}

	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got BulkManifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("saved manifest is not JSON: %v", err)
	}
	if got.Action != "EXPORT" || got.Total != 1 {
		t.Errorf("saved manifest = %+v", got)
	}
}
