package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/pkg/storage"
)

// Summarize aggregates per-item results in their given order.
func Summarize(action string, items []ItemSummary, now time.Time) BulkManifest {
	m := BulkManifest{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Action:      action,
		Total:       len(items),
		Verdicts:    make(map[string]int),
		Results:     make([]ItemSummary, 0, len(items)),
	}

	for _, item := range items {
		switch item.Status {
		case StatusOK:
			m.OK++
		case StatusWarn:
			m.Warn++
		default:
			m.Failed++
		}
		if item.Overall != "" {
			m.Verdicts[item.Overall]++
		}
		m.Results = append(m.Results, item)
	}
	return m
}

// Save writes the manifest as indented JSON through sink and records the
// location on m.
func Save(ctx context.Context, m *BulkManifest, sink storage.Sink) (string, error) {
	ts, err := time.Parse(time.RFC3339, m.GeneratedAt)
	if err != nil {
		ts = time.Now().UTC()
	}
	key := fmt.Sprintf("bulk/bulk-%s-%s.json", strings.ToLower(m.Action), ts.Format("20060102-150405"))

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	loc, err := sink.Put(ctx, key, data, "application/json")
	if err != nil {
		return "", fmt.Errorf("failed to save manifest: %w", err)
	}
	m.Location = loc
	return loc, nil
}
