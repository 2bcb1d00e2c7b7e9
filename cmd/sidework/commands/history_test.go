package commands

import (
	"testing"
	"time"

	"github.com/helena/sidework/internal/history"
)

func TestRecordToEntry(t *testing.T) {
	started := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	rec := &history.Record{
		ID:          "abc123",
		Description: "test suite",
		Command:     "go test ./...",
		Status:      history.StatusCompleted,
		Result:      "completed in 1.2s",
		StartedAt:   started,
		FinishedAt:  started.Add(1200 * time.Millisecond),
		Duration:    1200 * time.Millisecond,
		LogLines:    42,
	}

	e := recordToEntry(rec)
	if e.ID != "abc123" || e.Status != "completed" {
		t.Errorf("entry = %+v", e)
	}
	if e.DurationMS != 1200 {
		t.Errorf("DurationMS = %d, want 1200", e.DurationMS)
	}
	if e.Progress != nil {
		t.Errorf("Progress = %v, want nil without progress", *e.Progress)
	}
}

func TestRecordToEntryProgress(t *testing.T) {
	rec := &history.Record{
		ID:           "def456",
		Status:       history.StatusFailed,
		Error:        "exit status 2",
		LastProgress: 0.5,
		HasProgress:  true,
	}

	e := recordToEntry(rec)
	if e.Progress == nil || *e.Progress != 0.5 {
		t.Errorf("Progress = %v, want 0.5", e.Progress)
	}
	if e.Error != "exit status 2" {
		t.Errorf("Error = %q", e.Error)
	}
}
