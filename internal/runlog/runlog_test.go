package runlog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *RunLog {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordAndRecent(t *testing.T) {
	r := openTestLog(t)
	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := r.Record(Entry{
			RanAt:      base.Add(time.Duration(i) * time.Hour),
			Scraped:    10 + i,
			Unique:     9 + i,
			NewlyAdded: i,
			MailedNew:  i,
			Reminders:  1,
			Closed:     0,
			StateTotal: 20 + i,
			DryRun:     i == 2,
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	entries, err := r.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Scraped != 12 || entries[1].Scraped != 11 {
		t.Errorf("order wrong: scraped = %d, %d; want 12, 11", entries[0].Scraped, entries[1].Scraped)
	}
	if !entries[0].DryRun {
		t.Error("dry_run flag lost on the newest entry")
	}
	if entries[1].DryRun {
		t.Error("dry_run flag set on a real run")
	}
}

func TestRecentOnEmptyLog(t *testing.T) {
	r := openTestLog(t)

	entries, err := r.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	r1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := r1.Record(Entry{RanAt: time.Now().UTC(), Scraped: 1}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	r1.Close()

	r2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer r2.Close()

	entries, err := r2.Recent(5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1 after reopen", len(entries))
	}
}
