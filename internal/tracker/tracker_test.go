package tracker

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

type memStore struct {
	recs map[string]model.Record
}

func newMemStore(recs ...model.Record) *memStore {
	s := &memStore{recs: make(map[string]model.Record)}
	for _, rec := range recs {
		s.recs[rec.UID] = rec
	}
	return s
}

func (s *memStore) Get(uid string) (model.Record, bool) {
	rec, ok := s.recs[uid]
	return rec, ok
}

func (s *memStore) Upsert(rec model.Record) { s.recs[rec.UID] = rec }

func (s *memStore) All() []model.Record {
	out := make([]model.Record, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

func (s *memStore) Len() int { return len(s.recs) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var seen = time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

func openRecord(uid string) model.Record {
	return model.Record{
		UID:       uid,
		Title:     "IT Supporter",
		Company:   "Acme AG",
		Source:    "jobs.ch",
		Score:     5,
		State:     model.StateNotified,
		FirstSeen: seen.Add(-48 * time.Hour),
		LastSeen:  seen,
	}
}

func TestLoadMissingFileYieldsEmptyMap(t *testing.T) {
	rows, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0", len(rows))
	}
}

func TestApplyActionWord(t *testing.T) {
	cases := []struct {
		action string
		want   model.State
	}{
		{"applied", model.StateApplied},
		{"Apply", model.StateApplied},
		{"SENT", model.StateApplied},
		{"ignored", model.StateIgnored},
		{"skip", model.StateIgnored},
		{"no", model.StateIgnored},
	}
	for _, c := range cases {
		st := newMemStore(openRecord("aaaa000000000000"))
		rows := map[string]Row{"aaaa000000000000": {UID: "aaaa000000000000", Action: c.action}}

		if n := Apply(st, rows, discardLogger()); n != 1 {
			t.Errorf("action %q: updates = %d, want 1", c.action, n)
		}
		rec, _ := st.Get("aaaa000000000000")
		if rec.State != c.want {
			t.Errorf("action %q: state = %s, want %s", c.action, rec.State, c.want)
		}
		if rec.Action != c.action {
			t.Errorf("action %q not copied into record", c.action)
		}
	}
}

func TestApplyDoneCheckboxMeansApplied(t *testing.T) {
	for _, done := range []string{"1", "true", "x", "YES", "y", "T"} {
		st := newMemStore(openRecord("aaaa000000000000"))
		rows := map[string]Row{"aaaa000000000000": {UID: "aaaa000000000000", Done: done}}

		Apply(st, rows, discardLogger())
		rec, _ := st.Get("aaaa000000000000")
		if rec.State != model.StateApplied {
			t.Errorf("done %q: state = %s, want applied", done, rec.State)
		}
	}
}

func TestApplyActionWordWinsOverDone(t *testing.T) {
	st := newMemStore(openRecord("aaaa000000000000"))
	rows := map[string]Row{"aaaa000000000000": {UID: "aaaa000000000000", Done: "x", Action: "ignore"}}

	Apply(st, rows, discardLogger())
	rec, _ := st.Get("aaaa000000000000")
	if rec.State != model.StateIgnored {
		t.Errorf("state = %s, want ignored (action word beats checkbox)", rec.State)
	}
}

func TestApplyUnrecognizedMarksLeaveStateAlone(t *testing.T) {
	st := newMemStore(openRecord("aaaa000000000000"))
	rows := map[string]Row{"aaaa000000000000": {UID: "aaaa000000000000", Done: "maybe", Action: "thinking", Notes: "ask Priya"}}

	if n := Apply(st, rows, discardLogger()); n != 0 {
		t.Errorf("updates = %d, want 0 state changes", n)
	}
	rec, _ := st.Get("aaaa000000000000")
	if rec.State != model.StateNotified {
		t.Errorf("state = %s, want notified untouched", rec.State)
	}
	if rec.Action != "thinking" || rec.Notes != "ask Priya" {
		t.Errorf("annotations not carried: %+v", rec)
	}
}

func TestApplyUnknownUIDSkipped(t *testing.T) {
	st := newMemStore(openRecord("aaaa000000000000"))
	rows := map[string]Row{"gone000000000000": {UID: "gone000000000000", Action: "applied"}}

	if n := Apply(st, rows, discardLogger()); n != 0 {
		t.Errorf("updates = %d, want 0", n)
	}
	if st.Len() != 1 {
		t.Errorf("store grew to %d records", st.Len())
	}
}

func TestWriteLoadRoundTripPreservesManualColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	st := newMemStore(openRecord("aaaa000000000000"), openRecord("bbbb000000000000"))
	existing := map[string]Row{
		"aaaa000000000000": {UID: "aaaa000000000000", Done: "x", Action: "applied", Notes: "sent cv, waiting"},
	}

	if err := Write(path, st, existing, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	got := rows["aaaa000000000000"]
	if got.Done != "x" || got.Action != "applied" || got.Notes != "sent cv, waiting" {
		t.Errorf("manual columns lost across rewrite: %+v", got)
	}
	if other := rows["bbbb000000000000"]; other.Done != "" || other.Action != "" {
		t.Errorf("unmarked row picked up marks: %+v", other)
	}
}

func TestWriteElidesClosedUnlessAsked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	closed := openRecord("cccc000000000000")
	closed.State = model.StateClosed
	st := newMemStore(openRecord("aaaa000000000000"), closed)

	if err := Write(path, st, nil, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, _ := Load(path)
	if _, ok := rows["cccc000000000000"]; ok {
		t.Error("closed record present without include-closed")
	}

	if err := Write(path, st, nil, true); err != nil {
		t.Fatalf("Write include-closed: %v", err)
	}
	rows, _ = Load(path)
	if _, ok := rows["cccc000000000000"]; !ok {
		t.Error("closed record missing with include-closed")
	}
}

func TestWritePreMarksStickyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	applied := openRecord("aaaa000000000000")
	applied.State = model.StateApplied
	st := newMemStore(applied)

	if err := Write(path, st, nil, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows, _ := Load(path)
	got := rows["aaaa000000000000"]
	if got.Done != "x" {
		t.Errorf("done = %q, want x for an applied record", got.Done)
	}
	if got.Action != "applied" {
		t.Errorf("action = %q, want applied", got.Action)
	}
}

func TestLoadForeignCSVWithoutUIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.csv")
	st := newMemStore()
	if err := Write(path, st, nil, false); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Overwrite with a spreadsheet export that lost the uid column.
	if err := os.WriteFile(path, []byte("name,status\nfoo,bar\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %d, want 0 for a file without job_uid", len(rows))
	}
}
