// Package tracker folds manual annotations back into the lifecycle store.
//
// The tracker is a spreadsheet-friendly CSV the user edits by hand: ticking
// the done column or writing an action word is the only way a record ever
// becomes applied or ignored. Each run rewrites the file from the store,
// preserving the manual columns.
package tracker

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amishk599/jobradar/internal/model"
)

var headers = []string{
	"job_uid", "status", "done", "action",
	"title", "company", "location", "source", "link",
	"first_seen_at", "last_seen_at", "last_sent_at",
	"score", "match", "notes",
}

// Marker vocabularies for the manual columns. Deliberately forgiving: the
// file is edited in spreadsheet apps that love to mangle cell contents.
var (
	truthy         = map[string]bool{"1": true, "true": true, "t": true, "yes": true, "y": true, "x": true}
	appliedActions = map[string]bool{"applied": true, "apply": true, "done": true, "sent": true}
	ignoredActions = map[string]bool{"ignored": true, "ignore": true, "skip": true, "no": true}
)

// Row holds the manual columns of one tracker line.
type Row struct {
	UID    string
	Done   string
	Action string
	Notes  string
}

// Load reads the tracker file into a UID-keyed map. A missing file or one
// without a job_uid column yields an empty map, not an error.
func Load(path string) (map[string]Row, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening tracker %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing tracker %s: %w", path, err)
	}
	if len(records) == 0 {
		return map[string]Row{}, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["job_uid"]; !ok {
		return map[string]Row{}, nil
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make(map[string]Row, len(records)-1)
	for _, rec := range records[1:] {
		uid := field(rec, "job_uid")
		if uid == "" {
			continue
		}
		rows[uid] = Row{
			UID:    uid,
			Done:   field(rec, "done"),
			Action: field(rec, "action"),
			Notes:  field(rec, "notes"),
		}
	}
	return rows, nil
}

// Apply folds manual marks into the store and returns how many records
// changed state. Rows for unknown UIDs are logged and skipped; the listing
// may have expired or its UID drifted under the resolver heuristics.
func Apply(st model.RecordStore, rows map[string]Row, logger *slog.Logger) int {
	uids := make([]string, 0, len(rows))
	for uid := range rows {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	updates := 0
	for _, uid := range uids {
		row := rows[uid]
		rec, ok := st.Get(uid)
		if !ok {
			logger.Warn("tracker row for unknown uid, skipping", "uid", uid, "action", row.Action)
			continue
		}

		desired := desiredState(row)
		changed := false
		if desired != "" && rec.State != desired {
			rec.State = desired
			changed = true
		}
		if row.Action != "" && row.Action != rec.Action {
			rec.Action = row.Action
			changed = true
		}
		if row.Notes != "" && row.Notes != rec.Notes {
			rec.Notes = row.Notes
			changed = true
		}
		if changed {
			st.Upsert(rec)
			if desired != "" {
				updates++
			}
		}
	}
	return updates
}

// desiredState maps a row's manual marks to a state. The action word wins
// over the done checkbox; an unrecognized action falls back to the checkbox.
func desiredState(row Row) model.State {
	action := strings.ToLower(strings.TrimSpace(row.Action))
	switch {
	case appliedActions[action]:
		return model.StateApplied
	case ignoredActions[action]:
		return model.StateIgnored
	case truthy[strings.ToLower(strings.TrimSpace(row.Done))]:
		return model.StateApplied
	}
	return ""
}

// Write regenerates the tracker from the store, newest-seen first. Closed
// records are elided unless includeClosed is set; manual columns from the
// previous file survive the rewrite, and applied/ignored records are
// pre-marked so the file reflects the store.
func Write(path string, st model.RecordStore, existing map[string]Row, includeClosed bool) error {
	recs := st.All()
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].LastSeen.After(recs[j].LastSeen)
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating tracker directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating tracker %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("writing tracker header: %w", err)
	}

	for _, rec := range recs {
		if rec.State == model.StateClosed && !includeClosed {
			continue
		}

		done, action, notes := "", rec.Action, rec.Notes
		if prev, ok := existing[rec.UID]; ok {
			if prev.Done != "" {
				done = prev.Done
			}
			if prev.Action != "" {
				action = prev.Action
			}
			if prev.Notes != "" {
				notes = prev.Notes
			}
		}
		if rec.State.Sticky() {
			done = "x"
			if action == "" {
				action = string(rec.State)
			}
		}

		lastSent := ""
		if rec.LastNotified != nil {
			lastSent = rec.LastNotified.UTC().Format("2006-01-02T15:04:05Z")
		}

		row := []string{
			rec.UID,
			string(rec.State),
			done,
			action,
			rec.Title,
			rec.Company,
			rec.Location,
			rec.Source,
			rec.Link,
			rec.FirstSeen.UTC().Format("2006-01-02T15:04:05Z"),
			rec.LastSeen.UTC().Format("2006-01-02T15:04:05Z"),
			lastSent,
			fmt.Sprintf("%d", rec.Score),
			rec.Match,
			notes,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing tracker row %s: %w", rec.UID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing tracker %s: %w", path, err)
	}
	return nil
}
