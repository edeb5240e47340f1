// Package engine computes lifecycle state transitions for one scrape run.
//
// One run: fold the fresh batch into the store, sweep records the batch no
// longer contains, and emit the set of notifications the run earned. The
// engine never sets applied or ignored; those arrive only through the
// tracker reconciler and are never overwritten here.
package engine

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/amishk599/jobradar/internal/identity"
	"github.com/amishk599/jobradar/internal/model"
)

// Config carries the collaborator-supplied threshold values. It is passed in
// explicitly; the engine reads no ambient state.
type Config struct {
	MinScore         int  // minimum score for new/reminder eligibility
	ReminderDays     int  // days between reminders for open records; <= 0 means every run
	ReminderDaily    bool // remind on every run regardless of interval
	CloseMissingRuns int  // close after this many consecutive absent runs; 0 disables
	CloseNotSeenDays int  // close once last_seen is this many days old; 0 disables
}

// Engine applies scrape batches to the lifecycle store.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine with the given thresholds.
func New(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Stats summarizes what one ApplyBatch call did, for the run log.
type Stats struct {
	Scraped    int // listings in the incoming batch
	Unique     int // distinct UIDs after in-batch dedup
	NewlyAdded int // records created this run
	Closed     int // records swept to closed this run
	Reopened   int // closed records that reappeared
	Skipped    int // malformed listings dropped
}

// ApplyBatch folds the batch into the store and returns the actions this run
// earned plus bookkeeping stats. The store is mutated but not saved; the
// caller persists it after notifications are recorded.
func (e *Engine) ApplyBatch(batch []model.Listing, st model.RecordStore, now time.Time) (model.ActionSet, Stats) {
	stats := Stats{Scraped: len(batch)}
	seen := make(map[string]bool, len(batch))

	for _, l := range batch {
		if l.Empty() {
			stats.Skipped++
			e.logger.Warn("skipping malformed listing", "source", l.Source, "url", l.URL)
			continue
		}

		uid := identity.Resolve(l)
		if seen[uid] {
			// Same posting scraped twice in one batch (multi-portal overlap).
			continue
		}
		seen[uid] = true

		rec, ok := st.Get(uid)
		if !ok {
			st.Upsert(model.Record{
				UID:          uid,
				Source:       l.Source,
				CanonicalURL: identity.CanonicalURL(l.URL),
				Link:         l.URL,
				Title:        l.Title,
				Company:      l.Company,
				Location:     l.Location,
				Score:        l.Score,
				Match:        l.Match,
				State:        model.StateNew,
				FirstSeen:    now,
				LastSeen:     now,
			})
			stats.NewlyAdded++
			continue
		}

		rec = refresh(rec, l, now)
		if rec.State == model.StateClosed {
			// Reopen policy: a closed posting that reappears comes back as
			// notified when it was ever sent, otherwise as new.
			if rec.LastNotified != nil {
				rec.State = model.StateNotified
			} else {
				rec.State = model.StateNew
			}
			stats.Reopened++
			e.logger.Info("reopened closed record", "uid", uid, "title", rec.Title, "state", rec.State)
		}
		st.Upsert(rec)
	}
	stats.Unique = len(seen)

	actions := e.classify(st, seen, now)
	stats.Closed = e.sweep(st, seen, now)

	return actions, stats
}

// refresh updates a seen record's scrape-derived fields. Sticky states are
// untouched; only presence bookkeeping and display fields change.
func refresh(rec model.Record, l model.Listing, now time.Time) model.Record {
	if l.Title != "" {
		rec.Title = l.Title
	}
	if l.Company != "" {
		rec.Company = l.Company
	}
	if l.Location != "" {
		rec.Location = l.Location
	}
	if l.Source != "" {
		rec.Source = l.Source
	}
	if l.URL != "" {
		rec.Link = l.URL
		rec.CanonicalURL = identity.CanonicalURL(l.URL)
	}
	if l.Score != 0 {
		rec.Score = l.Score
	}
	if l.Match != "" {
		rec.Match = l.Match
	}
	rec.LastSeen = now
	rec.MissingRuns = 0
	return rec
}

// classify picks this run's actions from the records present in the batch.
// Both lists require the minimum score, so sub-threshold listings keep their
// lifecycle advancing without ever being sent.
func (e *Engine) classify(st model.RecordStore, seen map[string]bool, now time.Time) model.ActionSet {
	var out model.ActionSet
	isNew := make(map[string]bool)

	for uid := range seen {
		rec, ok := st.Get(uid)
		if !ok || rec.Score < e.cfg.MinScore {
			continue
		}
		if rec.State == model.StateNew {
			out.New = append(out.New, toAction(rec, model.ReasonNew))
			isNew[uid] = true
		}
	}

	for uid := range seen {
		rec, ok := st.Get(uid)
		if !ok || isNew[uid] || !rec.State.Open() || rec.Score < e.cfg.MinScore {
			continue
		}
		if e.reminderDue(rec.LastNotified, now) {
			out.Reminders = append(out.Reminders, toAction(rec, model.ReasonReminder))
		}
	}

	sortActions(out.New)
	sortActions(out.Reminders)
	return out
}

// reminderDue decides whether an open record's reminder interval has lapsed.
func (e *Engine) reminderDue(lastNotified *time.Time, now time.Time) bool {
	if e.cfg.ReminderDaily {
		return true
	}
	if lastNotified == nil {
		return true
	}
	if e.cfg.ReminderDays <= 0 {
		return true
	}
	return now.Sub(*lastNotified) >= time.Duration(e.cfg.ReminderDays)*24*time.Hour
}

// sweep handles every record absent from the batch: the missing-run counter
// advances for all non-closed records (applied/ignored included, for audit),
// but only open records can transition to closed.
func (e *Engine) sweep(st model.RecordStore, seen map[string]bool, now time.Time) int {
	closed := 0
	for _, rec := range st.All() {
		if seen[rec.UID] || rec.State == model.StateClosed {
			continue
		}
		rec.MissingRuns++

		if rec.State.Open() && e.closeDue(rec, now) {
			rec.State = model.StateClosed
			closed++
			e.logger.Info("closed stale record",
				"uid", rec.UID,
				"title", rec.Title,
				"missing_runs", rec.MissingRuns,
			)
		}
		st.Upsert(rec)
	}
	return closed
}

// closeDue checks the two close rules; whichever configured rule fires first
// wins, and a zero threshold disables its rule.
func (e *Engine) closeDue(rec model.Record, now time.Time) bool {
	if e.cfg.CloseMissingRuns > 0 && rec.MissingRuns >= e.cfg.CloseMissingRuns {
		return true
	}
	if e.cfg.CloseNotSeenDays > 0 && !rec.LastSeen.IsZero() {
		if now.Sub(rec.LastSeen) >= time.Duration(e.cfg.CloseNotSeenDays)*24*time.Hour {
			return true
		}
	}
	return false
}

// MarkNotified records a successful send: every acted-on record moves to
// notified with its last_notified stamped. Called by the run command only
// after the notifier reported success.
func MarkNotified(st model.RecordStore, actions model.ActionSet, now time.Time) {
	stamp := now
	for _, a := range append(append([]model.Action{}, actions.New...), actions.Reminders...) {
		rec, ok := st.Get(a.UID)
		if !ok {
			continue
		}
		rec.State = model.StateNotified
		rec.LastNotified = &stamp
		st.Upsert(rec)
	}
}

// CloseAggregators force-closes non-sticky records from short-lived
// aggregator portals whose links rot within days. Returns how many closed.
func CloseAggregators(st model.RecordStore, sources []string) int {
	if len(sources) == 0 {
		return 0
	}
	set := make(map[string]bool, len(sources))
	for _, s := range sources {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}

	closed := 0
	for _, rec := range st.All() {
		if !set[strings.ToLower(strings.TrimSpace(rec.Source))] {
			continue
		}
		if rec.State.Sticky() || rec.State == model.StateClosed {
			continue
		}
		rec.State = model.StateClosed
		st.Upsert(rec)
		closed++
	}
	return closed
}

func toAction(rec model.Record, reason model.Reason) model.Action {
	return model.Action{
		UID:       rec.UID,
		Reason:    reason,
		Title:     rec.Title,
		Company:   rec.Company,
		Location:  rec.Location,
		URL:       rec.Link,
		Score:     rec.Score,
		FirstSeen: rec.FirstSeen,
	}
}

// sortActions orders by score descending, then first_seen ascending, then
// UID, so the rendered digest is stable across runs.
func sortActions(actions []model.Action) {
	sort.Slice(actions, func(i, j int) bool {
		if actions[i].Score != actions[j].Score {
			return actions[i].Score > actions[j].Score
		}
		if !actions[i].FirstSeen.Equal(actions[j].FirstSeen) {
			return actions[i].FirstSeen.Before(actions[j].FirstSeen)
		}
		return actions[i].UID < actions[j].UID
	})
}
