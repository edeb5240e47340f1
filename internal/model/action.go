package model

import "time"

// Reason says why a listing merits a notification this run.
type Reason string

const (
	ReasonNew      Reason = "new"
	ReasonReminder Reason = "reminder"
)

// Action is one notification the engine wants sent, denormalized so the
// notifier can render a line without touching the store.
type Action struct {
	UID       string
	Reason    Reason
	Title     string
	Company   string
	Location  string
	URL       string
	Score     int
	FirstSeen time.Time
}

// ActionSet is the engine's output for one run. Both slices are ordered by
// score descending, then first_seen ascending, so repeated runs over the same
// data produce identical digests.
type ActionSet struct {
	New       []Action
	Reminders []Action
}

// Empty reports whether the run produced nothing to send.
func (a ActionSet) Empty() bool {
	return len(a.New) == 0 && len(a.Reminders) == 0
}
