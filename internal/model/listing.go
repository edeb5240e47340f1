package model

import (
	"context"
	"time"
)

// Listing is one scraped posting as delivered by the external collector.
// It is rebuilt fresh on every run and never persisted directly.
type Listing struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Source   string `json:"source"`   // portal name (jobs.ch, indeed, ...)
	URL      string `json:"link"`     // direct link to the posting
	RawText  string `json:"raw_text"` // raw scraped blob, UID fallback
	Score    int    `json:"score"`    // collector's relevance score
	Match    string `json:"match"`    // collector's match label (exact/good/weak)
	Fit      string `json:"fit"`      // collector's fit verdict (OK/DECISION)
}

// Empty reports whether the listing carries nothing usable for identity
// resolution. Such listings are skipped with a warning, not fatal.
func (l Listing) Empty() bool {
	return l.Title == "" && l.Company == "" && l.RawText == ""
}

// State is a record's position in its handling workflow.
type State string

const (
	StateNew      State = "new"
	StateNotified State = "notified"
	StateApplied  State = "applied"
	StateIgnored  State = "ignored"
	StateClosed   State = "closed"
)

// Open reports whether the record is still awaiting user action.
func (s State) Open() bool {
	return s == StateNew || s == StateNotified
}

// Sticky reports whether the state was set by explicit user action and must
// never be changed by the engine.
func (s State) Sticky() bool {
	return s == StateApplied || s == StateIgnored
}

// Record is the persisted lifecycle record for one UID.
type Record struct {
	UID          string     `json:"job_uid"`
	Source       string     `json:"source"`
	CanonicalURL string     `json:"canonical_url"`
	Link         string     `json:"link"`
	Title        string     `json:"title"`
	Company      string     `json:"company"`
	Location     string     `json:"location"`
	Score        int        `json:"score"`
	Match        string     `json:"match"`
	State        State      `json:"status"`
	FirstSeen    time.Time  `json:"first_seen_at"`
	LastSeen     time.Time  `json:"last_seen_at"`
	LastNotified *time.Time `json:"last_sent_at"`
	MissingRuns  int        `json:"missing_runs"`
	Action       string     `json:"action,omitempty"` // manual tracker action word
	Notes        string     `json:"notes,omitempty"`  // manual tracker free text
}

// RecordStore is the in-memory view of the lifecycle store. Load/Save live on
// the concrete file store; the engine and reconciler only need this.
type RecordStore interface {
	Get(uid string) (Record, bool)
	Upsert(rec Record)
	All() []Record
	Len() int
}

// ListingSource produces the current run's batch of scraped listings.
type ListingSource interface {
	Collect(ctx context.Context) ([]Listing, error)
}

// Notifier delivers the run's digest of new and reminder actions.
type Notifier interface {
	Digest(fresh, reminders []Action) error
}
