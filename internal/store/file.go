// Package store persists the lifecycle records between runs.
//
// The store is a single JSON file, loaded once, mutated in memory, and saved
// once at run end. Concurrent runs are prevented by the CLI's run lock; the
// store itself does no locking.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/amishk599/jobradar/internal/identity"
	"github.com/amishk599/jobradar/internal/model"
)

// schemaVersion tags the on-disk format. Files without a version tag are
// legacy stores and get migrated on load.
const schemaVersion = 1

// envelope is the on-disk shape of a current-format store.
type envelope struct {
	Version int                     `json:"version"`
	Records map[string]model.Record `json:"records"`
}

// FileStore is the persisted UID → Record mapping.
type FileStore struct {
	path    string
	records map[string]model.Record
}

// Open reads the store at path. A missing file yields an empty store. Legacy
// formats (a seen-only UID list, or an unversioned record map) are migrated
// in place and the migrated form is persisted before returning. A corrupt
// file is a hard error: silently resetting would re-notify every tracked
// listing on the next run.
func Open(path string, now time.Time, logger *slog.Logger) (*FileStore, error) {
	s := &FileStore{path: path, records: make(map[string]model.Record)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lifecycle store %s: %w", path, err)
	}

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("lifecycle store %s is corrupt, refusing to reset: %w", path, err)
	}

	switch probe.(type) {
	case []any:
		// Legacy seen-only store: a bare list of keys or listing objects.
		if err := s.migrateSeenList(data, now); err != nil {
			return nil, fmt.Errorf("migrating legacy store %s: %w", path, err)
		}
		logger.Info("migrated legacy seen-only store", "path", path, "records", len(s.records))
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	case map[string]any:
		// Fall through to the struct decode below.
	default:
		return nil, fmt.Errorf("lifecycle store %s is corrupt, refusing to reset: unexpected top-level %T", path, probe)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Version >= schemaVersion {
		for uid, rec := range env.Records {
			rec.UID = uid
			s.records[uid] = rec
		}
		return s, nil
	}

	// Unversioned UID → record map from before the envelope existed.
	var legacy map[string]model.Record
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("lifecycle store %s is corrupt, refusing to reset: %w", path, err)
	}
	for uid, rec := range legacy {
		rec.UID = uid
		if rec.State == "" {
			rec.State = model.StateNotified
		}
		s.records[uid] = rec
	}
	logger.Info("migrated unversioned store", "path", path, "records", len(s.records))
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrateSeenList upgrades a seen-only store. Every entry becomes a full
// record defaulting to notified with a zero missing-run count, so nothing
// already alerted gets re-sent.
func (s *FileStore) migrateSeenList(data []byte, now time.Time) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	stamp := now
	for _, raw := range entries {
		var key string
		if err := json.Unmarshal(raw, &key); err == nil {
			sum := sha256.Sum256([]byte("legacy|" + key))
			uid := hex.EncodeToString(sum[:])[:16]
			s.records[uid] = model.Record{
				UID:          uid,
				Source:       "legacy",
				State:        model.StateNotified,
				FirstSeen:    stamp,
				LastSeen:     stamp,
				LastNotified: &stamp,
			}
			continue
		}

		var l model.Listing
		if err := json.Unmarshal(raw, &l); err != nil {
			return err
		}
		uid := identity.Resolve(l)
		s.records[uid] = model.Record{
			UID:          uid,
			Source:       l.Source,
			CanonicalURL: identity.CanonicalURL(l.URL),
			Link:         l.URL,
			Title:        l.Title,
			Company:      l.Company,
			Location:     l.Location,
			State:        model.StateNotified,
			FirstSeen:    stamp,
			LastSeen:     stamp,
			LastNotified: &stamp,
		}
	}
	return nil
}

// Get returns the record for uid, if present.
func (s *FileStore) Get(uid string) (model.Record, bool) {
	rec, ok := s.records[uid]
	return rec, ok
}

// Upsert inserts or replaces a record, keyed by its UID.
func (s *FileStore) Upsert(rec model.Record) {
	s.records[rec.UID] = rec
}

// All returns every record sorted by UID for deterministic iteration.
func (s *FileStore) All() []model.Record {
	out := make([]model.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// Len returns the number of records.
func (s *FileStore) Len() int {
	return len(s.records)
}

// Save atomically persists the store: write to a temp file in the same
// directory, then rename over the target. A crash mid-save leaves the
// previous version intact.
func (s *FileStore) Save() error {
	env := envelope{Version: schemaVersion, Records: s.records}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lifecycle store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp store file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting store file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing lifecycle store %s: %w", s.path, err)
	}
	return nil
}

// Ensure FileStore satisfies the engine-facing interface.
var _ model.RecordStore = (*FileStore)(nil)
