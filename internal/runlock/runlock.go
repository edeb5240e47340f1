// Package runlock prevents two runs from mutating the same store file.
//
// The lock is owned by the CLI, not the core: the engine and store assume
// exclusive access and never lock anything themselves. A lock left behind by
// a crashed run goes stale after its TTL and is taken over.
package runlock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrHeld is returned when another live run holds the lock.
var ErrHeld = errors.New("run lock held by another process")

type payload struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	TTLMin    int       `json:"ttl_min"`
}

// Lock is a held run lock. Release it when the run ends.
type Lock struct {
	path   string
	logger *slog.Logger
}

// Acquire takes the lock at path, stealing it if the holder is stale (older
// than ttl, or an unreadable payload). Returns ErrHeld when a live run owns it.
func Acquire(path string, ttl time.Duration, logger *slog.Logger) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if !stale(path, ttl) {
			return nil, fmt.Errorf("%w: %s", ErrHeld, path)
		}
		logger.Info("removing stale run lock", "path", path)
		os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrHeld, path)
	}
	if err != nil {
		return nil, fmt.Errorf("creating run lock %s: %w", path, err)
	}

	p := payload{PID: os.Getpid(), StartedAt: time.Now().UTC(), TTLMin: int(ttl.Minutes())}
	if err := json.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing run lock payload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing run lock: %w", err)
	}

	logger.Info("run lock acquired", "path", path, "ttl", ttl.String())
	return &Lock{path: path, logger: logger}, nil
}

// Release removes the lock file. Safe to call if it was already removed.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("failed to release run lock", "path", l.path, "error", err)
		return
	}
	l.logger.Info("run lock released", "path", l.path)
}

// stale reports whether the lock at path is past its TTL. A payload that
// cannot be read or parsed counts as stale: better to steal a broken lock
// than to wedge every future run.
func stale(path string, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.StartedAt.IsZero() {
		return true
	}
	return time.Since(p.StartedAt) > ttl
}
