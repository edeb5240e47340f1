// Package source is the boundary to the external collector: it reads the
// JSON export the scraper pipeline writes and hands the engine an ordered
// batch of listings. All network scraping lives outside this repository.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/amishk599/jobradar/internal/model"
)

// FileSource reads a collector export: a JSON array of listing objects.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a source over the export file at path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Collect parses the export. Individual entries that fail to decode are
// skipped with a warning; an unreadable or non-array file is an error since
// it means the collector itself broke.
func (s *FileSource) Collect(ctx context.Context) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading listings export %s: %w", s.path, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing listings export %s: %w", s.path, err)
	}

	listings := make([]model.Listing, 0, len(entries))
	for i, raw := range entries {
		var l model.Listing
		if err := json.Unmarshal(raw, &l); err != nil {
			s.logger.Warn("skipping unparseable listing", "index", i, "error", err)
			continue
		}
		listings = append(listings, l)
	}

	s.logger.Info("collected listings", "path", s.path, "total", len(entries), "parsed", len(listings))
	return listings, nil
}

var _ model.ListingSource = (*FileSource)(nil)
