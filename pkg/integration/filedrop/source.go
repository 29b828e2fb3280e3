// Package filedrop implements an event source that reads raw events from
// JSON files dropped into a directory. It is the file-backend counterpart for
// local development and tests: filenames are the fetch cursor, so each file
// is offered exactly once per poller.
package filedrop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
)

type Source struct {
	logger *slog.Logger
	root   string
	source models.SourceType
}

func NewSource(logger *slog.Logger, root string, source models.SourceType) *Source {
	return &Source{
		logger: logger.With("module", "filedrop-source", "source", source),
		root:   root,
		source: source,
	}
}

func (s *Source) Source() models.SourceType {
	return s.source
}

// FetchCandidates returns the events from files lexicographically after the
// cursor, oldest first. The returned cursor is the last filename consumed;
// an empty fetch keeps the cursor unchanged.
func (s *Source) FetchCandidates(ctx context.Context, _ integration.SourceConfig, cursor string, limit int) ([]*models.RawEvent, string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, "", fmt.Errorf("%w: cannot read %s: %w", integration.ErrFetchFailed, s.root, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		if cursor != "" && name <= cursor {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	events := make([]*models.RawEvent, 0, len(names))
	next := cursor

	for _, name := range names {
		next = name

		event, err := s.readEvent(name)
		if err != nil {
			// A malformed file is skipped, not retried: the cursor has
			// already moved past it.
			s.logger.WarnContext(ctx, "Skipping malformed event file", "file", name, "error", err)

			continue
		}

		events = append(events, event)
	}

	return events, next, nil
}

func (s *Source) readEvent(name string) (*models.RawEvent, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return nil, err
	}

	var event models.RawEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	if event.ID == "" {
		event.ID = strings.TrimSuffix(name, ".json")
	}

	if event.Source == "" {
		event.Source = s.source
	}

	return &event, nil
}
