package service

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/1sec-project/forensec/internal/forensics"
	"github.com/1sec-project/forensec/internal/ingest"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Snapshot is one immutable ingestion of the log source. Queries read a
// Snapshot and never write to it.
type Snapshot struct {
	ID       string
	Source   string
	LoadedAt time.Time
	Stats    ingest.Stats
	records  []forensics.Record
}

// NewSnapshot wraps records read from source. The slice is copied.
func NewSnapshot(source string, records []forensics.Record, stats ingest.Stats) *Snapshot {
	return &Snapshot{
		ID:       uuid.New().String(),
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Stats:    stats,
		records:  append([]forensics.Record(nil), records...),
	}
}

// Records returns the snapshot's records. Callers must not modify them.
func (s *Snapshot) Records() []forensics.Record { return s.records }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Store holds the current snapshot. Reload builds a new one and swaps it in;
// a failed reload keeps the previous snapshot.
type Store struct {
	path    string
	loader  *ingest.Loader
	logger  zerolog.Logger
	current atomic.Pointer[Snapshot]
	reloads atomic.Int64
}

// NewStore creates a store for path. Call Reload to load it.
func NewStore(path string, loader *ingest.Loader, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		loader: loader,
		logger: logger.With().Str("component", "snapshot_store").Logger(),
	}
}

// Path returns the watched log path.
func (s *Store) Path() string { return s.path }

// Current returns the latest snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Reloads returns how many snapshots have been loaded.
func (s *Store) Reloads() int64 { return s.reloads.Load() }

// Reload ingests the source again and publishes a new snapshot.
func (s *Store) Reload() (*Snapshot, error) {
	records, stats, err := s.loader.LoadFile(s.path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("reload failed, keeping previous snapshot")
		return nil, fmt.Errorf("reloading snapshot: %w", err)
	}

	snap := NewSnapshot(s.path, records, stats)
	prev := s.current.Swap(snap)
	s.reloads.Add(1)

	ev := s.logger.Info().
		Str("snapshot", snap.ID).
		Int("records", snap.Len()).
		Int("skipped", stats.Skipped)
	if prev != nil {
		ev = ev.Str("previous", prev.ID)
	}
	ev.Msg("snapshot loaded")
	return snap, nil
}
