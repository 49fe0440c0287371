// Package disk persists ultimate session snapshots as JSON files, one per
// locale, for the terminal client.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates dir when missing.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

func (s *SnapshotStore) path(loc string) string {
	return filepath.Join(s.dir, "ultimate-"+locale.Normalize(loc).Base+".json")
}

// Load treats a missing file as no snapshot. Undecodable content is returned
// as ErrSnapshotInvalid so the session starts fresh.
func (s *SnapshotStore) Load(_ context.Context, loc string) (domain.Snapshot, bool, error) {
	raw, err := os.ReadFile(s.path(loc))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("%w: %v", domain.ErrSnapshotInvalid, err)
	}
	return snap, true, nil
}

// Save writes through a temp file and rename so a crash never leaves half a snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(snap.Locale)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Clear(_ context.Context, loc string) error {
	err := os.Remove(s.path(loc))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
