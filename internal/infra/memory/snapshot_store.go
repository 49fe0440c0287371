package memory

import (
	"context"
	"sync"

	"geoquiz-service/internal/domain"
)

// SnapshotStore keeps ultimate session snapshots in process, one per locale.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (s *SnapshotStore) Load(_ context.Context, locale string) (domain.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[locale]
	return snap, ok, nil
}

func (s *SnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	snap.Guesses = append([]domain.Guess(nil), snap.Guesses...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.Locale] = snap
	return nil
}

func (s *SnapshotStore) Clear(_ context.Context, locale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, locale)
	return nil
}

// Len reports how many locales hold a snapshot.
func (s *SnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
