package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
)

// CreateSnapshot copies every item currently on the board. Part of the
// SnapshotStore interface.
func (s *memStore) CreateSnapshot(ctx context.Context, snapshot *core.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.BoardID == "" {
		return "", fmt.Errorf("BoardID cannot be empty")
	}
	snapshot.ID = ulid.Make().String()
	snapshot.CreatedAt = s.now()
	snapshot.Items = nil
	for _, item := range s.items {
		if item.BoardID == snapshot.BoardID {
			snapshot.Items = append(snapshot.Items, item.Clone())
		}
	}
	sort.Slice(snapshot.Items, func(i, j int) bool { return snapshot.Items[i].ZIndex < snapshot.Items[j].ZIndex })
	s.snapshots[snapshot.ID] = *snapshot

	logrus.WithFields(logrus.Fields{
		"snapshot_id": snapshot.ID,
		"board_id":    snapshot.BoardID,
		"items":       len(snapshot.Items),
	}).Info("Snapshot created successfully")
	return snapshot.ID, nil
}

// ListSnapshots returns a board's snapshots, newest first, without their items.
func (s *memStore) ListSnapshots(ctx context.Context, boardID string) ([]core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := make([]core.Snapshot, 0)
	for _, snap := range s.snapshots {
		if snap.BoardID != boardID {
			continue
		}
		snap.Items = nil
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID > snapshots[j].ID })
	return snapshots, nil
}

func (s *memStore) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[id]
	if !ok {
		logrus.WithField("snapshot_id", id).Warn("Snapshot with specified ID not found")
		return nil, fmt.Errorf("snapshot with id %s %w", id, core.ErrNotFound)
	}
	return &snap, nil
}

func (s *memStore) DeleteSnapshot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[id]; !ok {
		return fmt.Errorf("snapshot with id %s %w", id, core.ErrNotFound)
	}
	delete(s.snapshots, id)
	logrus.WithField("snapshot_id", id).Info("Snapshot deleted successfully")
	return nil
}
