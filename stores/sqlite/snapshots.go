package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
)

// CreateSnapshot copies every item currently on the board. Part of the
// SnapshotStore interface.
func (s *sqliteStore) CreateSnapshot(ctx context.Context, snapshot *core.Snapshot) (string, error) {
	if snapshot.BoardID == "" {
		return "", fmt.Errorf("BoardID cannot be empty")
	}
	items, err := s.List(ctx, snapshot.BoardID)
	if err != nil {
		return "", err
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return "", err
	}

	snapshot.ID = ulid.Make().String()
	snapshot.CreatedAt = s.now()
	snapshot.Items = items
	_, err = s.db.ExecContext(ctx, "INSERT INTO snapshots (id, board_id, name, created_by, created_at, items) VALUES (?, ?, ?, ?, ?, ?)",
		snapshot.ID, snapshot.BoardID, snapshot.Name, snapshot.CreatedBy, snapshot.CreatedAt, blob)
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"snapshot_id": snapshot.ID,
		"board_id":    snapshot.BoardID,
		"items":       len(items),
	}).Info("Snapshot created successfully")
	return snapshot.ID, nil
}

// ListSnapshots returns a board's snapshots, newest first, without their items.
func (s *sqliteStore) ListSnapshots(ctx context.Context, boardID string) ([]core.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, board_id, name, created_by, created_at FROM snapshots WHERE board_id = ? ORDER BY id DESC", boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]core.Snapshot, 0)
	for rows.Next() {
		var snap core.Snapshot
		if err := rows.Scan(&snap.ID, &snap.BoardID, &snap.Name, &snap.CreatedBy, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *sqliteStore) GetSnapshot(ctx context.Context, id string) (*core.Snapshot, error) {
	var (
		snap core.Snapshot
		blob []byte
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, board_id, name, created_by, created_at, items FROM snapshots WHERE id = ?", id).
		Scan(&snap.ID, &snap.BoardID, &snap.Name, &snap.CreatedBy, &snap.CreatedAt, &blob)
	if err != nil {
		if err == sql.ErrNoRows {
			logrus.WithField("snapshot_id", id).Warn("Snapshot with specified ID not found")
			return nil, fmt.Errorf("snapshot with id %s %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal(blob, &snap.Items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

func (s *sqliteStore) DeleteSnapshot(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot with id %s %w", id, core.ErrNotFound)
	}
	logrus.WithField("snapshot_id", id).Info("Snapshot deleted successfully")
	return nil
}
