package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
)

const lockColumns = `item_id, board_id, user_id, locked_at, expires_at`

func scanLock(row rowScanner) (core.Lock, error) {
	var (
		lock    core.Lock
		expires sql.NullTime
	)
	if err := row.Scan(&lock.ItemID, &lock.BoardID, &lock.HolderID, &lock.LockedAt, &expires); err != nil {
		return core.Lock{}, err
	}
	if expires.Valid {
		t := expires.Time
		lock.ExpiresAt = &t
	}
	return lock, nil
}

func (s *sqliteStore) lockInTx(ctx context.Context, tx *sql.Tx, itemID string) (core.Lock, bool, error) {
	lock, err := scanLock(tx.QueryRowContext(ctx, "SELECT "+lockColumns+" FROM item_locks WHERE item_id = ?", itemID))
	if err == sql.ErrNoRows {
		return core.Lock{}, false, nil
	}
	if err != nil {
		return core.Lock{}, false, err
	}
	return lock, true, nil
}

// Acquire upserts the lock on an item.
func (s *sqliteStore) Acquire(ctx context.Context, itemID, holderID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	var boardID string
	if err := tx.QueryRowContext(ctx, "SELECT board_id FROM items WHERE id = ?", itemID).Scan(&boardID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
		}
		return err
	}
	_, existed, err := s.lockInTx(ctx, tx, itemID)
	if err != nil {
		return err
	}

	now := s.now()
	lock := core.Lock{ItemID: itemID, BoardID: boardID, HolderID: holderID, LockedAt: now}
	var expires sql.NullTime
	if s.lockTTL > 0 {
		t := now.Add(s.lockTTL)
		lock.ExpiresAt = &t
		expires = sql.NullTime{Time: t, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO item_locks (`+lockColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET user_id = excluded.user_id, locked_at = excluded.locked_at, expires_at = excluded.expires_at`,
		itemID, boardID, holderID, now, expires)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	change := core.ChangeInsert
	if existed {
		change = core.ChangeUpdate
	}
	s.lockFeed.Publish(boardID, core.LockEvent{Type: change, Lock: lock})
	logrus.WithFields(logrus.Fields{"item_id": itemID, "user_id": holderID}).Debug("Lock acquired")
	return nil
}

// Release drops the lock on an item if holderID holds it.
func (s *sqliteStore) Release(ctx context.Context, itemID, holderID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	lock, ok, err := s.lockInTx(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if !ok || lock.HolderID != holderID {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_locks WHERE item_id = ? AND user_id = ?", itemID, holderID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.lockFeed.Publish(lock.BoardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
	return nil
}

// ListLocks returns the live locks on a board, purging expired ones.
func (s *sqliteStore) ListLocks(ctx context.Context, boardID string) ([]core.Lock, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+lockColumns+" FROM item_locks WHERE board_id = ?", boardID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var live, expired []core.Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if lock.Live(now) {
			live = append(live, lock)
		} else {
			expired = append(expired, lock)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for _, lock := range expired {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM item_locks WHERE item_id = ? AND user_id = ?", lock.ItemID, lock.HolderID); err != nil {
			return nil, err
		}
		s.lockFeed.Publish(boardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
	}
	if live == nil {
		live = []core.Lock{}
	}
	return live, nil
}

func (s *sqliteStore) SubscribeLocks(boardID string) (<-chan core.LockEvent, func()) {
	return s.lockFeed.Subscribe(boardID)
}

// ReleaseHolder drops every lock holderID has on a board.
func (s *sqliteStore) ReleaseHolder(ctx context.Context, boardID, holderID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+lockColumns+" FROM item_locks WHERE board_id = ? AND user_id = ?", boardID, holderID)
	if err != nil {
		return err
	}
	var held []core.Lock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			rows.Close()
			return err
		}
		held = append(held, lock)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM item_locks WHERE board_id = ? AND user_id = ?", boardID, holderID); err != nil {
		return err
	}
	for _, lock := range held {
		s.lockFeed.Publish(boardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
	}
	logrus.WithFields(logrus.Fields{
		"board_id": boardID,
		"user_id":  holderID,
	}).Infof("Released %d locks", len(held))
	return nil
}
