package memory

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
)

// Acquire upserts the lock on an item: any prior holder is replaced. Part
// of the LockStore interface.
func (s *memStore) Acquire(ctx context.Context, itemID, holderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
	}
	now := s.now()
	lock := core.Lock{ItemID: itemID, BoardID: item.BoardID, HolderID: holderID, LockedAt: now}
	if s.lockTTL > 0 {
		expires := now.Add(s.lockTTL)
		lock.ExpiresAt = &expires
	}

	change := core.ChangeInsert
	if _, exists := s.locks[itemID]; exists {
		change = core.ChangeUpdate
	}
	s.locks[itemID] = lock
	s.lockFeed.Publish(item.BoardID, core.LockEvent{Type: change, Lock: lock})
	logrus.WithFields(logrus.Fields{"item_id": itemID, "user_id": holderID}).Debug("Lock acquired")
	return nil
}

// Release drops the lock on an item if holderID holds it. Releasing a lock
// held by someone else, or no lock at all, is a no-op. Part of the
// LockStore interface.
func (s *memStore) Release(ctx context.Context, itemID, holderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[itemID]
	if !ok || lock.HolderID != holderID {
		return nil
	}
	delete(s.locks, itemID)
	s.lockFeed.Publish(lock.BoardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
	logrus.WithFields(logrus.Fields{"item_id": itemID, "user_id": holderID}).Debug("Lock released")
	return nil
}

// ListLocks returns the live locks on a board. Part of the LockStore interface.
func (s *memStore) ListLocks(ctx context.Context, boardID string) ([]core.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	locks := make([]core.Lock, 0)
	for itemID, lock := range s.locks {
		if lock.BoardID != boardID {
			continue
		}
		if !lock.Live(now) {
			delete(s.locks, itemID)
			s.lockFeed.Publish(boardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
			continue
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

func (s *memStore) SubscribeLocks(boardID string) (<-chan core.LockEvent, func()) {
	return s.lockFeed.Subscribe(boardID)
}

// ReleaseHolder drops every lock holderID has on a board. Part of the
// LockReaper interface.
func (s *memStore) ReleaseHolder(ctx context.Context, boardID, holderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for itemID, lock := range s.locks {
		if lock.BoardID != boardID || lock.HolderID != holderID {
			continue
		}
		delete(s.locks, itemID)
		s.lockFeed.Publish(boardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
		released++
	}
	logrus.WithFields(logrus.Fields{
		"board_id": boardID,
		"user_id":  holderID,
	}).Infof("Released %d locks", released)
	return nil
}
