package core

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is wrapped by every store lookup that misses.
var ErrNotFound = errors.New("not found")

type (
	// ItemStore persists items and redistributes changes to subscribers of
	// a board.
	ItemStore interface {
		List(ctx context.Context, boardID string) ([]Item, error)
		Create(ctx context.Context, item *Item) error
		Update(ctx context.Context, itemID string, patch Patch) error
		Delete(ctx context.Context, itemID string) error

		// SubscribeItems streams insert/update/delete events for a board
		// until the returned cancel func is called.
		SubscribeItems(boardID string) (<-chan ItemEvent, func())
	}

	// LockStore holds at most one lock per item. Acquire is an upsert: a new
	// lock replaces any prior lock on the item.
	LockStore interface {
		Acquire(ctx context.Context, itemID, holderID string) error
		Release(ctx context.Context, itemID, holderID string) error
		ListLocks(ctx context.Context, boardID string) ([]Lock, error)
		SubscribeLocks(boardID string) (<-chan LockEvent, func())
	}

	// LockReaper is implemented by lock stores that can drop every lock a
	// holder has on a board, used when an editor disconnects.
	LockReaper interface {
		ReleaseHolder(ctx context.Context, boardID, holderID string) error
	}

	PresenceChannel interface {
		Publish(ctx context.Context, user PresenceUser) error
		Leave(ctx context.Context, boardID, userID string) error
		SubscribePresence(boardID string) (<-chan PresenceUser, func())
	}

	SnapshotStore interface {
		CreateSnapshot(ctx context.Context, snapshot *Snapshot) (string, error)
		ListSnapshots(ctx context.Context, boardID string) ([]Snapshot, error)
		GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
		DeleteSnapshot(ctx context.Context, id string) error
	}

	// AssetStore keeps uploaded media. Put returns the key Open serves it by.
	AssetStore interface {
		Put(ctx context.Context, boardID, filename, contentType string, body io.Reader) (string, error)
		Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	}
)
