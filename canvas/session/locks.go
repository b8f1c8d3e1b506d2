package session

import (
	"time"

	"github.com/Diamondrubix/ScrapBook/core"
)

// lockTable mirrors the board's locks, keyed by item id.
type lockTable struct {
	self  string
	locks map[string]core.Lock
}

func newLockTable(self string) *lockTable {
	return &lockTable{self: self, locks: make(map[string]core.Lock)}
}

func (t *lockTable) reset(locks []core.Lock) {
	t.locks = make(map[string]core.Lock, len(locks))
	for _, l := range locks {
		t.locks[l.ItemID] = l
	}
}

func (t *lockTable) apply(ev core.LockEvent) {
	switch ev.Type {
	case core.ChangeInsert, core.ChangeUpdate:
		t.locks[ev.Lock.ItemID] = ev.Lock
	case core.ChangeDelete:
		// A release only removes the lock it names.
		if cur, ok := t.locks[ev.Lock.ItemID]; ok && cur.HolderID == ev.Lock.HolderID {
			delete(t.locks, ev.Lock.ItemID)
		}
	}
}

// setLocal records a lock held by self ahead of the remote acquire.
func (t *lockTable) setLocal(itemID string, now time.Time) {
	t.locks[itemID] = core.Lock{ItemID: itemID, HolderID: t.self, LockedAt: now}
}

func (t *lockTable) clearLocal(itemID string) {
	if cur, ok := t.locks[itemID]; ok && cur.HolderID == t.self {
		delete(t.locks, itemID)
	}
}

// lockedByOther reports whether a live lock on itemID is held by someone
// other than self.
func (t *lockTable) lockedByOther(itemID string, now time.Time) bool {
	l, ok := t.locks[itemID]
	return ok && l.HolderID != t.self && l.Live(now)
}

func (t *lockTable) list() []core.Lock {
	out := make([]core.Lock, 0, len(t.locks))
	for _, l := range t.locks {
		out = append(out, l)
	}
	return out
}
