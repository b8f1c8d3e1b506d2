package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/stores/feed"
)

// memStore keeps a whole deployment's boards in process memory. It
// implements every store contract in core.
type memStore struct {
	*feed.PresenceHub

	mu        sync.RWMutex
	items     map[string]core.Item
	locks     map[string]core.Lock
	snapshots map[string]core.Snapshot

	lockTTL time.Duration
	now     func() time.Time

	itemFeed *feed.Broker[core.ItemEvent]
	lockFeed *feed.Broker[core.LockEvent]
}

// NewStore creates a new in-memory store whose locks never expire.
func NewStore() *memStore {
	return NewStoreWithTTL(0)
}

// NewStoreWithTTL creates a new in-memory store. Locks expire lockTTL after
// they were last acquired; zero means never.
func NewStoreWithTTL(lockTTL time.Duration) *memStore {
	return &memStore{
		PresenceHub: feed.NewPresenceHub(),
		items:       make(map[string]core.Item),
		locks:       make(map[string]core.Lock),
		snapshots:   make(map[string]core.Snapshot),
		lockTTL:     lockTTL,
		now:         time.Now,
		itemFeed:    feed.NewBroker[core.ItemEvent]("items", feed.DefaultBuffer),
		lockFeed:    feed.NewBroker[core.LockEvent]("locks", feed.DefaultBuffer),
	}
}

// List returns every item on a board in stacking order. Part of the ItemStore interface.
func (s *memStore) List(ctx context.Context, boardID string) ([]core.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]core.Item, 0)
	for _, item := range s.items {
		if item.BoardID == boardID {
			items = append(items, item.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ZIndex != items[j].ZIndex {
			return items[i].ZIndex < items[j].ZIndex
		}
		return items[i].ID < items[j].ID
	})
	logrus.WithField("board_id", boardID).Debugf("Listed %d items", len(items))
	return items, nil
}

// Create stores a new item. An empty ID is filled with a ULID and a zero
// z_index puts the item on top of its board. Part of the ItemStore interface.
func (s *memStore) Create(ctx context.Context, item *core.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.BoardID == "" {
		return fmt.Errorf("BoardID cannot be empty")
	}
	if !item.Type.Valid() {
		return fmt.Errorf("unknown item type %q", item.Type)
	}
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if _, exists := s.items[item.ID]; exists {
		return fmt.Errorf("item with id %s already exists", item.ID)
	}
	if item.ZIndex == 0 {
		item.ZIndex = s.maxZLocked(item.BoardID) + 1
	}
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	clampPose(item)

	s.items[item.ID] = item.Clone()
	s.itemFeed.Publish(item.BoardID, core.ItemEvent{Type: core.ChangeInsert, Item: item.Clone()})
	logrus.WithFields(logrus.Fields{
		"item_id":  item.ID,
		"board_id": item.BoardID,
		"type":     item.Type,
	}).Info("Item created successfully")
	return nil
}

// Update applies a partial update. Part of the ItemStore interface.
func (s *memStore) Update(ctx context.Context, itemID string, patch core.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		logrus.WithField("item_id", itemID).Warn("Item with specified ID not found")
		return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
	}
	item = patch.Apply(item)
	item.UpdatedAt = s.now()
	s.items[itemID] = item
	s.itemFeed.Publish(item.BoardID, core.ItemEvent{Type: core.ChangeUpdate, Item: item.Clone()})
	logrus.WithField("item_id", itemID).Debug("Item updated")
	return nil
}

// Delete removes an item and any lock on it. Part of the ItemStore interface.
func (s *memStore) Delete(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
	}
	delete(s.items, itemID)
	if lock, locked := s.locks[itemID]; locked {
		delete(s.locks, itemID)
		s.lockFeed.Publish(lock.BoardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
	}
	s.itemFeed.Publish(item.BoardID, core.ItemEvent{Type: core.ChangeDelete, Item: item})
	logrus.WithField("item_id", itemID).Info("Item deleted successfully")
	return nil
}

func (s *memStore) SubscribeItems(boardID string) (<-chan core.ItemEvent, func()) {
	return s.itemFeed.Subscribe(boardID)
}

func (s *memStore) maxZLocked(boardID string) int {
	max := 0
	for _, item := range s.items {
		if item.BoardID == boardID && item.ZIndex > max {
			max = item.ZIndex
		}
	}
	return max
}

func clampPose(item *core.Item) {
	item.Pose = core.PosePatch(item.Pose).Apply(*item).Pose
}
