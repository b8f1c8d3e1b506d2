package feed

import (
	"context"
	"sync"

	"github.com/Diamondrubix/ScrapBook/core"
)

// PresenceHub is a PresenceChannel that keeps the latest cursor of every
// editor so late subscribers start with the current picture.
type PresenceHub struct {
	mu      sync.RWMutex
	cursors map[string]map[string]core.PresenceUser
	broker  *Broker[core.PresenceUser]
}

func NewPresenceHub() *PresenceHub {
	return &PresenceHub{
		cursors: make(map[string]map[string]core.PresenceUser),
		broker:  NewBroker[core.PresenceUser]("presence", DefaultBuffer),
	}
}

func (h *PresenceHub) Publish(ctx context.Context, user core.PresenceUser) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	board, ok := h.cursors[user.BoardID]
	if !ok {
		board = make(map[string]core.PresenceUser)
		h.cursors[user.BoardID] = board
	}
	board[user.UserID] = user
	h.broker.Publish(user.BoardID, user)
	return nil
}

// Leave forgets a user's cursor and tells the board they left.
func (h *PresenceHub) Leave(ctx context.Context, boardID, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	user, ok := h.cursors[boardID][userID]
	if !ok {
		user = core.PresenceUser{UserID: userID, BoardID: boardID}
	}
	delete(h.cursors[boardID], userID)
	if len(h.cursors[boardID]) == 0 {
		delete(h.cursors, boardID)
	}
	user.Left = true
	h.broker.Publish(boardID, user)
	return nil
}

// SubscribePresence replays the board's known cursors, then follows live
// updates.
func (h *PresenceHub) SubscribePresence(boardID string) (<-chan core.PresenceUser, func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	current := make([]core.PresenceUser, 0, len(h.cursors[boardID]))
	for _, user := range h.cursors[boardID] {
		current = append(current, user)
	}
	return h.broker.Subscribe(boardID, current...)
}
