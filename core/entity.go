package core

import (
	"time"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
)

type ItemType string

const (
	ItemTypeImage      ItemType = "image"
	ItemTypeVideoHost  ItemType = "video_hosted"
	ItemTypeVideoEmbed ItemType = "video_embed"
	ItemTypeText       ItemType = "text"
	ItemTypeLink       ItemType = "link"
	ItemTypeShape      ItemType = "shape"
	ItemTypeDraw       ItemType = "draw"
)

// MinItemSize is the floor for an item's width and height.
const MinItemSize = 2.0

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeImage, ItemTypeVideoHost, ItemTypeVideoEmbed, ItemTypeText,
		ItemTypeLink, ItemTypeShape, ItemTypeDraw:
		return true
	}
	return false
}

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

type (
	// Pose is an item's world-space placement. Rotation is in degrees about
	// the item's centre and is not range-limited.
	Pose struct {
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		Width    float64 `json:"width"`
		Height   float64 `json:"height"`
		Rotation float64 `json:"rotation"`
	}

	Item struct {
		ID      string         `json:"id"`
		BoardID string         `json:"board_id"`
		Type    ItemType       `json:"type"`
		Data    map[string]any `json:"data"`
		Pose
		ZIndex    int       `json:"z_index"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	// Lock is a single-holder claim on an item. ExpiresAt is nil for locks
	// that only end on explicit release.
	Lock struct {
		ItemID    string     `json:"item_id"`
		BoardID   string     `json:"board_id"`
		HolderID  string     `json:"user_id"`
		LockedAt  time.Time  `json:"locked_at"`
		ExpiresAt *time.Time `json:"expires_at"`
	}

	// PresenceUser is one editor's live cursor. Left marks the final record
	// sent when the editor leaves the board.
	PresenceUser struct {
		UserID      string         `json:"user_id"`
		BoardID     string         `json:"board_id"`
		DisplayName string         `json:"display_name"`
		Color       string         `json:"color"`
		Cursor      geometry.Point `json:"cursor"`
		Left        bool           `json:"left,omitempty"`
	}

	ItemEvent struct {
		Type ChangeType `json:"type"`
		Item Item       `json:"item"`
	}

	LockEvent struct {
		Type ChangeType `json:"type"`
		Lock Lock       `json:"lock"`
	}

	// Snapshot is a point-in-time copy of every item on a board.
	Snapshot struct {
		ID        string    `json:"id"`
		BoardID   string    `json:"board_id"`
		Name      string    `json:"name"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
		Items     []Item    `json:"items,omitempty"`
	}
)

func (p Pose) Rect() geometry.Rect {
	return geometry.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

func (p Pose) Center() geometry.Point {
	return p.Rect().Center()
}

// Live reports whether the lock is still in force at now.
func (l Lock) Live(now time.Time) bool {
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// Clone returns a copy of the item whose payload map can be mutated
// without affecting the original.
func (i Item) Clone() Item {
	out := i
	if i.Data != nil {
		out.Data = make(map[string]any, len(i.Data))
		for k, v := range i.Data {
			out.Data[k] = v
		}
	}
	return out
}
