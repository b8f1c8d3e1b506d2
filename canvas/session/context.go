package session

import (
	"context"
	"math"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/tools"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

// toolContext is the tools.Context handed to the active tool. Every method
// runs with the session mutex already held.
type toolContext struct {
	s *Session
}

var _ tools.Context = toolContext{}

func (c toolContext) View() view.View { return c.s.view }

func (c toolContext) SetView(v view.View) {
	c.s.view = v
	c.s.dirty = true
}

func (c toolContext) ToWorld(screen geometry.Point) geometry.Point {
	return c.s.view.ToWorld(screen)
}

func (c toolContext) Invalidate() { c.s.dirty = true }

func (c toolContext) Items() []core.Item { return c.s.cache.sorted() }

func (c toolContext) Item(id string) (core.Item, bool) { return c.s.cache.get(id) }

func (c toolContext) SelectedIDs() []string { return c.s.selection.IDs() }

func (c toolContext) SetSelectedIDs(ids []string) { c.s.setSelectionLocked(ids) }

func (c toolContext) IsLockedByOther(itemID string) bool {
	return c.s.lockTable.lockedByOther(itemID, c.s.cfg.Clock.Now())
}

func (c toolContext) UpdateItemLocal(itemID string, patch core.Patch) {
	if _, ok := c.s.cache.patch(itemID, patch); ok {
		c.s.dirty = true
	}
}

// UpdateItemRemote is the unthrottled commit write. Any throttled patch
// still waiting for its interval is superseded.
func (c toolContext) UpdateItemRemote(itemID string, patch core.Patch) {
	c.s.patches.Cancel(itemID)
	c.s.submitUpdate(itemID, patch)
}

func (c toolContext) UpdateItemRemoteThrottled(itemID string, patch core.Patch) {
	c.s.patches.Call(itemID, patch)
}

func (c toolContext) SetDraggingIDs(ids []string) { c.s.cache.setDragging(ids) }

func (c toolContext) CreateShape(spec tools.ShapeSpec) {
	data := core.EncodePayload(core.ShapeData{Kind: spec.Kind, Color: c.s.drawColor})
	c.s.createItemLocked(core.ItemTypeShape, data, spec.Pose)
}

func (c toolContext) CreateStroke(spec tools.StrokeSpec) {
	data := core.EncodePayload(core.StrokeData{
		Points:      spec.Points,
		Color:       c.s.drawColor,
		StrokeWidth: spec.StrokeWidth,
		BaseWidth:   spec.Pose.Width,
		BaseHeight:  spec.Pose.Height,
	})
	c.s.createItemLocked(core.ItemTypeDraw, data, spec.Pose)
}

func (c toolContext) DrawColor() string { return c.s.drawColor }

func (c toolContext) RequestToolChange(id tools.ToolID) { c.s.pendingTool = id }

// createItemLocked inserts an item into the cache on top of the stack and
// queues the remote create.
func (s *Session) createItemLocked(typ core.ItemType, data map[string]any, pose core.Pose) core.Item {
	now := s.cfg.Clock.Now()
	pose.Width = math.Max(core.MinItemSize, pose.Width)
	pose.Height = math.Max(core.MinItemSize, pose.Height)
	item := core.Item{
		ID:        ulid.Make().String(),
		BoardID:   s.cfg.BoardID,
		Type:      typ,
		Data:      data,
		Pose:      pose,
		ZIndex:    s.cache.maxZ() + 1,
		CreatedBy: s.cfg.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.cache.put(item)
	s.dirty = true

	remote := item.Clone()
	s.outbox.Submit(item.ID, "create", item.ID, func(ctx context.Context) error {
		return s.items.Create(ctx, &remote)
	})
	s.log.WithFields(logrus.Fields{"item_id": item.ID, "type": typ}).Debug("Item created")
	return item
}
