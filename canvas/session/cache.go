package session

import (
	"sort"

	"github.com/Diamondrubix/ScrapBook/core"
)

// cache is the editor's optimistic copy of the board's items. It is owned
// by Session and guarded by the session mutex.
type cache struct {
	items    map[string]core.Item
	dragging map[string]struct{}
}

func newCache() *cache {
	return &cache{items: make(map[string]core.Item), dragging: make(map[string]struct{})}
}

func (c *cache) reset(items []core.Item) {
	c.items = make(map[string]core.Item, len(items))
	for _, item := range items {
		c.items[item.ID] = item
	}
}

func (c *cache) get(id string) (core.Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

func (c *cache) put(item core.Item) { c.items[item.ID] = item }

func (c *cache) patch(id string, p core.Patch) (core.Item, bool) {
	item, ok := c.items[id]
	if !ok {
		return core.Item{}, false
	}
	item = p.Apply(item)
	c.items[id] = item
	return item, true
}

func (c *cache) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	delete(c.dragging, id)
	return true
}

func (c *cache) setDragging(ids []string) {
	c.dragging = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.dragging[id] = struct{}{}
	}
}

func (c *cache) isDragging(id string) bool {
	_, ok := c.dragging[id]
	return ok
}

// sorted returns the items in stacking order, bottom first.
func (c *cache) sorted() []core.Item {
	out := make([]core.Item, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ZIndex != out[j].ZIndex {
			return out[i].ZIndex < out[j].ZIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *cache) maxZ() int {
	max := 0
	for _, item := range c.items {
		if item.ZIndex > max {
			max = item.ZIndex
		}
	}
	return max
}

// reconcile folds a remote change into the cache and reports whether
// anything visible changed. Inserts for items already present are
// ignored. While an item is being dragged locally its pose stays local.
func (c *cache) reconcile(ev core.ItemEvent) bool {
	switch ev.Type {
	case core.ChangeInsert:
		if _, ok := c.items[ev.Item.ID]; ok {
			return false
		}
		c.items[ev.Item.ID] = ev.Item
		return true
	case core.ChangeUpdate:
		current, ok := c.items[ev.Item.ID]
		next := ev.Item
		if ok && c.isDragging(next.ID) {
			next.Pose = current.Pose
		}
		c.items[next.ID] = next
		return true
	case core.ChangeDelete:
		return c.remove(ev.Item.ID)
	}
	return false
}
