// Package selection holds the selected-id set and the queries that run
// against a snapshot of items: group bounds, hit-testing and box-select.
package selection

import (
	"math"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/core"
)

// Selection is an ordered set of unique item ids. The zero value is empty.
type Selection struct {
	ids []string
}

func New(ids ...string) *Selection {
	s := &Selection{}
	s.Set(ids)
	return s
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Set replaces the selection, dropping duplicates.
func (s *Selection) Set(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	s.ids = next
}

func (s *Selection) Contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Clear() { s.ids = nil }

// Remove drops id if present and reports whether it was selected.
func (s *Selection) Remove(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Diff returns the ids that are in next but not in prev, and the ids that
// are in prev but not in next.
func Diff(prev, next []string) (added, removed []string) {
	inPrev := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		inPrev[id] = struct{}{}
	}
	inNext := make(map[string]struct{}, len(next))
	for _, id := range next {
		inNext[id] = struct{}{}
		if _, ok := inPrev[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := inNext[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// GroupBounds is the union of the pose rectangles of the selected items,
// ignoring rotation. Width and height are floored to 1. ok is false when no
// selected id is present in items.
func GroupBounds(items []core.Item, ids []string) (geometry.Rect, bool) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var (
		out   geometry.Rect
		found bool
	)
	for _, item := range items {
		if _, ok := want[item.ID]; !ok {
			continue
		}
		if !found {
			out = item.Rect()
			found = true
			continue
		}
		out = out.Union(item.Rect())
	}
	if !found {
		return geometry.Rect{}, false
	}
	out.Width = math.Max(1, out.Width)
	out.Height = math.Max(1, out.Height)
	return out, true
}

// BoxSelect returns the ids of every item whose pose rectangle intersects
// marquee, skipping items for which lockedByOther reports true.
func BoxSelect(items []core.Item, marquee geometry.Rect, lockedByOther func(itemID string) bool) []string {
	var out []string
	for _, item := range items {
		if lockedByOther != nil && lockedByOther(item.ID) {
			continue
		}
		if geometry.RectsIntersect(item.Rect(), marquee) {
			out = append(out, item.ID)
		}
	}
	return out
}

// HitTest returns the topmost item containing the world point p. Rotated
// items are tested in their own frame.
func HitTest(items []core.Item, p geometry.Point) (core.Item, bool) {
	var (
		best  core.Item
		found bool
	)
	for _, item := range items {
		local := p
		if item.Rotation != 0 {
			local = geometry.Rotate(p, item.Center(), -item.Rotation)
		}
		if !item.Rect().Contains(local) {
			continue
		}
		if !found || item.ZIndex >= best.ZIndex {
			best = item
			found = true
		}
	}
	return best, found
}

// HandleAt returns the resize handle of bounds within radius of p, or
// HandleNone.
func HandleAt(bounds geometry.Rect, p geometry.Point, radius float64) geometry.Handle {
	for _, h := range geometry.Handles {
		if geometry.Distance(bounds.Corner(h), p) <= radius {
			return h
		}
	}
	return geometry.HandleNone
}

// Filter returns the items whose id is in ids, in items order.
func Filter(items []core.Item, ids []string) []core.Item {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]core.Item, 0, len(ids))
	for _, item := range items {
		if _, ok := want[item.ID]; ok {
			out = append(out, item)
		}
	}
	return out
}
