package tools

import (
	"sort"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

type write struct {
	itemID    string
	patch     core.Patch
	throttled bool
}

// recordingContext is an in-memory Context that records every write.
type recordingContext struct {
	view     view.View
	items    map[string]core.Item
	selected []string
	lockedBy map[string]string
	self     string

	writes   []write
	dragging []string
	shapes   []ShapeSpec
	strokes  []StrokeSpec
	requests []ToolID
	invalid  int
}

func newContext(items ...core.Item) *recordingContext {
	c := &recordingContext{
		view:     view.View{Scale: 1},
		items:    make(map[string]core.Item),
		lockedBy: make(map[string]string),
		self:     "me",
	}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *recordingContext) View() view.View {
	return c.view
}

func (c *recordingContext) SetView(v view.View) {
	c.view = v
}

func (c *recordingContext) ToWorld(p geometry.Point) geometry.Point {
	return c.view.ToWorld(p)
}

func (c *recordingContext) Invalidate() {
	c.invalid++
}

func (c *recordingContext) Items() []core.Item {
	out := make([]core.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *recordingContext) Item(id string) (core.Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c *recordingContext) SelectedIDs() []string {
	return append([]string(nil), c.selected...)
}

func (c *recordingContext) SetSelectedIDs(ids []string) {
	c.selected = append([]string(nil), ids...)
}

func (c *recordingContext) IsLockedByOther(id string) bool {
	holder, ok := c.lockedBy[id]
	return ok && holder != c.self
}

func (c *recordingContext) UpdateItemLocal(id string, patch core.Patch) {
	if it, ok := c.items[id]; ok {
		c.items[id] = patch.Apply(it)
	}
}

func (c *recordingContext) UpdateItemRemote(id string, patch core.Patch) {
	c.writes = append(c.writes, write{itemID: id, patch: patch})
}

func (c *recordingContext) UpdateItemRemoteThrottled(id string, patch core.Patch) {
	c.writes = append(c.writes, write{itemID: id, patch: patch, throttled: true})
}

func (c *recordingContext) SetDraggingIDs(ids []string) {
	c.dragging = ids
}

func (c *recordingContext) CreateShape(spec ShapeSpec) {
	c.shapes = append(c.shapes, spec)
}

func (c *recordingContext) CreateStroke(spec StrokeSpec) {
	c.strokes = append(c.strokes, spec)
}

func (c *recordingContext) DrawColor() string {
	return "#111111"
}

func (c *recordingContext) RequestToolChange(id ToolID) {
	c.requests = append(c.requests, id)
}

func (c *recordingContext) committed() []write {
	var out []write
	for _, w := range c.writes {
		if !w.throttled {
			out = append(out, w)
		}
	}
	return out
}

func shape(id string, x, y, w, h float64) core.Item {
	return core.Item{ID: id, Type: core.ItemTypeShape, Pose: core.Pose{X: x, Y: y, Width: w, Height: h}}
}

func at(x, y float64) PointerEvent {
	return PointerEvent{Screen: geometry.Point{X: x, Y: y}}
}
