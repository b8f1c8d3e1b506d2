// Package tools implements the pointer-driven tool state machine: the
// Select tool with its pan, marquee, move, resize and rotate gestures, the
// Shape tool and the Pen tool. Tools only talk to the canvas through a
// Context, never to transport or rendering directly.
package tools

import (
	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

type ToolID string

const (
	ToolSelect ToolID = "select"
	ToolRect   ToolID = "rect"
	ToolCircle ToolID = "circle"
	ToolArrow  ToolID = "arrow"
	ToolPen    ToolID = "pen"
)

func (id ToolID) Valid() bool {
	switch id {
	case ToolSelect, ToolRect, ToolCircle, ToolArrow, ToolPen:
		return true
	}
	return false
}

const (
	MinResizeSize       = 20.0
	MinShapeSize        = 4.0
	ArrowHeight         = 24.0
	PenPointMinDistance = 2.0
	DefaultStrokeWidth  = 2.0
)

type Button int

const (
	ButtonPrimary   Button = 0
	ButtonMiddle    Button = 1
	ButtonSecondary Button = 2
)

// PointerEvent is a pointer sample in screen space plus the modifier state.
type PointerEvent struct {
	Screen geometry.Point `json:"screen"`
	Button Button         `json:"button"`
	Alt    bool           `json:"alt"`
	Shift  bool           `json:"shift"`
}

type (
	ShapeSpec struct {
		Kind core.ShapeKind
		Pose core.Pose
	}

	// StrokeSpec describes a finished pen stroke. Points are relative to
	// (Pose.X, Pose.Y).
	StrokeSpec struct {
		Points      []geometry.Point
		Pose        core.Pose
		StrokeWidth float64
	}
)

// Context is what the canvas shell exposes to the active tool. It is only
// used from inside tool callbacks.
type Context interface {
	View() view.View
	SetView(v view.View)
	ToWorld(screen geometry.Point) geometry.Point
	Invalidate()

	Items() []core.Item
	Item(id string) (core.Item, bool)
	SelectedIDs() []string
	SetSelectedIDs(ids []string)
	IsLockedByOther(itemID string) bool

	UpdateItemLocal(itemID string, patch core.Patch)
	UpdateItemRemote(itemID string, patch core.Patch)
	UpdateItemRemoteThrottled(itemID string, patch core.Patch)
	SetDraggingIDs(ids []string)

	CreateShape(spec ShapeSpec)
	CreateStroke(spec StrokeSpec)
	DrawColor() string
	RequestToolChange(id ToolID)
}

// Tool is the capability surface shared by every tool.
type Tool interface {
	ID() ToolID
	// Reset drops any in-progress gesture or draft without committing it.
	Reset()
	OnCanvasPointerDown(ctx Context, ev PointerEvent)
	// OnItemPointerDown is called when the pointer lands on item, or on
	// handle of the current selection bounds.
	OnItemPointerDown(ctx Context, ev PointerEvent, item core.Item, handle geometry.Handle)
	OnPointerMove(ctx Context, ev PointerEvent)
	OnPointerUp(ctx Context, ev PointerEvent)
	Overlay(ctx Context) []Overlay
}

type OverlayKind string

const (
	OverlayMarquee     OverlayKind = "marquee"
	OverlayGroup       OverlayKind = "group"
	OverlayShapeDraft  OverlayKind = "shape-draft"
	OverlayStrokeDraft OverlayKind = "stroke-draft"
)

// Overlay is a transient world-space decoration drawn above the items.
type Overlay struct {
	Kind OverlayKind
	// Rect is the marquee, the group bounds or the draft's box.
	Rect     geometry.Rect
	Rotation float64
	Handles  bool
	Shape    core.ShapeKind
	Points   []geometry.Point
	Color    string
}
