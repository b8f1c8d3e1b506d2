package tools

import (
	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/core"
)

type shapeDraft struct {
	start   geometry.Point
	current geometry.Point
}

// ShapeTool drags out a rectangle, circle or arrow.
type ShapeTool struct {
	Kind        core.ShapeKind
	MinSize     float64
	ArrowHeight float64

	draft *shapeDraft
}

func NewShapeTool(kind core.ShapeKind) *ShapeTool {
	return &ShapeTool{Kind: kind, MinSize: MinShapeSize, ArrowHeight: ArrowHeight}
}

func (t *ShapeTool) ID() ToolID {
	switch t.Kind {
	case core.ShapeCircle:
		return ToolCircle
	case core.ShapeArrow:
		return ToolArrow
	}
	return ToolRect
}

func (t *ShapeTool) Reset() { t.draft = nil }

func (t *ShapeTool) OnCanvasPointerDown(ctx Context, ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	world := ctx.ToWorld(ev.Screen)
	t.draft = &shapeDraft{start: world, current: world}
	ctx.Invalidate()
}

// OnItemPointerDown starts a draft on top of the item like a canvas press.
func (t *ShapeTool) OnItemPointerDown(ctx Context, ev PointerEvent, _ core.Item, _ geometry.Handle) {
	t.OnCanvasPointerDown(ctx, ev)
}

func (t *ShapeTool) OnPointerMove(ctx Context, ev PointerEvent) {
	if t.draft == nil {
		return
	}
	t.draft.current = ctx.ToWorld(ev.Screen)
	ctx.Invalidate()
}

func (t *ShapeTool) OnPointerUp(ctx Context, _ PointerEvent) {
	if t.draft == nil {
		return
	}
	pose, ok := t.pose(*t.draft)
	t.draft = nil
	if ok {
		ctx.CreateShape(ShapeSpec{Kind: t.Kind, Pose: pose})
	}
	ctx.Invalidate()
}

func (t *ShapeTool) Overlay(ctx Context) []Overlay {
	if t.draft == nil {
		return nil
	}
	pose := t.draftPose(*t.draft)
	return []Overlay{{
		Kind:     OverlayShapeDraft,
		Rect:     pose.Rect(),
		Rotation: pose.Rotation,
		Shape:    t.Kind,
		Color:    ctx.DrawColor(),
	}}
}

// pose returns the pose the draft commits to, and false when the draft is
// below the minimum size.
func (t *ShapeTool) pose(d shapeDraft) (core.Pose, bool) {
	pose := t.draftPose(d)
	if t.Kind == core.ShapeArrow {
		return pose, pose.Width >= t.MinSize
	}
	return pose, pose.Width >= t.MinSize && pose.Height >= t.MinSize
}

// draftPose lays an arrow along the drafted segment, centred on its
// midpoint, and boxes every other kind between the two corners.
func (t *ShapeTool) draftPose(d shapeDraft) core.Pose {
	if t.Kind == core.ShapeArrow {
		length := geometry.Distance(d.start, d.current)
		mid := geometry.Point{X: (d.start.X + d.current.X) / 2, Y: (d.start.Y + d.current.Y) / 2}
		return core.Pose{
			X:        mid.X - length/2,
			Y:        mid.Y - t.ArrowHeight/2,
			Width:    length,
			Height:   t.ArrowHeight,
			Rotation: geometry.AngleDegrees(d.start, d.current),
		}
	}
	r := geometry.RectFromPoints(d.start, d.current)
	return core.Pose{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
