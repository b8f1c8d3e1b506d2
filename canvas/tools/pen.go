package tools

import (
	"math"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/core"
)

// PenTool records a freehand stroke, dropping points closer than
// MinDistance to the previous one.
type PenTool struct {
	MinDistance float64
	StrokeWidth float64

	points []geometry.Point
}

func NewPenTool(minDistance float64) *PenTool {
	return &PenTool{MinDistance: minDistance, StrokeWidth: DefaultStrokeWidth}
}

func (t *PenTool) ID() ToolID { return ToolPen }

func (t *PenTool) Reset() { t.points = nil }

func (t *PenTool) OnCanvasPointerDown(ctx Context, ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	t.points = []geometry.Point{ctx.ToWorld(ev.Screen)}
	ctx.Invalidate()
}

func (t *PenTool) OnItemPointerDown(ctx Context, ev PointerEvent, _ core.Item, _ geometry.Handle) {
	t.OnCanvasPointerDown(ctx, ev)
}

func (t *PenTool) OnPointerMove(ctx Context, ev PointerEvent) {
	if t.points == nil {
		return
	}
	world := ctx.ToWorld(ev.Screen)
	if geometry.Distance(world, t.points[len(t.points)-1]) < t.MinDistance {
		return
	}
	t.points = append(t.points, world)
	ctx.Invalidate()
}

func (t *PenTool) OnPointerUp(ctx Context, _ PointerEvent) {
	points := t.points
	t.points = nil
	if spec, ok := t.stroke(points); ok {
		ctx.CreateStroke(spec)
	}
	ctx.Invalidate()
}

func (t *PenTool) Overlay(ctx Context) []Overlay {
	spec, ok := t.stroke(t.points)
	if !ok {
		return nil
	}
	return []Overlay{{
		Kind:   OverlayStrokeDraft,
		Rect:   spec.Pose.Rect(),
		Points: spec.Points,
		Color:  ctx.DrawColor(),
	}}
}

// Points returns a copy of the draft's recorded world points.
func (t *PenTool) Points() []geometry.Point {
	out := make([]geometry.Point, len(t.points))
	copy(out, t.points)
	return out
}

// stroke turns recorded world points into an item spec whose points are
// relative to the stroke's bounding box. Fewer than two points is not a
// stroke.
func (t *PenTool) stroke(points []geometry.Point) (StrokeSpec, bool) {
	if len(points) < 2 {
		return StrokeSpec{}, false
	}
	bounds, _ := geometry.Bounds(points)
	origin := geometry.Point{X: bounds.X, Y: bounds.Y}
	return StrokeSpec{
		Points: geometry.NormalizePoints(points, origin),
		Pose: core.Pose{
			X:      bounds.X,
			Y:      bounds.Y,
			Width:  math.Max(core.MinItemSize, bounds.Width),
			Height: math.Max(core.MinItemSize, bounds.Height),
		},
		StrokeWidth: t.StrokeWidth,
	}, true
}
