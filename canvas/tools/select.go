package tools

import (
	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/selection"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

// State is the Select tool's position in its gesture state machine.
type State string

const (
	StateIdle         State = "idle"
	StatePanning      State = "panning"
	StateBoxSelecting State = "box-selecting"
	StateMoving       State = "moving"
	StateResizing     State = "resizing"
	StateRotating     State = "rotating"
)

type (
	// gesture is the drag state of an in-progress Select gesture.
	gesture interface {
		state() State
		update(ctx Context, ev PointerEvent, world geometry.Point)
		finish(ctx Context)
	}

	origin struct {
		id   string
		pose core.Pose
	}

	panGesture struct {
		startScreen geometry.Point
		startView   view.View
	}

	moveGesture struct {
		startWorld geometry.Point
		origins    []origin
	}

	resizeGesture struct {
		startWorld  geometry.Point
		handle      geometry.Handle
		groupOrigin geometry.Rect
		origins     []origin
		minSize     float64
	}

	rotateGesture struct {
		center     geometry.Point
		startAngle float64
		origin     origin
	}

	marquee struct {
		start   geometry.Point
		current geometry.Point
	}
)

// SelectTool selects items and drives the pan, marquee, move, resize and
// rotate gestures. At most one gesture or marquee is active at a time.
type SelectTool struct {
	MinResizeSize float64

	gesture gesture
	marquee *marquee
}

func NewSelectTool() *SelectTool {
	return &SelectTool{MinResizeSize: MinResizeSize}
}

func (t *SelectTool) ID() ToolID { return ToolSelect }

func (t *SelectTool) Reset() {
	t.gesture = nil
	t.marquee = nil
}

func (t *SelectTool) State() State {
	switch {
	case t.gesture != nil:
		return t.gesture.state()
	case t.marquee != nil:
		return StateBoxSelecting
	}
	return StateIdle
}

func (t *SelectTool) busy() bool {
	return t.gesture != nil || t.marquee != nil
}

func (t *SelectTool) OnCanvasPointerDown(ctx Context, ev PointerEvent) {
	if t.busy() {
		return
	}
	switch ev.Button {
	case ButtonSecondary:
		t.gesture = &panGesture{startScreen: ev.Screen, startView: ctx.View()}
	case ButtonPrimary:
		world := ctx.ToWorld(ev.Screen)
		t.marquee = &marquee{start: world, current: world}
		ctx.Invalidate()
	}
}

func (t *SelectTool) OnItemPointerDown(ctx Context, ev PointerEvent, item core.Item, handle geometry.Handle) {
	if t.busy() || ev.Button != ButtonPrimary {
		return
	}
	if ctx.IsLockedByOther(item.ID) {
		return
	}

	selected := ctx.SelectedIDs()
	if !contains(selected, item.ID) {
		selected = []string{item.ID}
		ctx.SetSelectedIDs(selected)
	}

	items := ctx.Items()
	groupOrigin, ok := selection.GroupBounds(items, selected)
	if !ok {
		return
	}
	var origins []origin
	for _, candidate := range selection.Filter(items, selected) {
		if candidate.ID != item.ID && ctx.IsLockedByOther(candidate.ID) {
			continue
		}
		origins = append(origins, origin{id: candidate.ID, pose: candidate.Pose})
	}
	if len(origins) == 0 {
		return
	}

	world := ctx.ToWorld(ev.Screen)
	switch {
	case handle != geometry.HandleNone:
		t.gesture = &resizeGesture{
			startWorld:  world,
			handle:      handle,
			groupOrigin: groupOrigin,
			origins:     origins,
			minSize:     t.MinResizeSize,
		}
	case ev.Alt && len(selected) == 1:
		center := groupOrigin.Center()
		t.gesture = &rotateGesture{
			center:     center,
			startAngle: geometry.AngleDegrees(center, world),
			origin:     origins[0],
		}
	default:
		t.gesture = &moveGesture{startWorld: world, origins: origins}
	}
	ctx.SetDraggingIDs(originIDs(origins))
	ctx.Invalidate()
}

func (t *SelectTool) OnPointerMove(ctx Context, ev PointerEvent) {
	world := ctx.ToWorld(ev.Screen)
	if t.marquee != nil {
		t.marquee.current = world
		ctx.Invalidate()
		return
	}
	if t.gesture == nil {
		return
	}
	t.gesture.update(ctx, ev, world)
	ctx.Invalidate()
}

func (t *SelectTool) OnPointerUp(ctx Context, ev PointerEvent) {
	if t.marquee != nil {
		rect := geometry.RectFromPoints(t.marquee.start, t.marquee.current)
		t.marquee = nil
		ctx.SetSelectedIDs(selection.BoxSelect(ctx.Items(), rect, ctx.IsLockedByOther))
		ctx.Invalidate()
		return
	}
	if t.gesture == nil {
		return
	}
	g := t.gesture
	t.gesture = nil
	g.finish(ctx)
	ctx.Invalidate()
}

func (t *SelectTool) Overlay(ctx Context) []Overlay {
	var out []Overlay
	if t.marquee != nil {
		out = append(out, Overlay{
			Kind: OverlayMarquee,
			Rect: geometry.RectFromPoints(t.marquee.start, t.marquee.current),
		})
	}
	selected := ctx.SelectedIDs()
	if len(selected) > 0 {
		if bounds, ok := selection.GroupBounds(ctx.Items(), selected); ok {
			out = append(out, Overlay{Kind: OverlayGroup, Rect: bounds, Handles: true})
		}
	}
	return out
}

func (g *panGesture) state() State { return StatePanning }

func (g *panGesture) update(ctx Context, ev PointerEvent, _ geometry.Point) {
	ctx.SetView(g.startView.Pan(ev.Screen.X-g.startScreen.X, ev.Screen.Y-g.startScreen.Y))
}

func (g *panGesture) finish(Context) {}

func (g *moveGesture) state() State { return StateMoving }

func (g *moveGesture) update(ctx Context, _ PointerEvent, world geometry.Point) {
	dx := world.X - g.startWorld.X
	dy := world.Y - g.startWorld.Y
	for _, o := range g.origins {
		patch := core.Patch{X: core.Float(o.pose.X + dx), Y: core.Float(o.pose.Y + dy)}
		ctx.UpdateItemLocal(o.id, patch)
		ctx.UpdateItemRemoteThrottled(o.id, patch)
	}
}

func (g *moveGesture) finish(ctx Context) { commit(ctx, g.origins) }

func (g *resizeGesture) state() State { return StateResizing }

func (g *resizeGesture) update(ctx Context, _ PointerEvent, world geometry.Point) {
	next := geometry.ResizeRect(g.groupOrigin, g.handle,
		world.X-g.startWorld.X, world.Y-g.startWorld.Y, g.minSize)
	sx, sy := geometry.ScaleFactors(g.groupOrigin, next)
	for _, o := range g.origins {
		r := geometry.ScaleRectWithin(o.pose.Rect(), g.groupOrigin, next, sx, sy)
		patch := core.Patch{
			X:      core.Float(r.X),
			Y:      core.Float(r.Y),
			Width:  core.Float(r.Width),
			Height: core.Float(r.Height),
		}
		ctx.UpdateItemLocal(o.id, patch)
		ctx.UpdateItemRemoteThrottled(o.id, patch)
	}
}

func (g *resizeGesture) finish(ctx Context) { commit(ctx, g.origins) }

func (g *rotateGesture) state() State { return StateRotating }

func (g *rotateGesture) update(ctx Context, _ PointerEvent, world geometry.Point) {
	delta := geometry.AngleDegrees(g.center, world) - g.startAngle
	patch := core.Patch{Rotation: core.Float(g.origin.pose.Rotation + delta)}
	ctx.UpdateItemLocal(g.origin.id, patch)
	ctx.UpdateItemRemoteThrottled(g.origin.id, patch)
}

func (g *rotateGesture) finish(ctx Context) { commit(ctx, []origin{g.origin}) }

// commit writes each item's settled pose unthrottled and ends the drag.
func commit(ctx Context, origins []origin) {
	for _, o := range origins {
		item, ok := ctx.Item(o.id)
		if !ok {
			continue
		}
		ctx.UpdateItemRemote(o.id, core.PosePatch(item.Pose))
	}
	ctx.SetDraggingIDs(nil)
}

func originIDs(origins []origin) []string {
	ids := make([]string, len(origins))
	for i, o := range origins {
		ids[i] = o.id
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
