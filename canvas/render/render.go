// Package render rasterizes a board through a view: items, tool overlays,
// selection and lock outlines, and other editors' cursors.
package render

import (
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/tools"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

const (
	DefaultBackground = "#f7f5f0"
	SelectionColor    = "#1e88e5"

	// Screen-space sizes, independent of zoom.
	outlineWidth = 1.5
	handleSize   = 8
	cursorSize   = 14
	lockPadding  = 4
)

// cardColors fills the placeholder card of items whose content the
// rasterizer does not fetch.
var cardColors = map[core.ItemType]string{
	core.ItemTypeText:       "#fff4a8",
	core.ItemTypeLink:       "#e3f2fd",
	core.ItemTypeImage:      "#e0e0e0",
	core.ItemTypeVideoHost:  "#263238",
	core.ItemTypeVideoEmbed: "#263238",
}

// Scene is everything drawn in one frame.
type Scene struct {
	View       view.View
	Items      []core.Item
	Selected   []string
	Locks      []core.Lock
	SelfID     string
	Presence   []core.PresenceUser
	Overlays   []tools.Overlay
	Background string
}

// Source is a live canvas a Scene can be captured from.
type Source interface {
	View() view.View
	Items() []core.Item
	SelectedIDs() []string
	Locks() []core.Lock
	Presence() []core.PresenceUser
	Overlays() []tools.Overlay
	Self() core.PresenceUser
}

func Capture(src Source) Scene {
	return Scene{
		View:     src.View(),
		Items:    src.Items(),
		Selected: src.SelectedIDs(),
		Locks:    src.Locks(),
		SelfID:   src.Self().UserID,
		Presence: src.Presence(),
		Overlays: src.Overlays(),
	}
}

// painter carries the first drawing error so call sites stay linear.
type painter struct {
	dc    *gg.Context
	scale float64
	err   error
}

func (p *painter) check(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *painter) stroke(color string, width float64) {
	p.dc.SetHexColor(color)
	p.dc.SetLineWidth(width)
	p.check(p.dc.Stroke())
}

func (p *painter) fill(color string) {
	p.dc.SetHexColor(color)
	p.check(p.dc.Fill())
}

// px converts screen pixels to world units at the current zoom.
func (p *painter) px(v float64) float64 {
	return v / p.scale
}

// Draw rasterizes scene onto a new width x height context. The caller
// closes the returned context.
func Draw(scene Scene, width, height int) (*gg.Context, error) {
	dc := gg.NewContext(width, height)
	bg := scene.Background
	if bg == "" {
		bg = DefaultBackground
	}
	dc.ClearWithColor(gg.Hex(bg))

	v := scene.View
	if v.Scale <= 0 {
		v = view.Default()
	}
	p := &painter{dc: dc, scale: v.Scale}

	dc.Push()
	dc.Translate(v.X, v.Y)
	dc.Scale(v.Scale, v.Scale)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, item := range scene.Items {
		p.item(item)
	}
	p.locks(scene)
	p.selection(scene)
	for _, o := range scene.Overlays {
		p.overlay(o)
	}
	for _, user := range scene.Presence {
		if user.UserID != scene.SelfID && !user.Left {
			p.cursor(user)
		}
	}
	dc.Pop()

	if p.err != nil {
		dc.Close()
		return nil, p.err
	}
	return dc, nil
}

// EncodePNG draws scene and writes it to w as PNG.
func EncodePNG(w io.Writer, scene Scene, width, height int) error {
	dc, err := Draw(scene, width, height)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}

// FitView frames every item in a width x height image.
func FitView(items []core.Item, width, height, padding float64) (view.View, bool) {
	var bounds geometry.Rect
	for i, item := range items {
		if i == 0 {
			bounds = item.Rect()
			continue
		}
		bounds = bounds.Union(item.Rect())
	}
	if len(items) == 0 {
		return view.Default(), false
	}
	return view.Fit(bounds, width, height, padding), true
}

// Thumbnail renders a board framed to fit the image.
func Thumbnail(w io.Writer, items []core.Item, width, height int) error {
	v, _ := FitView(items, float64(width), float64(height), 16)
	return EncodePNG(w, Scene{View: v, Items: items}, width, height)
}

// rotated runs draw with the context rotated about the pose centre.
func (p *painter) rotated(pose core.Pose, draw func()) {
	if pose.Rotation == 0 {
		draw()
		return
	}
	c := pose.Center()
	p.dc.Push()
	p.dc.RotateAbout(pose.Rotation*math.Pi/180, c.X, c.Y)
	draw()
	p.dc.Pop()
}

func (p *painter) item(item core.Item) {
	p.rotated(item.Pose, func() {
		switch item.Type {
		case core.ItemTypeShape:
			shape := item.Shape()
			p.shape(shape.Kind, item.Rect(), shape.Color, tools.DefaultStrokeWidth)
		case core.ItemTypeDraw:
			p.freehand(item)
		default:
			p.card(item)
		}
	})
}

func (p *painter) shape(kind core.ShapeKind, r geometry.Rect, color string, width float64) {
	dc := p.dc
	switch kind {
	case core.ShapeCircle:
		c := r.Center()
		dc.DrawEllipse(c.X, c.Y, r.Width/2, r.Height/2)
		p.stroke(color, width)
	case core.ShapeArrow:
		// Points from the left edge to the right edge along the centre line.
		cy := r.Y + r.Height/2
		tip := r.MaxX()
		head := math.Min(r.Height/2, r.Width/3)
		dc.MoveTo(r.X, cy)
		dc.LineTo(tip, cy)
		dc.MoveTo(tip-head, cy-head)
		dc.LineTo(tip, cy)
		dc.LineTo(tip-head, cy+head)
		p.stroke(color, width)
	default:
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		p.stroke(color, width)
	}
}

// freehand scales the stroke's points by how far the item was resized
// since the stroke was captured.
func (p *painter) freehand(item core.Item) {
	stroke := item.Stroke()
	if len(stroke.Points) < 2 {
		return
	}
	sx, sy := 1.0, 1.0
	if stroke.BaseWidth > 0 {
		sx = item.Width / stroke.BaseWidth
	}
	if stroke.BaseHeight > 0 {
		sy = item.Height / stroke.BaseHeight
	}
	p.polyline(stroke.Points, item.X, item.Y, sx, sy)
	p.stroke(stroke.Color, stroke.StrokeWidth)
}

func (p *painter) polyline(points []geometry.Point, ox, oy, sx, sy float64) {
	p.dc.MoveTo(ox+points[0].X*sx, oy+points[0].Y*sy)
	for _, pt := range points[1:] {
		p.dc.LineTo(ox+pt.X*sx, oy+pt.Y*sy)
	}
}

func (p *painter) card(item core.Item) {
	dc := p.dc
	color, ok := cardColors[item.Type]
	if !ok {
		color = "#ffffff"
	}
	r := item.Rect()
	radius := math.Min(8, math.Min(r.Width, r.Height)/4)
	dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, radius)
	p.fill(color)
	dc.DrawRoundedRectangle(r.X, r.Y, r.Width, r.Height, radius)
	p.stroke("#00000033", p.px(1))

	if item.Type == core.ItemTypeVideoHost || item.Type == core.ItemTypeVideoEmbed {
		c := r.Center()
		s := math.Min(r.Width, r.Height) / 5
		dc.MoveTo(c.X-s/2, c.Y-s/2)
		dc.LineTo(c.X+s/2, c.Y)
		dc.LineTo(c.X-s/2, c.Y+s/2)
		dc.ClosePath()
		p.fill("#ffffff")
	}
}

// outline traces a pose's rotated rectangle, grown by pad screen pixels.
func (p *painter) outline(pose core.Pose, color string, pad float64, dashed bool) {
	grow := p.px(pad)
	p.rotated(pose, func() {
		if dashed {
			p.dc.SetDash(p.px(4), p.px(3))
		}
		p.dc.DrawRectangle(pose.X-grow, pose.Y-grow, pose.Width+2*grow, pose.Height+2*grow)
		p.stroke(color, p.px(outlineWidth))
		p.dc.ClearDash()
	})
}

// locks outlines items other editors hold, in the holder's presence colour.
func (p *painter) locks(scene Scene) {
	byID := indexItems(scene.Items)
	for _, lock := range scene.Locks {
		if lock.HolderID == scene.SelfID {
			continue
		}
		if item, ok := byID[lock.ItemID]; ok {
			p.outline(item.Pose, core.PresenceColor(lock.HolderID), lockPadding, true)
		}
	}
}

func (p *painter) selection(scene Scene) {
	byID := indexItems(scene.Items)
	for _, id := range scene.Selected {
		if item, ok := byID[id]; ok {
			p.outline(item.Pose, SelectionColor, 0, false)
		}
	}
}

func indexItems(items []core.Item) map[string]core.Item {
	byID := make(map[string]core.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID
}

func (p *painter) overlay(o tools.Overlay) {
	dc := p.dc
	switch o.Kind {
	case tools.OverlayMarquee:
		r := o.Rect
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		p.fill("#1e88e522")
		dc.SetDash(p.px(4), p.px(3))
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		p.stroke(SelectionColor, p.px(1))
		dc.ClearDash()
	case tools.OverlayGroup:
		pose := core.Pose{X: o.Rect.X, Y: o.Rect.Y, Width: o.Rect.Width, Height: o.Rect.Height, Rotation: o.Rotation}
		p.rotated(pose, func() {
			dc.DrawRectangle(o.Rect.X, o.Rect.Y, o.Rect.Width, o.Rect.Height)
			p.stroke(SelectionColor, p.px(outlineWidth))
			if o.Handles {
				p.handles(o.Rect)
			}
		})
	case tools.OverlayShapeDraft:
		pose := core.Pose{X: o.Rect.X, Y: o.Rect.Y, Width: o.Rect.Width, Height: o.Rect.Height, Rotation: o.Rotation}
		p.rotated(pose, func() {
			p.shape(o.Shape, o.Rect, o.Color, tools.DefaultStrokeWidth)
		})
	case tools.OverlayStrokeDraft:
		if len(o.Points) < 2 {
			return
		}
		p.polyline(o.Points, 0, 0, 1, 1)
		p.stroke(o.Color, tools.DefaultStrokeWidth)
	}
}

func (p *painter) handles(r geometry.Rect) {
	size := p.px(handleSize)
	for _, h := range geometry.Handles {
		c := r.Corner(h)
		p.dc.DrawRectangle(c.X-size/2, c.Y-size/2, size, size)
		p.fill("#ffffff")
		p.dc.DrawRectangle(c.X-size/2, c.Y-size/2, size, size)
		p.stroke(SelectionColor, p.px(1))
	}
}

// cursor draws an arrow pointer whose tip sits on the user's world cursor.
func (p *painter) cursor(user core.PresenceUser) {
	color := user.Color
	if color == "" {
		color = core.PresenceColor(user.UserID)
	}
	s := p.px(cursorSize)
	x, y := user.Cursor.X, user.Cursor.Y
	p.dc.MoveTo(x, y)
	p.dc.LineTo(x, y+s)
	p.dc.LineTo(x+s*0.3, y+s*0.72)
	p.dc.LineTo(x+s*0.72, y+s*0.72)
	p.dc.ClosePath()
	p.fill(color)
}
