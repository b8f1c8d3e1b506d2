// Package view converts between screen (pointer) space and world (item)
// space and implements zoom toward the cursor.
package view

import (
	"math"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
)

const (
	MinScale = 0.2
	MaxScale = 4.0

	zoomOut = 0.9
	zoomIn  = 1.1
)

// View is the world-to-screen transform: screen = world*Scale + (X, Y).
type View struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Default is the view a fresh canvas opens with.
func Default() View {
	return View{X: 100, Y: 80, Scale: 1}
}

func (v View) ToWorld(screen geometry.Point) geometry.Point {
	return geometry.Point{
		X: (screen.X - v.X) / v.Scale,
		Y: (screen.Y - v.Y) / v.Scale,
	}
}

func (v View) ToScreen(world geometry.Point) geometry.Point {
	return geometry.Point{
		X: world.X*v.Scale + v.X,
		Y: world.Y*v.Scale + v.Y,
	}
}

// Zoom rescales by one wheel step and re-solves the pan offset so the world
// point under screen stays under it. direction > 0 zooms out.
func (v View) Zoom(screen geometry.Point, direction float64) View {
	world := v.ToWorld(screen)
	factor := zoomIn
	if direction > 0 {
		factor = zoomOut
	}
	scale := geometry.Clamp(v.Scale*factor, MinScale, MaxScale)
	return View{
		X:     screen.X - world.X*scale,
		Y:     screen.Y - world.Y*scale,
		Scale: scale,
	}
}

// Pan offsets the view by a raw screen-space delta. Scale is untouched.
func (v View) Pan(dx, dy float64) View {
	return View{X: v.X + dx, Y: v.Y + dy, Scale: v.Scale}
}

// Viewport returns the world rectangle visible through a width x height screen.
func (v View) Viewport(width, height float64) geometry.Rect {
	tl := v.ToWorld(geometry.Point{})
	return geometry.Rect{X: tl.X, Y: tl.Y, Width: width / v.Scale, Height: height / v.Scale}
}

// Fit returns a view that frames bounds inside a width x height screen with
// padding pixels on every side. The scale is clamped to the valid range.
func Fit(bounds geometry.Rect, width, height, padding float64) View {
	availW := math.Max(1, width-2*padding)
	availH := math.Max(1, height-2*padding)
	scale := 1.0
	if bounds.Width > 0 && bounds.Height > 0 {
		scale = math.Min(availW/bounds.Width, availH/bounds.Height)
	}
	scale = geometry.Clamp(scale, MinScale, MaxScale)
	center := bounds.Center()
	return View{
		X:     width/2 - center.X*scale,
		Y:     height/2 - center.Y*scale,
		Scale: scale,
	}
}
