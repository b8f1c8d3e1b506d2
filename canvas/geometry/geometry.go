// Package geometry holds the pure world-space math used by the canvas:
// points, rectangles, bounds and the group transform helpers.
package geometry

import "math"

type (
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Rect is an axis-aligned rectangle. Width and Height are never negative
	// for rectangles produced by this package.
	Rect struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
)

func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func Clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

// Bounds returns the axis-aligned bounds of a point set. ok is false for an
// empty set.
func Bounds(points []Point) (r Rect, ok bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, pt := range points[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// NormalizePoints re-expresses points relative to origin.
func NormalizePoints(points []Point, origin Point) []Point {
	out := make([]Point, len(points))
	for i, pt := range points {
		out[i] = Point{X: pt.X - origin.X, Y: pt.Y - origin.Y}
	}
	return out
}

// RectFromPoints normalizes two arbitrary corners into a rectangle with
// non-negative extents.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// RectsIntersect is the separating-axis test for two AABBs. Touching edges
// do not count as an intersection.
func RectsIntersect(a, b Rect) bool {
	return a.X < b.MaxX() &&
		a.MaxX() > b.X &&
		a.Y < b.MaxY() &&
		a.MaxY() > b.Y
}

// AngleDegrees is atan2 of (p - center) in degrees.
func AngleDegrees(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
}

// Rotate rotates p about center by deg degrees.
func Rotate(p, center Point, deg float64) Point {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// NormalizeDegrees maps an unconstrained rotation into [0, 360) for display.
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
