package geometry

import "math"

// Handle names one of the four corner resize handles.
type Handle string

const (
	HandleNone Handle = ""
	HandleNW   Handle = "nw"
	HandleNE   Handle = "ne"
	HandleSW   Handle = "sw"
	HandleSE   Handle = "se"
)

// Handles lists the corner handles in drawing order.
var Handles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE}

// Corner returns the position of handle h on r.
func (r Rect) Corner(h Handle) Point {
	switch h {
	case HandleNW:
		return Point{X: r.X, Y: r.Y}
	case HandleNE:
		return Point{X: r.MaxX(), Y: r.Y}
	case HandleSW:
		return Point{X: r.X, Y: r.MaxY()}
	default:
		return Point{X: r.MaxX(), Y: r.MaxY()}
	}
}

// ResizeRect moves the corner named by handle by (dx, dy) while the opposite
// corner stays fixed. Neither dimension drops below min. An unknown handle
// behaves like se.
func ResizeRect(origin Rect, handle Handle, dx, dy, min float64) Rect {
	next := origin
	switch handle {
	case HandleNW:
		next.Width = math.Max(min, origin.Width-dx)
		next.Height = math.Max(min, origin.Height-dy)
		next.X = origin.X + (origin.Width - next.Width)
		next.Y = origin.Y + (origin.Height - next.Height)
	case HandleNE:
		next.Width = math.Max(min, origin.Width+dx)
		next.Height = math.Max(min, origin.Height-dy)
		next.Y = origin.Y + (origin.Height - next.Height)
	case HandleSW:
		next.Width = math.Max(min, origin.Width-dx)
		next.Height = math.Max(min, origin.Height+dy)
		next.X = origin.X + (origin.Width - next.Width)
	default:
		next.Width = math.Max(min, origin.Width+dx)
		next.Height = math.Max(min, origin.Height+dy)
	}
	return next
}

// ScaleFactors returns the per-axis scale that maps origin onto next.
func ScaleFactors(origin, next Rect) (sx, sy float64) {
	sx, sy = 1, 1
	if origin.Width != 0 {
		sx = next.Width / origin.Width
	}
	if origin.Height != 0 {
		sy = next.Height / origin.Height
	}
	return sx, sy
}

// ScaleRectWithin repositions and rescales member, which lived inside
// groupOrigin, so it keeps its relative placement inside groupNext.
func ScaleRectWithin(member, groupOrigin, groupNext Rect, sx, sy float64) Rect {
	return Rect{
		X:      groupNext.X + (member.X-groupOrigin.X)*sx,
		Y:      groupNext.Y + (member.Y-groupOrigin.Y)*sy,
		Width:  member.Width * sx,
		Height: member.Height * sy,
	}
}
