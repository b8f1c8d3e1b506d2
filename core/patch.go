package core

import "math"

// Patch is a partial item update. Nil fields are left untouched; a non-nil
// Data replaces the whole payload.
type Patch struct {
	X        *float64       `json:"x,omitempty"`
	Y        *float64       `json:"y,omitempty"`
	Width    *float64       `json:"width,omitempty"`
	Height   *float64       `json:"height,omitempty"`
	Rotation *float64       `json:"rotation,omitempty"`
	ZIndex   *int           `json:"z_index,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

func Float(v float64) *float64 { return &v }

// PosePatch carries a full pose.
func PosePatch(p Pose) Patch {
	return Patch{
		X:        Float(p.X),
		Y:        Float(p.Y),
		Width:    Float(p.Width),
		Height:   Float(p.Height),
		Rotation: Float(p.Rotation),
	}
}

func (p Patch) IsEmpty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.ZIndex == nil && p.Data == nil
}

// TouchesPose reports whether the patch changes any pose field.
func (p Patch) TouchesPose() bool {
	return p.X != nil || p.Y != nil || p.Width != nil || p.Height != nil || p.Rotation != nil
}

// Apply returns item with the patch applied. Width and height are floored
// at MinItemSize.
func (p Patch) Apply(item Item) Item {
	out := item
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Width != nil {
		out.Width = math.Max(MinItemSize, *p.Width)
	}
	if p.Height != nil {
		out.Height = math.Max(MinItemSize, *p.Height)
	}
	if p.Rotation != nil {
		out.Rotation = *p.Rotation
	}
	if p.ZIndex != nil {
		out.ZIndex = *p.ZIndex
	}
	if p.Data != nil {
		out.Data = p.Data
	}
	return out
}

// Merge layers next over p, field by field.
func (p Patch) Merge(next Patch) Patch {
	out := p
	if next.X != nil {
		out.X = next.X
	}
	if next.Y != nil {
		out.Y = next.Y
	}
	if next.Width != nil {
		out.Width = next.Width
	}
	if next.Height != nil {
		out.Height = next.Height
	}
	if next.Rotation != nil {
		out.Rotation = next.Rotation
	}
	if next.ZIndex != nil {
		out.ZIndex = next.ZIndex
	}
	if next.Data != nil {
		out.Data = next.Data
	}
	return out
}

// WithoutPose drops the pose fields.
func (p Patch) WithoutPose() Patch {
	return Patch{ZIndex: p.ZIndex, Data: p.Data}
}
