package core

import (
	"encoding/json"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
)

type ShapeKind string

const (
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
	ShapeArrow  ShapeKind = "arrow"
)

type (
	ShapeData struct {
		Kind  ShapeKind `json:"kind"`
		Color string    `json:"color"`
	}

	// StrokeData holds a freehand stroke. Points are relative to the item's
	// top-left corner at creation time, when the item measured
	// BaseWidth x BaseHeight.
	StrokeData struct {
		Points      []geometry.Point `json:"points"`
		Color       string           `json:"color"`
		StrokeWidth float64          `json:"strokeWidth"`
		BaseWidth   float64          `json:"baseWidth,omitempty"`
		BaseHeight  float64          `json:"baseHeight,omitempty"`
	}

	TextData struct {
		Text string `json:"text"`
	}

	URLData struct {
		URL string `json:"url"`
	}
)

// EncodePayload turns a typed payload into the opaque map stored on items.
func EncodePayload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// DecodePayload reads an item's opaque payload into v. Payloads arrive
// either straight from local creation or from a JSON round trip, so the
// conversion always goes through JSON.
func DecodePayload(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (i Item) Shape() ShapeData {
	out := ShapeData{Kind: ShapeRect, Color: "#111111"}
	_ = DecodePayload(i.Data, &out)
	return out
}

func (i Item) Stroke() StrokeData {
	out := StrokeData{Color: "#111111", StrokeWidth: 2}
	_ = DecodePayload(i.Data, &out)
	return out
}

func (i Item) Text() string {
	var out TextData
	_ = DecodePayload(i.Data, &out)
	return out.Text
}

func (i Item) URL() string {
	var out URLData
	_ = DecodePayload(i.Data, &out)
	return out.URL
}
