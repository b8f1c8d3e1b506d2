package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
)

func TestPatchApply(t *testing.T) {
	item := Item{ID: "a", Pose: Pose{X: 1, Y: 2, Width: 30, Height: 40, Rotation: 5}, ZIndex: 3}

	tests := []struct {
		name  string
		patch Patch
		want  Pose
	}{
		{"empty", Patch{}, Pose{X: 1, Y: 2, Width: 30, Height: 40, Rotation: 5}},
		{"move", Patch{X: Float(10), Y: Float(20)}, Pose{X: 10, Y: 20, Width: 30, Height: 40, Rotation: 5}},
		{"floor size", Patch{Width: Float(-5), Height: Float(0.5)}, Pose{X: 1, Y: 2, Width: MinItemSize, Height: MinItemSize, Rotation: 5}},
		{"rotation is unbounded", Patch{Rotation: Float(725)}, Pose{X: 1, Y: 2, Width: 30, Height: 40, Rotation: 725}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.patch.Apply(item)
			if got.Pose != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got.Pose)
			}
			if got.ZIndex != 3 {
				t.Errorf("Expected z_index to be untouched, got %d", got.ZIndex)
			}
		})
	}
}

func TestPatchMerge(t *testing.T) {
	merged := Patch{X: Float(1), Y: Float(1)}.Merge(Patch{Y: Float(2), Rotation: Float(90)})
	if *merged.X != 1 || *merged.Y != 2 || *merged.Rotation != 90 {
		t.Errorf("Unexpected merge result %+v", merged)
	}
	if merged.Width != nil {
		t.Error("Expected width to stay unset")
	}
}

func TestPatchHelpers(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Error("Expected zero patch to be empty")
	}
	p := PosePatch(Pose{X: 1, Width: 2, Height: 3})
	if p.IsEmpty() || !p.TouchesPose() {
		t.Error("Expected a pose patch to touch the pose")
	}
	z := 4
	content := Patch{X: Float(1), ZIndex: &z, Data: map[string]any{"text": "x"}}.WithoutPose()
	if content.TouchesPose() || content.ZIndex == nil || content.Data == nil {
		t.Errorf("Unexpected WithoutPose result %+v", content)
	}
}

func TestPatchJSONOmitsUnsetFields(t *testing.T) {
	raw, err := json.Marshal(Patch{X: Float(0)})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"x":0}` {
		t.Errorf("Unexpected encoding %s", raw)
	}
}

func TestItemJSONFlattensPose(t *testing.T) {
	item := Item{ID: "a", BoardID: "b", Type: ItemTypeShape, Pose: Pose{X: 1, Y: 2, Width: 3, Height: 4, Rotation: 5}, ZIndex: 6}
	raw, err := json.Marshal(item)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"x", "y", "width", "height", "rotation", "z_index", "board_id"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("Expected %q in %s", key, raw)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	stroke := StrokeData{
		Points:      []geometry.Point{{X: 0, Y: 0}, {X: 3, Y: 4}},
		Color:       "#222",
		StrokeWidth: 2,
		BaseWidth:   3,
		BaseHeight:  4,
	}
	item := Item{Type: ItemTypeDraw, Data: EncodePayload(stroke)}
	got := item.Stroke()
	if len(got.Points) != 2 || got.Points[1] != (geometry.Point{X: 3, Y: 4}) || got.BaseHeight != 4 {
		t.Errorf("Unexpected stroke %+v", got)
	}

	shape := Item{Data: map[string]any{"kind": "arrow"}}.Shape()
	if shape.Kind != ShapeArrow || shape.Color != "#111111" {
		t.Errorf("Unexpected shape %+v", shape)
	}

	if text := (Item{Data: EncodePayload(TextData{Text: "hi"})}).Text(); text != "hi" {
		t.Errorf("Expected hi, got %q", text)
	}
}

func TestPresenceColorIsStable(t *testing.T) {
	palette := map[string]bool{}
	for _, c := range presencePalette {
		palette[c] = true
	}
	for _, id := range []string{"", "a", "alice", "01HZXK3J9V6T", "bob"} {
		c := PresenceColor(id)
		if !palette[c] {
			t.Errorf("Color %s for %q is not in the palette", c, id)
		}
		if c != PresenceColor(id) {
			t.Errorf("Color for %q is not stable", id)
		}
	}
	// "a" is rune 97; 97 mod 6 = 1.
	if got := PresenceColor("a"); got != "#2a9d8f" {
		t.Errorf("Expected #2a9d8f, got %s", got)
	}
}

func TestLockLive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	if !(Lock{}).Live(now) {
		t.Error("Expected a lock without expiry to be live")
	}
	if (Lock{ExpiresAt: &past}).Live(now) {
		t.Error("Expected an expired lock not to be live")
	}
}

func TestItemClone(t *testing.T) {
	item := Item{Data: map[string]any{"text": "a"}}
	clone := item.Clone()
	clone.Data["text"] = "b"
	if item.Data["text"] != "a" {
		t.Error("Expected clone to own its payload map")
	}
}
