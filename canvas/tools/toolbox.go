package tools

import (
	"fmt"

	"github.com/Diamondrubix/ScrapBook/core"
)

// Toolbox owns one instance of every tool and tracks which one is active.
type Toolbox struct {
	tools  map[ToolID]Tool
	active ToolID
}

func NewToolbox() *Toolbox {
	b := &Toolbox{tools: make(map[ToolID]Tool), active: ToolSelect}
	for _, t := range []Tool{
		NewSelectTool(),
		NewShapeTool(core.ShapeRect),
		NewShapeTool(core.ShapeCircle),
		NewShapeTool(core.ShapeArrow),
		NewPenTool(PenPointMinDistance),
	} {
		b.tools[t.ID()] = t
	}
	return b
}

func (b *Toolbox) Active() Tool { return b.tools[b.active] }

func (b *Toolbox) ActiveID() ToolID { return b.active }

// Get returns the tool registered under id.
func (b *Toolbox) Get(id ToolID) (Tool, bool) {
	t, ok := b.tools[id]
	return t, ok
}

// SetActive switches tools. The outgoing tool is reset, so no gesture or
// draft survives the switch. Selecting the active tool again is a no-op.
func (b *Toolbox) SetActive(id ToolID) error {
	if _, ok := b.tools[id]; !ok {
		return fmt.Errorf("unknown tool %q", id)
	}
	if id == b.active {
		return nil
	}
	b.tools[b.active].Reset()
	b.active = id
	return nil
}
