package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/tools"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

const DefaultNoteText = "New note"

var defaultSizes = map[core.ItemType]geometry.Point{
	core.ItemTypeText:       {X: 220, Y: 120},
	core.ItemTypeLink:       {X: 260, Y: 120},
	core.ItemTypeImage:      {X: 320, Y: 220},
	core.ItemTypeVideoHost:  {X: 360, Y: 240},
	core.ItemTypeVideoEmbed: {X: 360, Y: 240},
}

func (s *Session) AddText(text string) (core.Item, error) {
	if text == "" {
		text = DefaultNoteText
	}
	return s.add(core.ItemTypeText, core.EncodePayload(core.TextData{Text: text}))
}

func (s *Session) AddLink(url string) (core.Item, error) {
	return s.addURL(core.ItemTypeLink, url)
}

// AddImage places an image whose content was uploaded to url.
func (s *Session) AddImage(url string) (core.Item, error) {
	return s.addURL(core.ItemTypeImage, url)
}

func (s *Session) AddHostedVideo(url string) (core.Item, error) {
	return s.addURL(core.ItemTypeVideoHost, url)
}

func (s *Session) AddEmbeddedVideo(url string) (core.Item, error) {
	return s.addURL(core.ItemTypeVideoEmbed, url)
}

func (s *Session) addURL(typ core.ItemType, url string) (core.Item, error) {
	if url == "" {
		return core.Item{}, fmt.Errorf("%s item needs a url", typ)
	}
	return s.add(typ, core.EncodePayload(core.URLData{URL: url}))
}

// add places a new item at the next cascading slot.
func (s *Session) add(typ core.ItemType, data map[string]any) (core.Item, error) {
	s.mu.Lock()
	if s.cfg.ReadOnly {
		s.mu.Unlock()
		return core.Item{}, fmt.Errorf("board %s is read-only", s.cfg.BoardID)
	}
	offset := float64(len(s.cache.items)) * 20
	size := defaultSizes[typ]
	item := s.createItemLocked(typ, data, core.Pose{
		X:      50 + offset,
		Y:      50 + offset,
		Width:  size.X,
		Height: size.Y,
	})
	s.mu.Unlock()
	s.notify()
	return item.Clone(), nil
}

// UpdateContent replaces an item's payload.
func (s *Session) UpdateContent(itemID string, data map[string]any) error {
	s.mu.Lock()
	if err := s.writableLocked(itemID); err != nil {
		s.mu.Unlock()
		return err
	}
	patch := core.Patch{Data: data}
	s.cache.patch(itemID, patch)
	s.dirty = true
	s.submitUpdate(itemID, patch)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) DeleteItem(itemID string) error {
	s.mu.Lock()
	err := s.deleteLocked(itemID)
	s.mu.Unlock()
	s.notify()
	return err
}

// DeleteSelection deletes every selected item it may write. Items that
// cannot be deleted stay selected and their errors are joined.
func (s *Session) DeleteSelection() error {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notify()
	}()
	var errs []error
	for _, id := range s.selection.IDs() {
		if err := s.deleteLocked(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) deleteLocked(itemID string) error {
	if err := s.writableLocked(itemID); err != nil {
		return err
	}
	s.cache.remove(itemID)
	s.patches.Cancel(itemID)
	if s.selection.Remove(itemID) {
		s.lockTable.clearLocal(itemID)
		s.releaseLockLocked(itemID)
	}
	s.dirty = true
	s.outbox.Submit(itemID, "delete", itemID, func(ctx context.Context) error {
		return s.items.Delete(ctx, itemID)
	})
	return nil
}

func (s *Session) writableLocked(itemID string) error {
	if s.cfg.ReadOnly {
		return fmt.Errorf("board %s is read-only", s.cfg.BoardID)
	}
	if _, ok := s.cache.get(itemID); !ok {
		return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
	}
	if s.lockTable.lockedByOther(itemID, s.cfg.Clock.Now()) {
		return fmt.Errorf("item with id %s is locked by another editor", itemID)
	}
	return nil
}

// Items returns the cached items in stacking order, bottom first.
func (s *Session) Items() []core.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.cache.sorted()
	for i := range items {
		items[i] = items[i].Clone()
	}
	return items
}

func (s *Session) Item(id string) (core.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.cache.get(id)
	return item.Clone(), ok
}

func (s *Session) View() view.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *Session) SetView(v view.View) {
	s.mu.Lock()
	s.view = v
	s.dirty = true
	s.mu.Unlock()
	s.notify()
}

func (s *Session) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IDs()
}

// Overlays returns the active tool's transient decorations.
func (s *Session) Overlays() []tools.Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toolbox.Active().Overlay(toolContext{s: s})
}

// Presence lists the other editors on the board.
func (s *Session) Presence() []core.PresenceUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.others.list()
}

func (s *Session) Locks() []core.Lock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockTable.list()
}

func (s *Session) IsLockedByOther(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockTable.lockedByOther(itemID, s.cfg.Clock.Now())
}

func (s *Session) DrawColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawColor
}

func (s *Session) SetDrawColor(color string) {
	s.mu.Lock()
	s.drawColor = color
	s.dirty = true
	s.mu.Unlock()
	s.notify()
}

// DraggingIDs lists the items whose pose is being driven by a local
// gesture.
func (s *Session) DraggingIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.cache.dragging))
	for id := range s.cache.dragging {
		out = append(out, id)
	}
	return out
}

// Self is the presence record other editors see for this session.
func (s *Session) Self() core.PresenceUser {
	return core.PresenceUser{
		UserID:      s.cfg.UserID,
		BoardID:     s.cfg.BoardID,
		DisplayName: s.cfg.DisplayName,
		Color:       core.PresenceColor(s.cfg.UserID),
	}
}
