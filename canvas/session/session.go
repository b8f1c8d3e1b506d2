// Package session is the canvas shell for one editor on one board. It owns
// the view, the selection, the optimistic item cache and the active tool,
// and keeps them in step with the shared item, lock and presence stores.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/selection"
	"github.com/Diamondrubix/ScrapBook/canvas/tools"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
)

const (
	DefaultThrottleInterval = 40 * time.Millisecond
	DefaultDrawColor        = "#111111"
	DefaultHandleRadius     = 8.0
	DefaultDisplayName      = "Guest"
)

type Config struct {
	BoardID     string
	UserID      string
	DisplayName string

	// ThrottleInterval bounds outbound pose writes per item and cursor
	// publishes.
	ThrottleInterval time.Duration
	// LockHeartbeat re-acquires the locks of the current selection at this
	// period, for lock stores that expire locks. Zero disables it.
	LockHeartbeat time.Duration
	DrawColor     string
	// HandleRadius is the resize-handle hit slop in screen pixels.
	HandleRadius float64
	// ReadOnly sessions can pan and zoom but never write.
	ReadOnly bool

	Clock        Clock
	OnError      func(error)
	OnInvalidate func()
}

func (c *Config) defaults() {
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = DefaultThrottleInterval
	}
	if c.DrawColor == "" {
		c.DrawColor = DefaultDrawColor
	}
	if c.HandleRadius <= 0 {
		c.HandleRadius = DefaultHandleRadius
	}
	if c.DisplayName == "" {
		c.DisplayName = DefaultDisplayName
	}
	if c.Clock == nil {
		c.Clock = RealClock()
	}
}

type Session struct {
	cfg      Config
	items    core.ItemStore
	locks    core.LockStore
	presence core.PresenceChannel
	log      *logrus.Entry

	cancel  context.CancelFunc
	outbox  *Outbox
	patches *Throttler[core.Patch]
	cursor  *Throttler[geometry.Point]

	// presenceMu orders cursor publishes against the final Leave.
	presenceMu sync.Mutex
	left       bool

	mu          sync.Mutex
	cache       *cache
	lockTable   *lockTable
	others      *presenceSet
	view        view.View
	selection   *selection.Selection
	toolbox     *tools.Toolbox
	drawColor   string
	pendingTool tools.ToolID
	dirty       bool
	heartbeat   Timer
	unsubscribe []func()
	closed      bool
	consumers   sync.WaitGroup
}

// New builds a session. presence may be nil.
func New(cfg Config, items core.ItemStore, locks core.LockStore, presence core.PresenceChannel) *Session {
	cfg.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		items:    items,
		locks:    locks,
		presence: presence,
		log: logrus.WithFields(logrus.Fields{
			"board_id": cfg.BoardID,
			"user_id":  cfg.UserID,
		}),
		cancel:    cancel,
		outbox:    NewOutbox(ctx, cfg.OnError),
		cache:     newCache(),
		lockTable: newLockTable(cfg.UserID),
		others:    newPresenceSet(cfg.UserID),
		view:      view.Default(),
		selection: selection.New(),
		toolbox:   tools.NewToolbox(),
		drawColor: cfg.DrawColor,
	}
	s.patches = NewThrottler(cfg.Clock, cfg.ThrottleInterval, core.Patch.Merge, s.submitUpdate)
	s.cursor = NewThrottler(cfg.Clock, cfg.ThrottleInterval, nil, s.submitCursor)
	return s
}

// Load reads the board's items and locks and starts following the shared
// stores.
func (s *Session) Load(ctx context.Context) error {
	itemEvents, stopItems := s.items.SubscribeItems(s.cfg.BoardID)
	lockEvents, stopLocks := s.locks.SubscribeLocks(s.cfg.BoardID)
	unsubscribe := []func(){stopItems, stopLocks}

	items, err := s.items.List(ctx, s.cfg.BoardID)
	if err != nil {
		stopItems()
		stopLocks()
		return fmt.Errorf("list items for board %s: %w", s.cfg.BoardID, err)
	}
	locks, err := s.locks.ListLocks(ctx, s.cfg.BoardID)
	if err != nil {
		stopItems()
		stopLocks()
		return fmt.Errorf("list locks for board %s: %w", s.cfg.BoardID, err)
	}

	var presenceEvents <-chan core.PresenceUser
	if s.presence != nil {
		var stopPresence func()
		presenceEvents, stopPresence = s.presence.SubscribePresence(s.cfg.BoardID)
		unsubscribe = append(unsubscribe, stopPresence)
	}

	s.mu.Lock()
	s.cache.reset(items)
	s.lockTable.reset(locks)
	s.unsubscribe = unsubscribe
	s.dirty = true
	s.scheduleHeartbeatLocked()
	s.mu.Unlock()

	s.consumers.Add(2)
	go s.consumeItems(itemEvents)
	go s.consumeLocks(lockEvents)
	if presenceEvents != nil {
		s.consumers.Add(1)
		go s.consumePresence(presenceEvents)
	}

	s.log.WithField("items", len(items)).Info("Board loaded")
	s.notify()
	return nil
}

// Close releases this editor's locks, leaves the presence channel, stops
// following the stores and waits for queued writes to finish.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	if !s.cfg.ReadOnly {
		for _, id := range s.selection.IDs() {
			s.lockTable.clearLocal(id)
			s.releaseLockLocked(id)
		}
	}
	s.selection.Clear()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	s.patches.Stop()
	s.cursor.Stop()
	s.presenceMu.Lock()
	s.left = true
	if s.presence != nil {
		s.outbox.Submit("presence", "leave", "", func(ctx context.Context) error {
			return s.presence.Leave(ctx, s.cfg.BoardID, s.cfg.UserID)
		})
	}
	s.presenceMu.Unlock()
	for _, stop := range unsubscribe {
		stop()
	}
	s.consumers.Wait()
	s.outbox.Wait()
	s.cancel()
	s.log.Info("Session closed")
}

// Flush waits for every write submitted so far to complete.
func (s *Session) Flush() {
	s.outbox.Wait()
}

func (s *Session) PointerDown(ev tools.PointerEvent) {
	s.dispatch(func(tool tools.Tool, ctx tools.Context) {
		if s.cfg.ReadOnly && ev.Button != tools.ButtonSecondary {
			return
		}
		if ev.Button == tools.ButtonSecondary || tool.ID() != tools.ToolSelect {
			tool.OnCanvasPointerDown(ctx, ev)
			return
		}

		world := s.view.ToWorld(ev.Screen)
		items := s.cache.sorted()
		selected := selection.Filter(items, s.selection.IDs())
		bounds, hasBounds := selection.GroupBounds(items, s.selection.IDs())

		if hasBounds {
			radius := s.cfg.HandleRadius / s.view.Scale
			if h := selection.HandleAt(bounds, world, radius); h != geometry.HandleNone {
				tool.OnItemPointerDown(ctx, ev, selected[0], h)
				return
			}
		}
		if hit, ok := selection.HitTest(items, world); ok {
			tool.OnItemPointerDown(ctx, ev, hit, geometry.HandleNone)
			return
		}
		// Inside the box of a multi-selection drags the whole group.
		if hasBounds && len(selected) > 1 && bounds.Contains(world) {
			tool.OnItemPointerDown(ctx, ev, selected[0], geometry.HandleNone)
			return
		}
		tool.OnCanvasPointerDown(ctx, ev)
	})
}

// PointerMove drives the active tool and publishes the cursor.
func (s *Session) PointerMove(ev tools.PointerEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	world := s.view.ToWorld(ev.Screen)
	s.mu.Unlock()
	if s.presence != nil {
		s.cursor.Call("cursor", world)
	}
	s.dispatch(func(tool tools.Tool, ctx tools.Context) {
		tool.OnPointerMove(ctx, ev)
	})
}

// PointerUp ends the active gesture. Leaving the canvas is a pointer-up.
func (s *Session) PointerUp(ev tools.PointerEvent) {
	s.dispatch(func(tool tools.Tool, ctx tools.Context) {
		tool.OnPointerUp(ctx, ev)
	})
}

// Wheel zooms one step around the screen point. deltaY > 0 zooms out.
func (s *Session) Wheel(screen geometry.Point, deltaY float64) {
	s.mu.Lock()
	s.view = s.view.Zoom(screen, deltaY)
	s.dirty = true
	s.mu.Unlock()
	s.notify()
}

// SetTool switches the active tool, discarding any unfinished gesture.
func (s *Session) SetTool(id tools.ToolID) error {
	s.mu.Lock()
	err := s.setToolLocked(id)
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Session) setToolLocked(id tools.ToolID) error {
	if s.cfg.ReadOnly && id != tools.ToolSelect {
		return fmt.Errorf("board %s is read-only", s.cfg.BoardID)
	}
	if err := s.toolbox.SetActive(id); err != nil {
		return err
	}
	s.cache.setDragging(nil)
	s.dirty = true
	return nil
}

func (s *Session) ActiveTool() tools.ToolID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toolbox.ActiveID()
}

// GestureState is the select tool's gesture state, or idle when another
// tool is active.
func (s *Session) GestureState() tools.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.toolbox.Active().(*tools.SelectTool); ok {
		return st.State()
	}
	return tools.StateIdle
}

// Select replaces the selection. Ids locked by another editor or unknown to
// the cache are dropped.
func (s *Session) Select(ids ...string) {
	s.mu.Lock()
	s.setSelectionLocked(ids)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setSelectionLocked(ids []string) {
	now := s.cfg.Clock.Now()
	admitted := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.cache.get(id); !ok || s.lockTable.lockedByOther(id, now) {
			continue
		}
		admitted = append(admitted, id)
	}

	prev := s.selection.IDs()
	s.selection.Set(admitted)
	s.dirty = true
	if s.cfg.ReadOnly {
		return
	}

	added, removed := selection.Diff(prev, s.selection.IDs())
	for _, id := range removed {
		s.lockTable.clearLocal(id)
		s.releaseLockLocked(id)
	}
	for _, id := range added {
		s.lockTable.setLocal(id, now)
		s.acquireLockLocked(id)
	}
}

func (s *Session) acquireLockLocked(itemID string) {
	s.log.WithField("item_id", itemID).Debug("Acquiring lock")
	s.outbox.Submit("lock/"+itemID, "acquire lock", itemID, func(ctx context.Context) error {
		return s.locks.Acquire(ctx, itemID, s.cfg.UserID)
	})
}

func (s *Session) releaseLockLocked(itemID string) {
	s.log.WithField("item_id", itemID).Debug("Releasing lock")
	s.outbox.Submit("lock/"+itemID, "release lock", itemID, func(ctx context.Context) error {
		return s.locks.Release(ctx, itemID, s.cfg.UserID)
	})
}

func (s *Session) scheduleHeartbeatLocked() {
	if s.cfg.LockHeartbeat <= 0 || s.cfg.ReadOnly || s.closed {
		return
	}
	s.heartbeat = s.cfg.Clock.AfterFunc(s.cfg.LockHeartbeat, s.beat)
}

func (s *Session) beat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, id := range s.selection.IDs() {
		s.acquireLockLocked(id)
	}
	s.scheduleHeartbeatLocked()
}

// submitUpdate queues an item patch behind earlier writes for that item.
func (s *Session) submitUpdate(itemID string, patch core.Patch) {
	s.outbox.Submit(itemID, "update", itemID, func(ctx context.Context) error {
		return s.items.Update(ctx, itemID, patch)
	})
}

// submitCursor runs under the cursor throttler. Nothing is published once
// the session has left the board.
func (s *Session) submitCursor(_ string, cursor geometry.Point) {
	s.presenceMu.Lock()
	defer s.presenceMu.Unlock()
	if s.left {
		return
	}
	user := s.Self()
	user.Cursor = cursor
	s.outbox.Submit("presence", "publish presence", "", func(ctx context.Context) error {
		return s.presence.Publish(ctx, user)
	})
}

// dispatch runs f against the active tool with the session locked, then
// applies any tool change the tool requested.
func (s *Session) dispatch(f func(tool tools.Tool, ctx tools.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	f(s.toolbox.Active(), toolContext{s: s})
	if s.pendingTool != "" {
		id := s.pendingTool
		s.pendingTool = ""
		if err := s.setToolLocked(id); err != nil {
			s.log.WithError(err).Warn("Tool change rejected")
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	dirty := s.dirty
	s.dirty = false
	s.mu.Unlock()
	if dirty && s.cfg.OnInvalidate != nil {
		s.cfg.OnInvalidate()
	}
}

func (s *Session) consumeItems(events <-chan core.ItemEvent) {
	defer s.consumers.Done()
	for ev := range events {
		s.mu.Lock()
		if s.cache.reconcile(ev) {
			s.dirty = true
		}
		if ev.Type == core.ChangeDelete && s.selection.Remove(ev.Item.ID) {
			s.lockTable.clearLocal(ev.Item.ID)
		}
		s.mu.Unlock()
		s.notify()
	}
}

func (s *Session) consumeLocks(events <-chan core.LockEvent) {
	defer s.consumers.Done()
	for ev := range events {
		s.mu.Lock()
		s.lockTable.apply(ev)
		s.dirty = true
		s.mu.Unlock()
		s.notify()
	}
}

func (s *Session) consumePresence(events <-chan core.PresenceUser) {
	defer s.consumers.Done()
	for user := range events {
		s.mu.Lock()
		if s.others.apply(user) {
			s.dirty = true
		}
		s.mu.Unlock()
		s.notify()
	}
}
