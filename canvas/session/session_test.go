package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/canvas/tools"
	"github.com/Diamondrubix/ScrapBook/canvas/view"
	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/stores/memory"
)

const board = "board-1"

type recordedUpdate struct {
	itemID string
	patch  core.Patch
}

// recordingItems wraps an ItemStore and records every update.
type recordingItems struct {
	core.ItemStore

	mu      sync.Mutex
	updates []recordedUpdate
	fail    error
}

func (r *recordingItems) Update(ctx context.Context, itemID string, patch core.Patch) error {
	r.mu.Lock()
	r.updates = append(r.updates, recordedUpdate{itemID: itemID, patch: patch})
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.ItemStore.Update(ctx, itemID, patch)
}

func (r *recordingItems) Updates() []recordedUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedUpdate(nil), r.updates...)
}

type sharedBoard interface {
	core.ItemStore
	core.LockStore
	core.PresenceChannel
}

func seed(t *testing.T, store core.ItemStore, items ...core.Item) {
	t.Helper()
	for i := range items {
		items[i].BoardID = board
		if items[i].Type == "" {
			items[i].Type = core.ItemTypeShape
		}
		require.NoError(t, store.Create(context.Background(), &items[i]))
	}
}

func open(t *testing.T, store sharedBoard, user string, clock Clock, onError func(error)) *Session {
	t.Helper()
	s := New(Config{
		BoardID: board,
		UserID:  user,
		Clock:   clock,
		OnError: onError,
	}, store, store, store)
	require.NoError(t, s.Load(context.Background()))
	s.SetView(view.View{Scale: 1})
	t.Cleanup(s.Close)
	return s
}

func openWithItems(t *testing.T, items core.ItemStore, store sharedBoard, user string, clock Clock) *Session {
	t.Helper()
	s := New(Config{BoardID: board, UserID: user, Clock: clock}, items, store, store)
	require.NoError(t, s.Load(context.Background()))
	s.SetView(view.View{Scale: 1})
	t.Cleanup(s.Close)
	return s
}

func at(x, y float64) tools.PointerEvent {
	return tools.PointerEvent{Screen: geometry.Point{X: x, Y: y}}
}

func TestLoadReadsItemsInStackingOrder(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		core.Item{ID: "top", ZIndex: 5, Pose: core.Pose{Width: 10, Height: 10}},
		core.Item{ID: "bottom", ZIndex: 1, Pose: core.Pose{Width: 10, Height: 10}},
	)
	s := open(t, store, "alice", newFakeClock(), nil)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "bottom", items[0].ID)
	assert.Equal(t, "top", items[1].ID)
}

func TestLockAdmissionAcrossEditors(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{X: 0, Y: 0, Width: 100, Height: 100}})
	alice := open(t, store, "alice", RealClock(), nil)
	bob := open(t, store, "bob", RealClock(), nil)

	alice.Select("x")
	require.Eventually(t, func() bool { return bob.IsLockedByOther("x") }, time.Second, 5*time.Millisecond)

	bob.PointerDown(at(50, 50))
	assert.Equal(t, tools.StateIdle, bob.GestureState())
	bob.PointerMove(at(80, 90))
	bob.PointerUp(at(80, 90))

	item, ok := bob.Item("x")
	require.True(t, ok)
	assert.Equal(t, core.Pose{Width: 100, Height: 100}, item.Pose)
	assert.Empty(t, bob.SelectedIDs())

	// Once alice lets go, bob's press starts a move.
	alice.Select()
	require.Eventually(t, func() bool { return !bob.IsLockedByOther("x") }, time.Second, 5*time.Millisecond)

	bob.PointerDown(at(50, 50))
	assert.Equal(t, tools.StateMoving, bob.GestureState())
	assert.Equal(t, []string{"x"}, bob.SelectedIDs())
	require.Eventually(t, func() bool { return alice.IsLockedByOther("x") }, time.Second, 5*time.Millisecond)
}

func TestBoxSelectSkipsItemsLockedByOthers(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		core.Item{ID: "free", Pose: core.Pose{X: 0, Y: 0, Width: 10, Height: 10}},
		core.Item{ID: "held", Pose: core.Pose{X: 20, Y: 0, Width: 10, Height: 10}},
		core.Item{ID: "far", Pose: core.Pose{X: 500, Y: 500, Width: 10, Height: 10}},
	)
	alice := open(t, store, "alice", RealClock(), nil)
	bob := open(t, store, "bob", RealClock(), nil)

	alice.Select("held")
	require.Eventually(t, func() bool { return bob.IsLockedByOther("held") }, time.Second, 5*time.Millisecond)

	bob.PointerDown(at(-5, -5))
	bob.PointerMove(at(40, 40))
	bob.PointerUp(at(40, 40))
	assert.Equal(t, []string{"free"}, bob.SelectedIDs())
}

func TestDragThrottlesAndCommitsFinalPose(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{X: 0, Y: 0, Width: 20, Height: 20}})
	items := &recordingItems{ItemStore: store}
	clock := newFakeClock()
	s := openWithItems(t, items, store, "alice", clock)

	s.PointerDown(at(10, 10))
	require.Equal(t, tools.StateMoving, s.GestureState())
	for i := 1; i <= 10; i++ {
		s.PointerMove(at(10+float64(i), 10+float64(2*i)))
		clock.Advance(time.Millisecond)
	}
	s.PointerUp(at(20, 30))
	s.Flush()

	updates := items.Updates()
	require.Len(t, updates, 2, "one throttled write for the interval plus the commit")
	commit := updates[1].patch
	require.True(t, commit.TouchesPose())
	assert.Equal(t, 10.0, *commit.X)
	assert.Equal(t, 20.0, *commit.Y)
	assert.Equal(t, 20.0, *commit.Width)
	assert.Equal(t, 0.0, *commit.Rotation)

	// The superseded pending patch never fires.
	clock.Advance(time.Second)
	s.Flush()
	assert.Len(t, items.Updates(), 2)

	require.Eventually(t, func() bool {
		stored, _ := store.List(context.Background(), board)
		return len(stored) == 1 && stored[0].X == 10 && stored[0].Y == 20
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.DraggingIDs())
}

func TestDragAcrossIntervalsSendsTrailingWrites(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{Width: 20, Height: 20}})
	items := &recordingItems{ItemStore: store}
	clock := newFakeClock()
	s := openWithItems(t, items, store, "alice", clock)

	s.PointerDown(at(5, 5))
	s.PointerMove(at(6, 5)) // leads
	s.PointerMove(at(7, 5)) // pending
	clock.Advance(40 * time.Millisecond)
	s.PointerMove(at(8, 5)) // pending again, interval not over
	clock.Advance(40 * time.Millisecond)
	s.PointerUp(at(8, 5))
	s.Flush()

	xs := make([]float64, 0)
	for _, u := range items.Updates() {
		xs = append(xs, *u.patch.X)
	}
	assert.Equal(t, []float64{1, 2, 3, 3}, xs)
}

func TestRemoteUpdateKeepsLocalPoseWhileDragging(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Type: core.ItemTypeText, Pose: core.Pose{Width: 20, Height: 20}})
	clock := newFakeClock()
	s := open(t, store, "alice", clock, nil)

	s.PointerDown(at(5, 5))
	s.PointerMove(at(105, 5))

	// Someone else's write lands mid-drag.
	require.NoError(t, store.Update(context.Background(), "x", core.Patch{
		X:    core.Float(-500),
		Data: map[string]any{"text": "edited elsewhere"},
	}))
	require.Eventually(t, func() bool {
		item, _ := s.Item("x")
		return item.Text() == "edited elsewhere"
	}, time.Second, 5*time.Millisecond)

	item, _ := s.Item("x")
	assert.Equal(t, 100.0, item.X)
	s.PointerUp(at(105, 5))
}

func TestShapeToolCreatesItemOnTop(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "base", ZIndex: 3, Pose: core.Pose{Width: 10, Height: 10}})
	s := open(t, store, "alice", newFakeClock(), nil)
	s.SetDrawColor("#ff0000")

	require.NoError(t, s.SetTool(tools.ToolCircle))
	s.PointerDown(at(100, 100))
	s.PointerMove(at(150, 130))
	overlays := s.Overlays()
	require.Len(t, overlays, 1)
	assert.Equal(t, tools.OverlayShapeDraft, overlays[0].Kind)
	s.PointerUp(at(150, 130))

	items := s.Items()
	require.Len(t, items, 2)
	created := items[1]
	assert.Equal(t, core.ItemTypeShape, created.Type)
	assert.Equal(t, 4, created.ZIndex)
	assert.Equal(t, core.Pose{X: 100, Y: 100, Width: 50, Height: 30}, created.Pose)
	assert.Equal(t, core.ShapeData{Kind: core.ShapeCircle, Color: "#ff0000"}, created.Shape())
	assert.Equal(t, "alice", created.CreatedBy)

	s.Flush()
	stored, err := store.List(context.Background(), board)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPenToolCreatesStroke(t *testing.T) {
	store := memory.NewStore()
	s := open(t, store, "alice", newFakeClock(), nil)

	require.NoError(t, s.SetTool(tools.ToolPen))
	s.PointerDown(at(10, 10))
	s.PointerMove(at(20, 10))
	s.PointerMove(at(20, 30))
	s.PointerUp(at(20, 30))

	items := s.Items()
	require.Len(t, items, 1)
	stroke := items[0].Stroke()
	assert.Equal(t, []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 20}}, stroke.Points)
	assert.Equal(t, 10.0, stroke.BaseWidth)
	assert.Equal(t, 20.0, stroke.BaseHeight)
	assert.Equal(t, DefaultDrawColor, stroke.Color)
}

func TestSwitchingToolDiscardsDraft(t *testing.T) {
	store := memory.NewStore()
	s := open(t, store, "alice", newFakeClock(), nil)

	require.NoError(t, s.SetTool(tools.ToolRect))
	s.PointerDown(at(0, 0))
	s.PointerMove(at(50, 50))
	require.NoError(t, s.SetTool(tools.ToolSelect))
	s.PointerUp(at(50, 50))

	assert.Empty(t, s.Items())
	assert.Error(t, s.SetTool("lasso"))
}

func TestWheelZoomKeepsPointerAnchored(t *testing.T) {
	s := open(t, memory.NewStore(), "alice", newFakeClock(), nil)
	s.SetView(view.View{X: 30, Y: -10, Scale: 1.5})
	screen := geometry.Point{X: 200, Y: 120}
	before := s.View().ToWorld(screen)

	s.Wheel(screen, -1)
	after := s.View().ToWorld(screen)

	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
	assert.InDelta(t, 1.65, s.View().Scale, 1e-9)
}

func TestAddItemsCascade(t *testing.T) {
	s := open(t, memory.NewStore(), "alice", newFakeClock(), nil)

	note, err := s.AddText("")
	require.NoError(t, err)
	assert.Equal(t, DefaultNoteText, note.Text())
	assert.Equal(t, core.Pose{X: 50, Y: 50, Width: 220, Height: 120}, note.Pose)

	link, err := s.AddLink("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, core.Pose{X: 70, Y: 70, Width: 260, Height: 120}, link.Pose)
	assert.Equal(t, "https://example.com", link.URL())

	video, err := s.AddEmbeddedVideo("https://video.example/embed/1")
	require.NoError(t, err)
	assert.Equal(t, core.ItemTypeVideoEmbed, video.Type)
	assert.Equal(t, 360.0, video.Width)
	assert.Greater(t, video.ZIndex, link.ZIndex)

	_, err = s.AddImage("")
	assert.Error(t, err)
}

func TestDeleteSelection(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		core.Item{ID: "a", Pose: core.Pose{Width: 10, Height: 10}},
		core.Item{ID: "b", Pose: core.Pose{X: 20, Width: 10, Height: 10}},
		core.Item{ID: "c", Pose: core.Pose{X: 40, Width: 10, Height: 10}},
	)
	s := open(t, store, "alice", newFakeClock(), nil)

	s.Select("a", "b")
	require.NoError(t, s.DeleteSelection())
	s.Flush()

	assert.Empty(t, s.SelectedIDs())
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ID)

	stored, _ := store.List(context.Background(), board)
	assert.Len(t, stored, 1)
	locks, _ := store.ListLocks(context.Background(), board)
	assert.Empty(t, locks)
}

func TestDeleteSelectionContinuesPastLockedItem(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		core.Item{ID: "a", Pose: core.Pose{Width: 10, Height: 10}},
		core.Item{ID: "b", Pose: core.Pose{X: 20, Width: 10, Height: 10}},
		core.Item{ID: "c", Pose: core.Pose{X: 40, Width: 10, Height: 10}},
	)
	s := open(t, store, "alice", newFakeClock(), nil)

	s.Select("a", "b", "c")
	s.Flush()
	require.NoError(t, store.Acquire(context.Background(), "b", "bob"))
	require.Eventually(t, func() bool { return s.IsLockedByOther("b") }, time.Second, 5*time.Millisecond)

	err := s.DeleteSelection()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	s.Flush()

	assert.Equal(t, []string{"b"}, s.SelectedIDs())
	stored, _ := store.List(context.Background(), board)
	require.Len(t, stored, 1)
	assert.Equal(t, "b", stored[0].ID)
}

func TestContentEditRespectsLocks(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "note", Type: core.ItemTypeText, Pose: core.Pose{Width: 10, Height: 10}})
	alice := open(t, store, "alice", RealClock(), nil)
	bob := open(t, store, "bob", RealClock(), nil)

	alice.Select("note")
	require.Eventually(t, func() bool { return bob.IsLockedByOther("note") }, time.Second, 5*time.Millisecond)

	assert.Error(t, bob.UpdateContent("note", map[string]any{"text": "mine"}))
	assert.Error(t, bob.DeleteItem("note"))

	require.NoError(t, alice.UpdateContent("note", map[string]any{"text": "hello"}))
	require.Eventually(t, func() bool {
		item, _ := bob.Item("note")
		return item.Text() == "hello"
	}, time.Second, 5*time.Millisecond)
}

func TestTransportErrorsKeepLocalState(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{Width: 20, Height: 20}})
	boom := errors.New("store offline")
	items := &recordingItems{ItemStore: store, fail: boom}

	var (
		mu   sync.Mutex
		errs []error
	)
	s := New(Config{
		BoardID: board,
		UserID:  "alice",
		Clock:   newFakeClock(),
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	}, items, store, store)
	require.NoError(t, s.Load(context.Background()))
	s.SetView(view.View{Scale: 1})
	defer s.Close()

	s.PointerDown(at(5, 5))
	s.PointerMove(at(35, 5))
	s.PointerUp(at(35, 5))
	s.Flush()

	item, _ := s.Item("x")
	assert.Equal(t, 30.0, item.X)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, errs)
	var te *TransportError
	require.ErrorAs(t, errs[0], &te)
	assert.Equal(t, "x", te.ItemID)
	assert.ErrorIs(t, te, boom)
}

func TestPresenceFollowsOtherEditors(t *testing.T) {
	store := memory.NewStore()
	alice := open(t, store, "alice", RealClock(), nil)
	bob := open(t, store, "bob", RealClock(), nil)

	alice.PointerMove(at(42, 24))
	require.Eventually(t, func() bool {
		others := bob.Presence()
		return len(others) == 1 && others[0].Cursor == geometry.Point{X: 42, Y: 24}
	}, time.Second, 5*time.Millisecond)

	others := bob.Presence()
	assert.Equal(t, "alice", others[0].UserID)
	assert.Equal(t, core.PresenceColor("alice"), others[0].Color)
	assert.Equal(t, DefaultDisplayName, others[0].DisplayName)
	assert.Empty(t, alice.Presence())

	alice.Close()
	require.Eventually(t, func() bool { return len(bob.Presence()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestPointerMoveAfterCloseDoesNotPublish(t *testing.T) {
	store := memory.NewStore()
	clock := newFakeClock()
	s := open(t, store, "alice", clock, nil)

	s.PointerMove(at(10, 10))
	s.PointerMove(at(20, 20))
	s.Close()
	s.PointerMove(at(500, 500))
	clock.Advance(time.Second)
	s.Flush()

	events, stop := store.SubscribePresence(board)
	defer stop()
	select {
	case user := <-events:
		t.Fatalf("unexpected presence for %s at %v after close", user.UserID, user.Cursor)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseReleasesLocks(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{Width: 10, Height: 10}})
	s := open(t, store, "alice", newFakeClock(), nil)

	s.Select("x")
	s.Flush()
	locks, _ := store.ListLocks(context.Background(), board)
	require.Len(t, locks, 1)

	s.Close()
	locks, _ = store.ListLocks(context.Background(), board)
	assert.Empty(t, locks)
}

func TestLockHeartbeatReacquires(t *testing.T) {
	store := memory.NewStoreWithTTL(time.Minute)
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{Width: 10, Height: 10}})
	clock := newFakeClock()
	s := New(Config{BoardID: board, UserID: "alice", Clock: clock, LockHeartbeat: 20 * time.Second}, store, store, store)
	require.NoError(t, s.Load(context.Background()))
	defer s.Close()

	events, stop := store.SubscribeLocks(board)
	defer stop()

	s.Select("x")
	s.Flush()
	<-events

	clock.Advance(20 * time.Second)
	s.Flush()
	select {
	case ev := <-events:
		assert.Equal(t, core.ChangeUpdate, ev.Type)
		assert.Equal(t, "alice", ev.Lock.HolderID)
	case <-time.After(time.Second):
		t.Fatal("expected the heartbeat to re-acquire the lock")
	}
}

func TestReadOnlySessionCannotWrite(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "x", Pose: core.Pose{Width: 50, Height: 50}})
	s := New(Config{BoardID: board, UserID: "viewer", Clock: newFakeClock(), ReadOnly: true}, store, store, store)
	require.NoError(t, s.Load(context.Background()))
	s.SetView(view.View{Scale: 1})
	defer s.Close()

	s.PointerDown(at(10, 10))
	s.PointerMove(at(30, 30))
	s.PointerUp(at(30, 30))
	item, _ := s.Item("x")
	assert.Equal(t, 0.0, item.X)

	assert.Error(t, s.SetTool(tools.ToolPen))
	_, err := s.AddText("hi")
	assert.Error(t, err)

	pan := at(0, 0)
	pan.Button = tools.ButtonSecondary
	s.PointerDown(pan)
	s.PointerMove(at(10, 20))
	s.PointerUp(at(10, 20))
	assert.Equal(t, view.View{X: 10, Y: 20, Scale: 1}, s.View())
}

func TestGroupResizeThroughHandle(t *testing.T) {
	store := memory.NewStore()
	seed(t, store,
		core.Item{ID: "a", Pose: core.Pose{X: 0, Y: 0, Width: 50, Height: 50}},
		core.Item{ID: "b", Pose: core.Pose{X: 50, Y: 50, Width: 50, Height: 50}},
	)
	s := open(t, store, "alice", newFakeClock(), nil)
	s.Select("a", "b")

	s.PointerDown(at(100, 100))
	require.Equal(t, tools.StateResizing, s.GestureState())
	s.PointerMove(at(200, 100))
	s.PointerUp(at(200, 100))

	a, _ := s.Item("a")
	b, _ := s.Item("b")
	assert.Equal(t, core.Pose{X: 0, Y: 0, Width: 100, Height: 50}, a.Pose)
	assert.Equal(t, core.Pose{X: 100, Y: 50, Width: 100, Height: 50}, b.Pose)
}

func TestRotateWithAlt(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, core.Item{ID: "r", Pose: core.Pose{X: 0, Y: 0, Width: 100, Height: 100}})
	s := open(t, store, "alice", newFakeClock(), nil)

	down := at(90, 50)
	down.Alt = true
	s.PointerDown(down)
	require.Equal(t, tools.StateRotating, s.GestureState())
	s.PointerMove(at(50, 90))
	s.PointerUp(at(50, 90))

	r, _ := s.Item("r")
	assert.InDelta(t, 90, r.Rotation, 1e-9)
}
