package websocket

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"github.com/Diamondrubix/ScrapBook/canvas/geometry"
	"github.com/Diamondrubix/ScrapBook/core"
)

const (
	DefaultCursorRate  = 30
	DefaultCursorBurst = 10
	defaultDisplayName = "Guest"
)

type (
	ackInvoker func(err error, payload map[string]any)

	// Store is the board backend the relay forwards and cleans up.
	Store interface {
		core.ItemStore
		core.LockStore
		core.LockReaper
		core.PresenceChannel
	}

	// sink receives the board feed for one socket. Volatile sends may be
	// dropped by the transport.
	sink interface {
		Send(event string, payload any)
		SendVolatile(event string, payload any)
	}

	membership struct {
		boardID string
		userID  string
		name    string
		stop    func()
	}

	Collab struct {
		store   Store
		members *boardMembers
		limiter *keyedLimiter

		mu      sync.Mutex
		sockets map[string]*membership
	}
)

func NewCollab(store Store, cursorRate float64, cursorBurst int) *Collab {
	return &Collab{
		store:   store,
		members: newBoardMembers(),
		limiter: newKeyedLimiter(cursorRate, cursorBurst),
		sockets: make(map[string]*membership),
	}
}

// ActiveBoards maps every board with connected editors to their count.
func (c *Collab) ActiveBoards() map[string]int {
	return c.members.active()
}

// join moves a socket onto a board and starts relaying the board's feed to
// out. A socket is on at most one board.
func (c *Collab) join(ctx context.Context, socketID, boardID, userID, name string, out sink) []string {
	c.leave(ctx, socketID)
	if name == "" {
		name = defaultDisplayName
	}

	items, stopItems := c.store.SubscribeItems(boardID)
	locks, stopLocks := c.store.SubscribeLocks(boardID)
	presence, stopPresence := c.store.SubscribePresence(boardID)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			stopItems()
			stopLocks()
			stopPresence()
		})
	}

	c.mu.Lock()
	c.sockets[socketID] = &membership{boardID: boardID, userID: userID, name: name, stop: stop}
	c.mu.Unlock()

	go relay(done, userID, items, locks, presence, out)

	users := c.members.join(boardID, userID)
	logrus.WithFields(logrus.Fields{
		"socket_id": socketID,
		"board_id":  boardID,
		"user_id":   userID,
		"users":     len(users),
	}).Info("Socket joined board")
	return users
}

// relay forwards one board's feed to a single socket until done closes.
// Presence echoes of the socket's own user are skipped.
func relay(done <-chan struct{}, userID string, items <-chan core.ItemEvent, locks <-chan core.LockEvent, presence <-chan core.PresenceUser, out sink) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-items:
			if !ok {
				return
			}
			out.Send("item-change", ev)
		case ev, ok := <-locks:
			if !ok {
				return
			}
			out.Send("lock-change", ev)
		case user, ok := <-presence:
			if !ok {
				return
			}
			if user.UserID != userID {
				out.SendVolatile("presence", user)
			}
		}
	}
}

// leave detaches a socket from its board. When it was the user's last
// socket there, their locks are released and their cursor retired. It
// returns the board left and who remains on it.
func (c *Collab) leave(ctx context.Context, socketID string) (boardID string, users []string) {
	c.mu.Lock()
	m, ok := c.sockets[socketID]
	delete(c.sockets, socketID)
	c.mu.Unlock()
	if !ok {
		return "", nil
	}
	m.stop()

	remaining, users := c.members.leave(m.boardID, m.userID)
	log := logrus.WithFields(logrus.Fields{
		"socket_id": socketID,
		"board_id":  m.boardID,
		"user_id":   m.userID,
	})
	if remaining == 0 {
		if err := c.store.ReleaseHolder(ctx, m.boardID, m.userID); err != nil {
			log.WithError(err).Warn("Failed to release locks")
		}
		if err := c.store.Leave(ctx, m.boardID, m.userID); err != nil {
			log.WithError(err).Warn("Failed to retire cursor")
		}
	}
	log.Info("Socket left board")
	return m.boardID, users
}

// cursor publishes a socket's pointer position. It reports false when the
// socket is not on boardID or is over its rate.
func (c *Collab) cursor(ctx context.Context, socketID, boardID string, at geometry.Point) bool {
	c.mu.Lock()
	m, ok := c.sockets[socketID]
	c.mu.Unlock()
	if !ok || m.boardID != boardID {
		return false
	}
	if !c.limiter.Allow(socketID) {
		return false
	}

	err := c.store.Publish(ctx, core.PresenceUser{
		UserID:      m.userID,
		BoardID:     m.boardID,
		DisplayName: m.name,
		Color:       core.PresenceColor(m.userID),
		Cursor:      at,
	})
	if err != nil {
		logrus.WithError(err).WithField("socket_id", socketID).Warn("Failed to publish cursor")
		return false
	}
	return true
}

// socketSink adapts a socket.io connection to sink.
type socketSink struct {
	socket *socketio.Socket
}

func (s socketSink) Send(event string, payload any) {
	_ = s.socket.Emit(event, payload)
}

func (s socketSink) SendVolatile(event string, payload any) {
	_ = s.socket.Volatile().Emit(event, payload)
}

func (c *Collab) SetupSocketIO() *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(1000000)
	opts.SetPath("/socket.io")
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		me := string(socket.Id())
		out := socketSink{socket: socket}

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("join-board", func(datas ...any) {
			ack, args := extractAck(datas)
			boardID, userID, name, err := parseJoinArgs(args)
			if err != nil {
				respondWithAck(socket, ack, "join-board-ack", map[string]any{
					"status": "error",
					"error":  err.Error(),
				}, err)
				return
			}

			if previous, remaining := c.leave(context.Background(), me); previous != "" {
				socket.Leave(socketio.Room(previous))
				srv.To(socketio.Room(previous)).Emit("room-user-change", remaining)
			}
			room := socketio.Room(boardID)
			socket.Join(room)
			users := c.join(context.Background(), me, boardID, userID, name, out)
			srv.To(room).Emit("room-user-change", users)

			respondWithAck(socket, ack, "join-board-ack", map[string]any{
				"status":     "ok",
				"user_count": len(users),
			}, nil)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("cursor", func(datas ...any) {
			_, args := extractAck(datas)
			if len(args) < 2 {
				return
			}
			boardID, _ := args[0].(string)
			at, ok := parseCursor(args[1])
			if boardID == "" || !ok {
				return
			}
			c.cursor(context.Background(), me, boardID, at)
		})

		socket.On("disconnecting", func(datas ...any) {
			if boardID, remaining := c.leave(context.Background(), me); boardID != "" && len(remaining) > 0 {
				srv.To(socketio.Room(boardID)).Emit("room-user-change", remaining)
			}
			c.limiter.Forget(me)
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

func parseJoinArgs(args []any) (boardID, userID, name string, err error) {
	if len(args) < 2 {
		return "", "", "", fmt.Errorf("board id and user id are required")
	}
	boardID, _ = args[0].(string)
	userID, _ = args[1].(string)
	if boardID == "" || userID == "" {
		return "", "", "", fmt.Errorf("invalid board id or user id")
	}
	if len(args) > 2 {
		name, _ = args[2].(string)
	}
	return boardID, userID, name, nil
}

// parseCursor accepts {"x":..,"y":..} or a presence record carrying
// {"cursor":{"x":..,"y":..}}.
func parseCursor(raw any) (geometry.Point, bool) {
	value, ok := raw.(map[string]any)
	if !ok {
		return geometry.Point{}, false
	}
	if nested, ok := value["cursor"].(map[string]any); ok {
		value = nested
	}
	x, okX := toFloat(value["x"])
	y, okY := toFloat(value["y"])
	return geometry.Point{X: x, Y: y}, okX && okY
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	candidate := datas[len(datas)-1]
	ack = wrapAck(candidate)
	if ack == nil {
		return nil, datas
	}

	return ack, datas[:len(datas)-1]
}

func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}

	value := reflect.ValueOf(candidate)
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var arg any
			switch {
			case typ.NumIn() == 1 && err != nil:
				arg = err
			case typ.NumIn() == 1, i == 1:
				arg = payload
			case i == 0:
				arg = err
			}
			args[i] = coerceValue(arg, typ.In(i))
		}
		value.Call(args)
	}
}

func coerceValue(value any, targetType reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(targetType)
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(targetType) {
		return rv
	}
	if rv.Type().ConvertibleTo(targetType) {
		return rv.Convert(targetType)
	}
	if targetType.Kind() == reflect.String {
		return reflect.ValueOf(fmt.Sprint(value)).Convert(targetType)
	}

	return reflect.Zero(targetType)
}

func respondWithAck(socket *socketio.Socket, ack ackInvoker, event string, payload map[string]any, ackErr error) {
	if ack != nil {
		ack(ackErr, payload)
	}

	if event != "" && payload != nil {
		_ = socket.Emit(event, payload)
	}
}
