package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/stores/feed"
)

type sqliteStore struct {
	*feed.PresenceHub

	db      *sql.DB
	lockTTL time.Duration
	now     func() time.Time

	// writeMu is held from the start of a write until its event is
	// published, so subscribers see changes in commit order.
	writeMu sync.Mutex

	itemFeed *feed.Broker[core.ItemEvent]
	lockFeed *feed.Broker[core.LockEvent]
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	type TEXT NOT NULL,
	data TEXT NOT NULL,
	x REAL NOT NULL,
	y REAL NOT NULL,
	width REAL NOT NULL,
	height REAL NOT NULL,
	rotation REAL NOT NULL,
	z_index INTEGER NOT NULL,
	created_by TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE INDEX IF NOT EXISTS items_board_id ON items (board_id);
CREATE TABLE IF NOT EXISTS item_locks (
	item_id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	locked_at DATETIME NOT NULL,
	expires_at DATETIME
);
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	name TEXT,
	created_by TEXT,
	created_at DATETIME,
	items BLOB
);`

// NewStore creates a new SQLite-based store. Locks expire lockTTL after they
// were last acquired; zero means never.
func NewStore(dataSourceName string, lockTTL time.Duration) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open sqlite database")
	}
	// One connection serializes writers and keeps ":memory:" databases whole.
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(schema); err != nil {
		logrus.WithError(err).Fatal("Failed to create tables")
	}

	return &sqliteStore{
		PresenceHub: feed.NewPresenceHub(),
		db:          db,
		lockTTL:     lockTTL,
		now:         time.Now,
		itemFeed:    feed.NewBroker[core.ItemEvent]("items", feed.DefaultBuffer),
		lockFeed:    feed.NewBroker[core.LockEvent]("locks", feed.DefaultBuffer),
	}
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

const itemColumns = `id, board_id, type, data, x, y, width, height, rotation, z_index, created_by, created_at, updated_at`

func scanItem(row rowScanner) (core.Item, error) {
	var (
		item core.Item
		data string
	)
	err := row.Scan(&item.ID, &item.BoardID, &item.Type, &data,
		&item.X, &item.Y, &item.Width, &item.Height, &item.Rotation,
		&item.ZIndex, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return core.Item{}, err
	}
	if err := json.Unmarshal([]byte(data), &item.Data); err != nil {
		return core.Item{}, fmt.Errorf("decode data of item %s: %w", item.ID, err)
	}
	return item, nil
}

// ItemStore implementation
func (s *sqliteStore) List(ctx context.Context, boardID string) ([]core.Item, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+itemColumns+" FROM items WHERE board_id = ? ORDER BY z_index, id", boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]core.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *sqliteStore) Create(ctx context.Context, item *core.Item) error {
	if item.BoardID == "" {
		return fmt.Errorf("BoardID cannot be empty")
	}
	if !item.Type.Valid() {
		return fmt.Errorf("unknown item type %q", item.Type)
	}
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if item.Data == nil {
		item.Data = map[string]any{}
	}
	data, err := json.Marshal(item.Data)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"item_id": item.ID, "board_id": item.BoardID})

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	if item.ZIndex == 0 {
		var maxZ sql.NullInt64
		if err := tx.QueryRowContext(ctx, "SELECT MAX(z_index) FROM items WHERE board_id = ?", item.BoardID).Scan(&maxZ); err != nil {
			return err
		}
		item.ZIndex = int(maxZ.Int64) + 1
	}
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.Pose = core.PosePatch(item.Pose).Apply(*item).Pose

	_, err = tx.ExecContext(ctx, "INSERT INTO items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, item.BoardID, item.Type, string(data),
		item.X, item.Y, item.Width, item.Height, item.Rotation,
		item.ZIndex, item.CreatedBy, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to create item")
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.itemFeed.Publish(item.BoardID, core.ItemEvent{Type: core.ChangeInsert, Item: item.Clone()})
	log.Info("Item created successfully")
	return nil
}

func (s *sqliteStore) Update(ctx context.Context, itemID string, patch core.Patch) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	item, err := scanItem(tx.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			logrus.WithField("item_id", itemID).Warn("Item with specified ID not found")
			return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
		}
		return err
	}
	item = patch.Apply(item)
	item.UpdatedAt = s.now()
	data, err := json.Marshal(item.Data)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "UPDATE items SET data = ?, x = ?, y = ?, width = ?, height = ?, rotation = ?, z_index = ?, updated_at = ? WHERE id = ?",
		string(data), item.X, item.Y, item.Width, item.Height, item.Rotation, item.ZIndex, item.UpdatedAt, itemID)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.itemFeed.Publish(item.BoardID, core.ItemEvent{Type: core.ChangeUpdate, Item: item})
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, itemID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	item, err := scanItem(tx.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("item with id %s %w", itemID, core.ErrNotFound)
		}
		return err
	}
	lock, locked, err := s.lockInTx(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM item_locks WHERE item_id = ?", itemID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", itemID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if locked {
		s.lockFeed.Publish(lock.BoardID, core.LockEvent{Type: core.ChangeDelete, Lock: lock})
	}
	s.itemFeed.Publish(item.BoardID, core.ItemEvent{Type: core.ChangeDelete, Item: item})
	logrus.WithField("item_id", itemID).Info("Item deleted successfully")
	return nil
}

func (s *sqliteStore) SubscribeItems(boardID string) (<-chan core.ItemEvent, func()) {
	return s.itemFeed.Subscribe(boardID)
}
