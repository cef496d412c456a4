// Package repository provides the durable, Bun-backed snapshot store used
// when the client wants session continuity beyond a single process -- the
// desktop shell's equivalent of the browser's local storage.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	slingshot "github.com/slingshot-hq/go-slingshot"
)

// SessionSnapshotModel is the Bun model for persisted session snapshots.
// One row per storage key; writes overwrite the payload wholesale.
type SessionSnapshotModel struct {
	bun.BaseModel `bun:"table:session_snapshots"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid"`
	Key       string    `bun:"key,notnull,unique"`
	Payload   []byte    `bun:"payload,notnull"`
	UpdatedAt time.Time `bun:"updated_at,default:current_timestamp"`
}

// SnapshotStore implements slingshot.SnapshotStore on top of Bun.
type SnapshotStore struct {
	db  *bun.DB
	key string
}

var _ slingshot.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore creates a store bound to one storage key. An empty key
// falls back to slingshot.DefaultSnapshotKey.
func NewSnapshotStore(db *bun.DB, key string) *SnapshotStore {
	if key == "" {
		key = slingshot.DefaultSnapshotKey
	}
	return &SnapshotStore{db: db, key: key}
}

// OpenDefaultDB opens (and migrates) the sqlite database the desktop shell
// keeps its snapshot in. Use ":memory:" for tests.
func OpenDefaultDB(path string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*SessionSnapshotModel)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Load implements slingshot.SnapshotStore.
func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	var model SessionSnapshotModel
	err := s.db.NewSelect().
		Model(&model).
		Where("key = ?", s.key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return model.Payload, true, nil
}

// Save implements slingshot.SnapshotStore. The write is an upsert: one row
// per key, replaced wholesale.
func (s *SnapshotStore) Save(ctx context.Context, snapshot []byte) error {
	model := &SessionSnapshotModel{
		ID:        uuid.New(),
		Key:       s.key,
		Payload:   snapshot,
		UpdatedAt: time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Remove implements slingshot.SnapshotStore.
func (s *SnapshotStore) Remove(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*SessionSnapshotModel)(nil)).
		Where("key = ?", s.key).
		Exec(ctx)
	return err
}
