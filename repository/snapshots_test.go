package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	slingshot "github.com/slingshot-hq/go-slingshot"
	"github.com/slingshot-hq/go-slingshot/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := repository.OpenDefaultDB(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := repository.NewSnapshotStore(db, "")
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, []byte(`{"state":"unauthenticated","isAuthenticated":false,"loading":false}`)))
	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	session, err := slingshot.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, slingshot.StateUnauthenticated, session.State)
}

func TestSnapshotStore_SaveOverwrites(t *testing.T) {
	db := openTestDB(t)
	store := repository.NewSnapshotStore(db, "overwrite-key")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte(`first`)))
	require.NoError(t, store.Save(ctx, []byte(`second`)))

	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`second`), data)
}

func TestSnapshotStore_KeysAreIsolated(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	one := repository.NewSnapshotStore(db, "authState:client-a")
	two := repository.NewSnapshotStore(db, "authState:client-b")

	require.NoError(t, one.Save(ctx, []byte(`a`)))
	require.NoError(t, two.Save(ctx, []byte(`b`)))
	require.NoError(t, one.Remove(ctx))

	_, ok, err := one.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	data, ok, err := two.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`b`), data)
}

func TestSnapshotStore_RemoveAbsentKey(t *testing.T) {
	db := openTestDB(t)
	store := repository.NewSnapshotStore(db, "never-written")

	assert.NoError(t, store.Remove(context.Background()))
}
