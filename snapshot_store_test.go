package slingshot_test

import (
	"context"
	"testing"

	slingshot "github.com/slingshot-hq/go-slingshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySnapshotStore(t *testing.T) {
	store := slingshot.NewMemorySnapshotStore()
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, []byte(`{"state":"unauthenticated"}`)))
	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"state":"unauthenticated"}`, string(data))

	require.NoError(t, store.Remove(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemorySnapshotStore_CopiesOnWrite(t *testing.T) {
	store := slingshot.NewMemorySnapshotStore()
	ctx := context.Background()

	payload := []byte(`{"state":"unauthenticated"}`)
	require.NoError(t, store.Save(ctx, payload))
	payload[0] = 'x'

	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte('{'), data[0])
}

func TestFileSnapshotStore(t *testing.T) {
	store := slingshot.NewFileSnapshotStore(t.TempDir())
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "missing file reads as absent, not as error")

	require.NoError(t, store.Save(ctx, []byte(`{"state":"unauthenticated"}`)))
	data, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"state":"unauthenticated"}`, string(data))

	require.NoError(t, store.Save(ctx, []byte(`{"state":"errored"}`)))
	data, _, err = store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"errored"}`, string(data), "saves overwrite wholesale")

	require.NoError(t, store.Remove(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Remove(ctx), "removing an absent snapshot is not an error")
}

func TestFileSnapshotStore_RoundTripsMachineState(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	gateway := &stubGateway{
		LoginFunc: func(_ context.Context, _, _ string) (string, error) {
			return liveToken(t), nil
		},
		CurrentUserFunc: func(_ context.Context, token string) (*slingshot.User, error) {
			return testUser(true), nil
		},
	}
	tokens := slingshot.NewMemoryTokenStore()

	first := slingshot.NewSessionMachine(gateway, tokens, slingshot.NewFileSnapshotStore(dir),
		slingshot.WithClock(testClock))
	first.Login(ctx, "ada@example.com", "s3cret")

	// A second machine over the same directory restores the session.
	second := slingshot.NewSessionMachine(gateway, tokens, slingshot.NewFileSnapshotStore(dir),
		slingshot.WithClock(testClock))
	session := second.Restore(ctx)

	assert.True(t, session.IsAuthenticated)
	require.NotNil(t, session.User)
	assert.Equal(t, "usr-1", session.User.ID)
}
