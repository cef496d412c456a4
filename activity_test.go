package slingshot_test

import (
	"context"
	"testing"

	slingshot "github.com/slingshot-hq/go-slingshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivitySinkFunc(t *testing.T) {
	var got slingshot.SessionEvent
	sink := slingshot.ActivitySinkFunc(func(_ context.Context, e slingshot.SessionEvent) error {
		got = e
		return nil
	})

	err := sink.Record(context.Background(), slingshot.SessionEvent{
		EventType: slingshot.SessionEventLoginSuccess,
		UserID:    "usr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, slingshot.SessionEventLoginSuccess, got.EventType)
}

func TestNilActivitySinkIsSafe(t *testing.T) {
	gateway := &stubGateway{
		LoginFunc: func(_ context.Context, _, _ string) (string, error) {
			return liveToken(t), nil
		},
		CurrentUserFunc: func(_ context.Context, _ string) (*slingshot.User, error) {
			return testUser(true), nil
		},
	}
	machine := slingshot.NewSessionMachine(gateway,
		slingshot.NewMemoryTokenStore(),
		slingshot.NewMemorySnapshotStore(),
		slingshot.WithClock(testClock),
		slingshot.WithActivitySink(nil),
	)

	assert.NotPanics(t, func() {
		machine.Login(context.Background(), "ada@example.com", "s3cret")
	})
}
