package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherSyncEmit(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	err := pub.Emit(context.Background(), Event{
		Action:    ActionConsentGranted,
		SubjectID: "athlete-1",
		Metadata:  map[string]string{"type": "data_processing"},
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "athlete-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionConsentGranted, events[0].Action)
	assert.NotZero(t, events[0].ID, "emit assigns an ID")
	assert.False(t, events[0].Timestamp.IsZero(), "emit assigns a timestamp")
}

func TestPublisherAsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(16))

	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Emit(context.Background(), Event{
			Action:    ActionComplianceCheckPass,
			SubjectID: "athlete-2",
		}))
	}
	pub.Close()

	events, err := store.ListBySubject(context.Background(), "athlete-2")
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisherPreservesExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)

	stamp := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), Event{
		Action:    ActionMinorRegistered,
		SubjectID: "athlete-3",
		Timestamp: stamp,
	}))

	events, err := store.ListBySubject(context.Background(), "athlete-3")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
}
