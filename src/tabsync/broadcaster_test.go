package tabsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

func TestPublishAfterCloseReturnsError(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())

	err := bus.Publish(SyncMessage{Type: FullStateRequest})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
}

func TestCloseUnblocksPendingPublish(t *testing.T) {
	// zero buffer and a handler that holds the fanout goroutine: the
	// second Publish parks on the send until Close lets it go
	bus := NewMemoryBus(0)
	release := make(chan struct{})
	cancel := bus.Subscribe(func(SyncMessage) { <-release })
	defer cancel()

	require.NoError(t, bus.Publish(SyncMessage{Type: FullStateRequest}))

	errCh := make(chan error, 1)
	go func() { errCh <- bus.Publish(SyncMessage{Type: FullStateRequest}) }()

	time.Sleep(20 * time.Millisecond)
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, <-errCh, ErrBusClosed)
}

func TestChannelSurvivesBusClosedUnderneath(t *testing.T) {
	// a host may tear the transport down before the channels; the pending
	// delta flush must degrade to an error, not crash
	bus := NewMemoryBus(64)
	store := state.NewStore(nil)
	ch := NewChannel(store, bus, nil, WithDebounce(time.Hour))

	store.CreateConversation("pending delta")
	require.NoError(t, bus.Close())

	ch.Close()

	st := store.Snapshot()
	assert.Len(t, st.Conversations, 1, "store correctness is unaffected")
}
