package tabsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

const testDebounce = 10 * time.Millisecond

func newTab(t *testing.T, bus Broadcaster, opts ...Option) (*state.Store, *Channel) {
	t.Helper()
	store := state.NewStore(nil)
	opts = append([]Option{WithDebounce(testDebounce)}, opts...)
	ch := NewChannel(store, bus, nil, opts...)
	t.Cleanup(ch.Close)
	return store, ch
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestRenamePropagatesAcrossTabs(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	storeA, _ := newTab(t, bus)
	storeB, _ := newTab(t, bus)

	folder := storeA.CreateFolder("default", "ubiquitin", "")
	eventually(t, func() bool {
		return len(storeB.Snapshot().Folders) == 1
	}, "folder should reach tab B")

	require.NoError(t, storeA.RenameFolder(folder.ID, "ubiquitin v2"))
	eventually(t, func() bool {
		folders := storeB.Snapshot().Folders
		return len(folders) == 1 && folders[0].Name == "ubiquitin v2"
	}, "tab B should adopt the newer rename")
}

func TestStaleBroadcastCannotResurrectDeleted(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	store, _ := newTab(t, bus)

	conv := store.CreateConversation("doomed")
	require.NoError(t, store.AppendMessage(conv.ID, state.Message{Role: state.RoleUser, Content: "hi"}))
	stale := store.Snapshot().Conversations
	store.DeleteConversation(conv.ID)

	// an out-of-order broadcast from another tab still carrying the
	// conversation arrives after the local deletion
	require.NoError(t, bus.Publish(SyncMessage{
		Type:          ConversationsUpdate,
		SenderID:      "some-other-tab",
		Timestamp:     time.Now(),
		Conversations: stale,
	}))

	time.Sleep(20 * testDebounce)
	assert.Empty(t, store.Snapshot().Conversations, "deleted conversation must stay deleted")
}

func TestRemoteJobIgnoredWhileStreamingLocally(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	store, _ := newTab(t, bus)
	conv := store.CreateConversation("local")
	local := store.StartJob(conv.ID, "", "SEQ")

	require.NoError(t, bus.Publish(SyncMessage{
		Type:      JobUpdate,
		SenderID:  "some-other-tab",
		Timestamp: time.Now(),
		Job:       &state.Job{ID: "remote-job", Status: state.JobRunning},
	}))

	time.Sleep(20 * testDebounce)
	st := store.Snapshot()
	require.NotNil(t, st.Job)
	assert.Equal(t, local.ID, st.Job.ID, "local live stream must not be clobbered")
}

func TestRemoteJobAdoptedWhenIdle(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	store, _ := newTab(t, bus)

	require.NoError(t, bus.Publish(SyncMessage{
		Type:      JobUpdate,
		SenderID:  "some-other-tab",
		Timestamp: time.Now(),
		Job:       &state.Job{ID: "remote-job", Status: state.JobRunning},
	}))

	eventually(t, func() bool {
		st := store.Snapshot()
		return st.Job != nil && st.Job.ID == "remote-job" && st.Streaming
	}, "idle tab should adopt the remote job")
}

func TestFocusedTabKeepsSelection(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	// focused tab (the default probe)
	storeFocused, _ := newTab(t, bus)
	convF := storeFocused.CreateConversation("mine")

	// background tab
	storeBlurred, _ := newTab(t, bus, WithFocusProbe(func() bool { return false }))

	eventually(t, func() bool {
		return len(storeBlurred.Snapshot().Conversations) == 1
	}, "conversation should sync over")

	require.NoError(t, bus.Publish(SyncMessage{
		Type:      ActiveConversationChange,
		SenderID:  "some-other-tab",
		Timestamp: time.Now(),
		ActiveID:  convF.ID,
	}))

	eventually(t, func() bool {
		return storeBlurred.Snapshot().ActiveConversationID == convF.ID
	}, "background tab follows the remote selection")

	// a remote clear must not reach the focused tab
	require.NoError(t, bus.Publish(SyncMessage{
		Type:      ActiveConversationChange,
		SenderID:  "some-other-tab",
		Timestamp: time.Now(),
		ActiveID:  "",
	}))

	eventually(t, func() bool {
		return storeBlurred.Snapshot().ActiveConversationID == ""
	}, "background tab follows the remote clear")
	assert.Equal(t, convF.ID, storeFocused.Snapshot().ActiveConversationID,
		"focused tab keeps its own selection")
}

func TestNewTabBootstrapsFromExisting(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	storeA, _ := newTab(t, bus)
	conv := storeA.CreateConversation("existing")
	require.NoError(t, storeA.AppendMessage(conv.ID, state.Message{Role: state.RoleUser, Content: "hi"}))
	storeA.CreateFolder("default", "run", conv.ID)
	time.Sleep(5 * testDebounce)

	storeB, _ := newTab(t, bus)
	eventually(t, func() bool {
		st := storeB.Snapshot()
		return len(st.Conversations) == 1 && len(st.Folders) == 1
	}, "cold tab should adopt the full state response")
}

func TestSettledTabIgnoresSmallerFullState(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	store, _ := newTab(t, bus)
	store.CreateConversation("one")
	store.CreateConversation("two")

	require.NoError(t, bus.Publish(SyncMessage{
		Type:      FullStateResponse,
		SenderID:  "some-other-tab",
		Timestamp: time.Now(),
		State: &FullState{
			Conversations: []state.Conversation{{ID: "theirs", Title: "theirs"}},
		},
	}))

	time.Sleep(20 * testDebounce)
	assert.Len(t, store.Snapshot().Conversations, 2,
		"a tab with more state ignores a smaller bootstrap response")
}

func TestDebounceCoalescesBursts(t *testing.T) {
	bus := NewMemoryBus(64)
	t.Cleanup(func() { bus.Close() })

	var folderUpdates atomic.Int32
	cancel := bus.Subscribe(func(msg SyncMessage) {
		if msg.Type == FoldersUpdate {
			folderUpdates.Add(1)
		}
	})
	t.Cleanup(cancel)

	store, _ := newTab(t, bus)
	folder := store.CreateFolder("default", "f", "")
	for i := 0; i < 10; i++ {
		require.NoError(t, store.AddOutput(folder.ID, state.Structure{ID: string(rune('a' + i))}))
	}

	eventually(t, func() bool {
		return folderUpdates.Load() >= 1
	}, "burst should produce a broadcast")
	time.Sleep(10 * testDebounce)
	assert.LessOrEqual(t, folderUpdates.Load(), int32(2),
		"rapid mutations should coalesce into at most a couple of messages")
}

func TestNilBusDegradesToSingleTab(t *testing.T) {
	store := state.NewStore(nil)
	ch := NewChannel(store, nil, nil)
	defer ch.Close()

	conv := store.CreateConversation("solo")
	require.NoError(t, store.AppendMessage(conv.ID, state.Message{Role: state.RoleUser, Content: "hi"}))

	st := store.Snapshot()
	assert.Len(t, st.Conversations, 1, "store correctness is unaffected without a transport")
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	t.Cleanup(func() { bus.Close() })

	var calls atomic.Int32
	cancel := bus.Subscribe(func(SyncMessage) { calls.Add(1) })
	require.NoError(t, bus.Publish(SyncMessage{Type: FullStateRequest}))
	eventually(t, func() bool { return calls.Load() == 1 }, "handler should run")

	cancel()
	require.NoError(t, bus.Publish(SyncMessage{Type: FullStateRequest}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
