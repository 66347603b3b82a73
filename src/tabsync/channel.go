package tabsync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

const defaultDebounce = 150 * time.Millisecond

// Option configures a Channel.
type Option func(*Channel)

// WithDebounce overrides the coalescing window for outgoing deltas.
func WithDebounce(d time.Duration) Option {
	return func(c *Channel) { c.debounce = d }
}

// WithFocusProbe sets the probe deciding whether this tab currently has
// input focus. Remote active-id changes are only applied while unfocused,
// so a background tab cannot steal the foreground tab's selection. The
// default probe reports focused.
func WithFocusProbe(fn func() bool) Option {
	return func(c *Channel) { c.focused = fn }
}

// pendingDelta accumulates which slices of state changed since the last
// broadcast; a burst of mutations coalesces into one flush.
type pendingDelta struct {
	folders            bool
	conversations      bool
	job                bool
	activeFolder       bool
	activeConversation bool
}

func (p pendingDelta) any() bool {
	return p.folders || p.conversations || p.job || p.activeFolder || p.activeConversation
}

// Channel keeps one tab's store eventually consistent with its siblings.
// It observes store transitions, diffs them against the previous snapshot
// and broadcasts debounced typed deltas; incoming deltas are merged through
// the store's mutation API with recency-wins semantics. With a nil
// Broadcaster the whole subsystem degrades to a no-op and the store runs
// single-tab, unaffected.
type Channel struct {
	store    *state.Store
	bus      Broadcaster
	tabID    string
	logger   *slog.Logger
	debounce time.Duration
	focused  func() bool

	mu        sync.Mutex
	pending   pendingDelta
	timer     *time.Timer
	applying  bool
	closed    bool
	cancelBus func()
}

// NewChannel wires a store to the broadcast bus and asks existing tabs for
// their state. A nil bus yields a disabled channel.
func NewChannel(store *state.Store, bus Broadcaster, logger *slog.Logger, opts ...Option) *Channel {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Channel{
		store:    store,
		bus:      bus,
		tabID:    uuid.New().String(),
		logger:   logger,
		debounce: defaultDebounce,
		focused:  func() bool { return true },
	}
	for _, opt := range opts {
		opt(c)
	}
	if bus == nil {
		c.logger.Debug("broadcast transport unavailable, running single-tab")
		return c
	}
	store.Subscribe(c.observe)
	c.cancelBus = bus.Subscribe(c.onRemote)
	c.publish(SyncMessage{Type: FullStateRequest})
	return c
}

// TabID returns this tab's random sender identifier.
func (c *Channel) TabID() string { return c.tabID }

// Close flushes any pending delta and detaches from the bus. The store
// keeps working single-tab afterwards.
func (c *Channel) Close() {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	c.flush()
	if c.cancelBus != nil {
		c.cancelBus()
	}
}

// observe diffs each store transition and schedules a debounced broadcast.
func (c *Channel) observe(prev, next state.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applying || c.closed {
		return
	}
	if !foldersEqual(prev.Folders, next.Folders) {
		c.pending.folders = true
	}
	if !conversationsEqual(prev.Conversations, next.Conversations) {
		c.pending.conversations = true
	}
	if jobChanged(prev, next) {
		c.pending.job = true
	}
	if prev.ActiveFolderID != next.ActiveFolderID {
		c.pending.activeFolder = true
	}
	if prev.ActiveConversationID != next.ActiveConversationID {
		c.pending.activeConversation = true
	}
	if !c.pending.any() {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, c.flush)
}

// flush publishes one message per changed slice of state.
func (c *Channel) flush() {
	c.mu.Lock()
	delta := c.pending
	c.pending = pendingDelta{}
	c.mu.Unlock()
	if !delta.any() {
		return
	}

	snap := c.store.Snapshot()
	if delta.folders {
		c.publish(SyncMessage{Type: FoldersUpdate, Folders: snap.Folders})
	}
	if delta.conversations {
		c.publish(SyncMessage{Type: ConversationsUpdate, Conversations: snap.Conversations})
	}
	if delta.job {
		c.publish(SyncMessage{Type: JobUpdate, Job: snap.Job})
	}
	if delta.activeFolder {
		c.publish(SyncMessage{Type: ActiveFolderChange, ActiveID: snap.ActiveFolderID})
	}
	if delta.activeConversation {
		c.publish(SyncMessage{Type: ActiveConversationChange, ActiveID: snap.ActiveConversationID})
	}
}

func (c *Channel) publish(msg SyncMessage) {
	msg.SenderID = c.tabID
	msg.Timestamp = time.Now()
	if err := c.bus.Publish(msg); err != nil {
		c.logger.Debug("broadcast failed", "type", msg.Type, "error", err)
	}
}

// onRemote applies a sibling tab's message. Merges go through the store's
// mutation API and are commutative and idempotent, so delivery order
// relative to local mutations does not matter.
func (c *Channel) onRemote(msg SyncMessage) {
	if msg.SenderID == c.tabID {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.applying = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.applying = false
		c.mu.Unlock()
	}()

	switch msg.Type {
	case FoldersUpdate:
		c.store.MergeRemoteFolders(msg.Folders)
	case ConversationsUpdate:
		c.store.MergeRemoteConversations(msg.Conversations)
	case JobUpdate:
		if msg.Job != nil && !c.store.AdoptJob(msg.Job) {
			c.logger.Debug("ignoring remote job while streaming locally", "job_id", msg.Job.ID)
		}
	case ActiveFolderChange:
		if !c.focused() {
			c.store.SetActiveFolder(msg.ActiveID)
		}
	case ActiveConversationChange:
		if !c.focused() {
			c.store.SetActiveConversation(msg.ActiveID)
		}
	case FullStateRequest:
		snap := c.store.Snapshot()
		c.publish(SyncMessage{Type: FullStateResponse, State: &FullState{
			Conversations:        snap.Conversations,
			Folders:              snap.Folders,
			ActiveConversationID: snap.ActiveConversationID,
			ActiveFolderID:       snap.ActiveFolderID,
		}})
	case FullStateResponse:
		c.adoptFullState(msg.State)
	default:
		c.logger.Debug("unknown sync message type", "type", msg.Type)
	}
}

// adoptFullState bootstraps a cold tab from a settled one. Adopt only when
// the responder knows strictly more than we do, so two settled tabs never
// ping-pong state.
func (c *Channel) adoptFullState(full *FullState) {
	if full == nil {
		return
	}
	snap := c.store.Snapshot()
	if len(snap.Conversations) >= len(full.Conversations) && len(snap.Folders) >= len(full.Folders) {
		return
	}
	c.store.MergeRemoteConversations(full.Conversations)
	c.store.MergeRemoteFolders(full.Folders)
	if snap.ActiveConversationID == "" && full.ActiveConversationID != "" {
		c.store.SetActiveConversation(full.ActiveConversationID)
	}
	if snap.ActiveFolderID == "" && full.ActiveFolderID != "" {
		c.store.SetActiveFolder(full.ActiveFolderID)
	}
}

func foldersEqual(a, b []state.Folder) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].UpdatedAt.Equal(b[i].UpdatedAt) {
			return false
		}
	}
	return true
}

func conversationsEqual(a, b []state.Conversation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].UpdatedAt.Equal(b[i].UpdatedAt) || len(a[i].Messages) != len(b[i].Messages) {
			return false
		}
	}
	return true
}

func jobChanged(prev, next state.State) bool {
	if (prev.Job == nil) != (next.Job == nil) {
		return true
	}
	if next.Job == nil {
		return prev.Streaming != next.Streaming
	}
	return prev.Job.ID != next.Job.ID ||
		prev.Job.Status != next.Job.Status ||
		len(prev.Job.Events) != len(next.Job.Events) ||
		prev.Streaming != next.Streaming
}
