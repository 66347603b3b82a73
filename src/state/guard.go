package state

import "log/slog"

// RehydrationGuard watches every store transition for a specific race: the
// durable-storage restore completes asynchronously, and when it lands it
// can replace the conversation list wholesale, silently discarding
// conversations the user created (and wrote messages into) after startup.
// The guard detects conversations that carried messages, vanished, and were
// not explicitly deleted, and puts them back at the head of the list in a
// follow-up mutation. It is a safety net behind the id-union restore merge,
// not a replacement for it.
type RehydrationGuard struct {
	store  *Store
	logger *slog.Logger
}

// NewRehydrationGuard attaches a guard to the store.
func NewRehydrationGuard(store *Store, logger *slog.Logger) *RehydrationGuard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	g := &RehydrationGuard{store: store, logger: logger}
	store.Subscribe(g.observe)
	return g
}

func (g *RehydrationGuard) observe(prev, next State) {
	var lost []Conversation
	for _, conv := range prev.Conversations {
		if len(conv.Messages) == 0 {
			continue
		}
		if containsConversation(next.Conversations, conv.ID) {
			continue
		}
		if g.store.WasDeleted(conv.ID) {
			continue
		}
		lost = append(lost, conv)
	}
	if len(lost) == 0 {
		return
	}
	for _, conv := range lost {
		g.logger.Warn("conversation dropped by rehydration, restoring",
			"conversation_id", conv.ID, "messages", len(conv.Messages))
	}
	// Re-inserting triggers another transition; that one loses nothing,
	// so the recursion terminates immediately.
	g.store.ReinsertConversations(lost)
}
