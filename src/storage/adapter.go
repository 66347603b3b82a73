package storage

import (
	"context"
	"log/slog"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// Adapter binds a store to the database: it restores the persisted
// projection into the store on startup and writes a fresh projection after
// every transition. It only reads the store and proposes merges through the
// public mutation API; it never touches state directly.
type Adapter struct {
	db        *DB
	namespace string
	store     *state.Store
	logger    *slog.Logger
}

// NewAdapter creates an adapter over an open database. An empty namespace
// falls back to DefaultNamespace; a nil logger discards.
func NewAdapter(db *DB, namespace string, store *state.Store, logger *slog.Logger) *Adapter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{db: db, namespace: namespace, store: store, logger: logger}
}

// Attach subscribes the adapter to store transitions. Call before Restore
// so work done while the restore is in flight still gets persisted.
func (a *Adapter) Attach() {
	a.store.Subscribe(a.onChange)
}

// Load reads the persisted projection without touching the store. Returns
// nil when nothing has been persisted yet.
func (a *Adapter) Load(ctx context.Context) (*Projection, error) {
	return LoadSnapshot(ctx, a.db.DB(), a.namespace)
}

// Apply merges a loaded projection into the store with id-union semantics.
// The load and the merge may be separated by arbitrary user work; the merge
// and the rehydration guard cover that interleaving.
func (a *Adapter) Apply(proj *Projection) {
	if proj == nil {
		a.logger.Debug("no persisted snapshot", "namespace", a.namespace)
		return
	}
	a.store.MergeRestored(proj.Restored())
	a.logger.Debug("restored snapshot",
		"conversations", len(proj.Conversations), "folders", len(proj.Folders))
}

// Restore is Load followed immediately by Apply.
func (a *Adapter) Restore(ctx context.Context) error {
	proj, err := a.Load(ctx)
	if err != nil {
		return err
	}
	a.Apply(proj)
	return nil
}

// ListConversations exposes the history rows for read-only listings.
func (a *Adapter) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	return ListConversations(ctx, a.db.DB())
}

func (a *Adapter) onChange(prev, next state.State) {
	ctx := context.Background()
	if err := SaveSnapshot(ctx, a.db.DB(), a.namespace, BuildProjection(next)); err != nil {
		a.logger.Error("failed to save snapshot", "error", err)
		return
	}
	a.writeHistory(ctx, prev, next)
}

// writeHistory write-throughs new messages and changed conversations into
// the history tables. Failures are logged, not surfaced: history is a
// convenience view, the snapshot is the durable record.
func (a *Adapter) writeHistory(ctx context.Context, prev, next state.State) {
	prevCounts := make(map[string]int, len(prev.Conversations))
	for _, conv := range prev.Conversations {
		prevCounts[conv.ID] = len(conv.Messages)
	}
	for _, conv := range next.Conversations {
		if len(conv.Messages) == 0 {
			continue
		}
		if err := UpsertConversation(ctx, a.db.DB(), conv); err != nil {
			a.logger.Error("failed to upsert conversation history", "error", err)
			continue
		}
		for i := prevCounts[conv.ID]; i < len(conv.Messages); i++ {
			if err := InsertMessage(ctx, a.db.DB(), conv.ID, conv.Messages[i]); err != nil {
				a.logger.Error("failed to insert message history", "error", err)
			}
		}
	}
}
