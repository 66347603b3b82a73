package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
)

// DefaultNamespace keys the single snapshot row. One namespace per app
// install, matching the per-origin record the browser build writes.
const DefaultNamespace = "chatfold.state.v1"

type snapshotRow struct {
	Namespace string    `db:"namespace"`
	Data      string    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SaveSnapshot upserts the projection under the namespace.
func SaveSnapshot(ctx context.Context, db Execer, namespace string, proj *Projection) error {
	data, err := json.Marshal(proj)
	if err != nil {
		return err
	}
	query := `INSERT INTO snapshots (namespace, data, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT(namespace) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	_, err = db.ExecContext(ctx, query, namespace, string(data), time.Now())
	return err
}

// LoadSnapshot reads the projection back. Returns nil, nil when no snapshot
// has been written yet. Unknown fields in the stored JSON are ignored and
// missing optional fields stay zero, so older and newer writers coexist.
func LoadSnapshot(ctx context.Context, db sqlscan.Querier, namespace string) (*Projection, error) {
	query := `SELECT namespace, data, updated_at FROM snapshots WHERE namespace = ?`
	var row snapshotRow
	err := sqlscan.Get(ctx, db, &row, query, namespace)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var proj Projection
	if err := json.Unmarshal([]byte(row.Data), &proj); err != nil {
		return nil, err
	}
	return &proj, nil
}

// UpsertConversation writes a conversation history row.
func UpsertConversation(ctx context.Context, db Execer, conv state.Conversation) error {
	query := `INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query, conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	return err
}

// InsertMessage records a message once; replays are ignored.
func InsertMessage(ctx context.Context, db Execer, conversationID string, msg state.Message) error {
	query := `INSERT OR IGNORE INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, msg.ID, conversationID, string(msg.Role), msg.Content, msg.CreatedAt)
	return err
}

// ConversationSummary is a history listing row.
type ConversationSummary struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	MessageCount int       `db:"message_count"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// ListConversations returns history rows, most recently updated first.
func ListConversations(ctx context.Context, db sqlscan.Querier) ([]ConversationSummary, error) {
	query := `SELECT c.id, c.title, c.updated_at,
	                 (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS message_count
	          FROM conversations c ORDER BY c.updated_at DESC`
	var rows []ConversationSummary
	if err := sqlscan.Select(ctx, db, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
