package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/coursepilot/backend/internal/model"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = "id, conversation_id, role, content, sources, ctime"

func (r *MessageRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	sources := msg.Sources
	if sources == nil {
		sources = []model.SourceCitation{}
	}
	blob, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO chat_messages (id, conversation_id, role, content, sources, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, query, msg.ID, msg.ConversationID, msg.Role, msg.Content, blob, msg.Ctime)
	return err
}

// ListByConversation returns the full transcript in chronological order.
func (r *MessageRepo) ListByConversation(ctx context.Context, convID string, limit int) ([]model.ChatMessage, error) {
	query := "SELECT " + messageColumns + " FROM chat_messages WHERE conversation_id = $1 ORDER BY seq ASC"
	args := []interface{}{convID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// ListRecent returns the last n messages in chronological order.
func (r *MessageRepo) ListRecent(ctx context.Context, convID string, n int) ([]model.ChatMessage, error) {
	const query = `
		SELECT id, conversation_id, role, content, sources, ctime
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, convID, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func scanMessages(rows *sql.Rows) ([]model.ChatMessage, error) {
	msgs := make([]model.ChatMessage, 0)
	for rows.Next() {
		var msg model.ChatMessage
		var blob []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &blob, &msg.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &msg.Sources); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
