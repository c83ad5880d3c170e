package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/coursepilot/backend/internal/model"
	"github.com/coursepilot/backend/internal/pkg/dbutil"
	appErr "github.com/coursepilot/backend/internal/pkg/errors"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var conversationColumns = []string{"id", "user_id", "title", "rolling_summary", "message_count", "ctime", "mtime"}

func (r *ConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	data := map[string]interface{}{
		"id":              conv.ID,
		"user_id":         conv.UserID,
		"title":           conv.Title,
		"rolling_summary": conv.RollingSummary,
		"message_count":   conv.MessageCount,
		"ctime":           conv.Ctime,
		"mtime":           conv.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("conversations", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetByID scopes on both conversation and owner, so an ownership mismatch
// surfaces as not-found.
func (r *ConversationRepo) GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	where := map[string]interface{}{
		"id":      convID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, conversationColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var conv model.Conversation
	if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.RollingSummary, &conv.MessageCount, &conv.Ctime, &conv.Mtime); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string, limit uint) ([]model.Conversation, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("conversations", where, conversationColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	convs := make([]model.Conversation, 0)
	for rows.Next() {
		var conv model.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.RollingSummary, &conv.MessageCount, &conv.Ctime, &conv.Mtime); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// IncrementMessageCount adds delta atomically at the store layer and returns
// the new count, so concurrent turns never lose an increment.
func (r *ConversationRepo) IncrementMessageCount(ctx context.Context, convID string, delta int, mtime int64) (int, error) {
	const query = `
		UPDATE conversations
		SET message_count = message_count + $1, mtime = $2
		WHERE id = $3
		RETURNING message_count
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, delta, mtime, convID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, appErr.ErrNotFound
	}
	return count, err
}

func (r *ConversationRepo) UpdateTitle(ctx context.Context, convID, title string, mtime int64) error {
	return r.update(ctx, convID, map[string]interface{}{"title": title, "mtime": mtime})
}

func (r *ConversationRepo) UpdateSummary(ctx context.Context, convID, summary string, mtime int64) error {
	return r.update(ctx, convID, map[string]interface{}{"rolling_summary": summary, "mtime": mtime})
}

func (r *ConversationRepo) update(ctx context.Context, convID string, update map[string]interface{}) error {
	where := map[string]interface{}{"id": convID}
	sqlStr, args, err := builder.BuildUpdate("conversations", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete cascades to chat_messages through the schema.
func (r *ConversationRepo) Delete(ctx context.Context, userID, convID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = $1 AND user_id = $2", convID, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
