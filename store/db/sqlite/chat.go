package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/chartlyhq/chartly/store"
)

func (d *DB) CreateChatSession(ctx context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	fields := []string{"uid", "title", "created_ts"}
	args := []any{create.UID, create.Title, create.CreatedTs}

	stmt := "INSERT INTO chat_session (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create chat_session")
	}
	return create, nil
}

func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}

	query := "SELECT id, uid, title, created_ts FROM chat_session WHERE " + strings.Join(where, " AND ") + " ORDER BY created_ts DESC, id DESC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat_sessions")
	}
	defer rows.Close()

	list := make([]*store.ChatSession, 0)
	for rows.Next() {
		session := &store.ChatSession{}
		if err := rows.Scan(&session.ID, &session.UID, &session.Title, &session.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat_session")
		}
		list = append(list, session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chat_sessions")
	}
	return list, nil
}

func (d *DB) UpdateChatSession(ctx context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := "UPDATE chat_session SET " + strings.Join(set, ", ") + " WHERE id = " + placeholder(len(args)) + " RETURNING id, uid, title, created_ts"
	session := &store.ChatSession{}
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&session.ID, &session.UID, &session.Title, &session.CreatedTs); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.Errorf("chat_session %d not found", update.ID)
		}
		return nil, errors.Wrap(err, "failed to update chat_session")
	}
	return session, nil
}

func (d *DB) DeleteChatSession(ctx context.Context, delete *store.DeleteChatSession) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM chat_session WHERE id = "+placeholder(1), delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete chat_session")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("chat_session %d not found", delete.ID)
	}
	return nil
}

func (d *DB) GetChatSessionStats(ctx context.Context, sessionID int32) (*store.ChatSessionStats, error) {
	stats := &store.ChatSessionStats{}
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(cost), 0) FROM chat_message WHERE session_id = "+placeholder(1),
		sessionID,
	).Scan(&stats.MessageCount, &stats.TotalCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chat_session stats")
	}
	return stats, nil
}

func (d *DB) CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	var image any
	if len(create.Image) > 0 {
		image = create.Image
	}
	fields := []string{"uid", "session_id", "sender", "content", "cost", "image", "plot_tag", "created_ts"}
	args := []any{create.UID, create.SessionID, string(create.Sender), create.Content, create.Cost, image, create.PlotTag, create.CreatedTs}

	stmt := "INSERT INTO chat_message (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create chat_message")
	}
	create.HasImage = len(create.Image) > 0
	return create, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *find.SessionID)
	}

	query := "SELECT id, uid, session_id, sender, content, cost, image, plot_tag, created_ts FROM chat_message WHERE " +
		strings.Join(where, " AND ") + " ORDER BY created_ts ASC, id ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat_messages")
	}
	defer rows.Close()

	list := make([]*store.ChatMessage, 0)
	for rows.Next() {
		message := &store.ChatMessage{}
		var sender string
		var image []byte
		if err := rows.Scan(&message.ID, &message.UID, &message.SessionID, &sender, &message.Content, &message.Cost, &image, &message.PlotTag, &message.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat_message")
		}
		message.Sender = store.Sender(sender)
		message.Image = image
		message.HasImage = len(image) > 0
		list = append(list, message)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chat_messages")
	}
	return list, nil
}
