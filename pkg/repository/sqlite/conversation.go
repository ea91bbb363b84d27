package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/moneta-lab/moneta/pkg/domain/model"
	"github.com/moneta-lab/moneta/pkg/domain/types"
)

type conversationRepository struct {
	db *sql.DB
}

func (r *conversationRepository) Create(ctx context.Context, userID model.UserID, title string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:        model.NewConversationID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		string(conv.ID), string(conv.UserID), conv.Title, conv.CreatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert conversation",
			goerr.T(types.ErrTagPersistence), goerr.V("user_id", userID))
	}
	return conv, nil
}

func (r *conversationRepository) Get(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE id = ?`,
		string(id),
	)

	var conv model.Conversation
	var convID, userID string
	err := row.Scan(&convID, &userID, &conv.Title, &conv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan conversation",
			goerr.T(types.ErrTagPersistence), goerr.V("id", id))
	}
	conv.ID = model.ConversationID(convID)
	conv.UserID = model.UserID(userID)
	return &conv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID model.UserID) ([]*model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations
		 WHERE user_id = ? ORDER BY created_at DESC, id`,
		string(userID),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query conversations",
			goerr.T(types.ErrTagPersistence), goerr.V("user_id", userID))
	}
	defer rows.Close()

	var result []*model.Conversation
	for rows.Next() {
		var conv model.Conversation
		var convID, uid string
		if err := rows.Scan(&convID, &uid, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan conversation",
				goerr.T(types.ErrTagPersistence))
		}
		conv.ID = model.ConversationID(convID)
		conv.UserID = model.UserID(uid)
		result = append(result, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate conversations",
			goerr.T(types.ErrTagPersistence))
	}
	return result, nil
}

func (r *conversationRepository) AppendMessage(ctx context.Context, id model.ConversationID, msg *model.Message) (*model.Message, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	stored := msg.Clone()
	if stored.ID == "" {
		stored.ID = model.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction",
			goerr.T(types.ErrTagPersistence))
	}
	defer tx.Rollback()

	if err := insertMessage(ctx, tx, id, stored); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit message",
			goerr.T(types.ErrTagPersistence), goerr.V("conversation_id", id))
	}
	return stored, nil
}

func (r *conversationRepository) AppendTurn(ctx context.Context, id model.ConversationID, user, assistant *model.Message) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction",
			goerr.T(types.ErrTagPersistence))
	}
	defer tx.Rollback()

	for _, msg := range []*model.Message{user, assistant} {
		stored := msg.Clone()
		if stored.ID == "" {
			stored.ID = model.NewMessageID()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = time.Now()
		}
		if err := insertMessage(ctx, tx, id, stored); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit turn",
			goerr.T(types.ErrTagPersistence), goerr.V("conversation_id", id))
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, id model.ConversationID, stored *model.Message) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, role, content, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = ?), ?, ?, ?)`,
		string(stored.ID), string(id), string(id), stored.Role.String(), stored.Content, stored.CreatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert message",
			goerr.T(types.ErrTagPersistence), goerr.V("conversation_id", id))
	}

	for i, f := range stored.Attachments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attachments (message_id, position, name, data) VALUES (?, ?, ?, ?)`,
			string(stored.ID), i, f.Name, f.Data,
		)
		if err != nil {
			return goerr.Wrap(err, "failed to insert attachment",
				goerr.T(types.ErrTagPersistence), goerr.V("message_id", stored.ID))
		}
	}
	return nil
}

func (r *conversationRepository) Messages(ctx context.Context, id model.ConversationID) ([]*model.Message, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY seq`,
		string(id),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query messages",
			goerr.T(types.ErrTagPersistence), goerr.V("conversation_id", id))
	}
	defer rows.Close()

	var result []*model.Message
	for rows.Next() {
		var msg model.Message
		var msgID, role string
		if err := rows.Scan(&msgID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message",
				goerr.T(types.ErrTagPersistence))
		}
		msg.ID = model.MessageID(msgID)
		msg.Role = types.Role(role)
		result = append(result, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate messages",
			goerr.T(types.ErrTagPersistence))
	}

	for _, msg := range result {
		if err := r.loadAttachments(ctx, msg); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *conversationRepository) loadAttachments(ctx context.Context, msg *model.Message) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, data FROM attachments WHERE message_id = ? ORDER BY position`,
		string(msg.ID),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to query attachments",
			goerr.T(types.ErrTagPersistence), goerr.V("message_id", msg.ID))
	}
	defer rows.Close()

	for rows.Next() {
		var f model.FileRef
		if err := rows.Scan(&f.Name, &f.Data); err != nil {
			return goerr.Wrap(err, "failed to scan attachment",
				goerr.T(types.ErrTagPersistence))
		}
		msg.Attachments = append(msg.Attachments, f)
	}
	if err := rows.Err(); err != nil {
		return goerr.Wrap(err, "failed to iterate attachments",
			goerr.T(types.ErrTagPersistence))
	}
	return nil
}
