package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/pkg/database"
)

// conversationRepository implements ConversationRepository interface
type conversationRepository struct {
	db *database.Postgres
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *database.Postgres) ConversationRepository {
	return &conversationRepository{db: db}
}

// GetOrCreateForUser returns the user's onboarding conversation, creating it on first use
func (r *conversationRepository) GetOrCreateForUser(ctx context.Context, userID string) (*domain.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
	`

	conv := &domain.Conversation{}
	err := r.db.DB.QueryRowContext(ctx, query, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	now := time.Now()
	conv = &domain.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     "Onboarding",
		CreatedAt: now,
		UpdatedAt: now,
	}

	insert := `
		INSERT INTO conversations (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, created_at, updated_at
	`

	err = r.db.DB.QueryRowContext(ctx, insert,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// AppendMessage appends a transcript entry
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, text, raw_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var rawPayload any
	if len(msg.RawPayload) > 0 {
		rawPayload = []byte(msg.RawPayload)
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Text,
		rawPayload,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// ListMessages returns a conversation's messages in order
func (r *conversationRepository) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	query := `
		SELECT id, conversation_id, role, text, raw_payload, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.DB.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		var rawPayload []byte
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Text,
			&rawPayload,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.RawPayload = rawPayload
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// ClearMessages deletes all messages in a conversation
func (r *conversationRepository) ClearMessages(ctx context.Context, conversationID string) error {
	query := `DELETE FROM messages WHERE conversation_id = $1`

	if _, err := r.db.DB.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	return nil
}
