package repository

import (
	"context"

	"github.com/ovela/onboard-service/internal/domain"
)

// UserRepository defines methods for user profile operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.UserProfile) error
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	// UpsertByEmail returns the existing profile for the email or creates one.
	UpsertByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	// UpdateBusinessData overwrites the business_data snapshot.
	UpdateBusinessData(ctx context.Context, userID string, data *domain.BusinessData) error
}

// ConnectionRepository defines methods for connection operations
type ConnectionRepository interface {
	// Upsert inserts the connection or, when a row for (user, integration)
	// already exists, updates it in place. Idempotent under repeated
	// webhook delivery.
	Upsert(ctx context.Context, conn *domain.Connection) error
	GetByID(ctx context.Context, id string) (*domain.Connection, error)
	// GetActiveByUser returns the user's active connection for the
	// integration, ErrNotFound when absent.
	GetActiveByUser(ctx context.Context, userID, integrationID string) (*domain.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Connection, error)
	UpdateLastSync(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status string) error
}

// IntegrationRepository defines methods for the static integration catalog
type IntegrationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Integration, error)
	GetByProviderKey(ctx context.Context, providerKey string) (*domain.Integration, error)
	List(ctx context.Context) ([]*domain.Integration, error)
}

// ConversationRepository defines methods for transcript storage
type ConversationRepository interface {
	// GetOrCreateForUser returns the user's onboarding conversation,
	// creating it on first use.
	GetOrCreateForUser(ctx context.Context, userID string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, msg *domain.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error)
	ClearMessages(ctx context.Context, conversationID string) error
}
