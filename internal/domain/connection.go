package domain

import "time"

// Connection statuses.
const (
	ConnectionStatusActive  = "active"
	ConnectionStatusError   = "error"
	ConnectionStatusRevoked = "revoked"
)

// Connection links a user to an authorized external account for one
// integration. Unique on (user_id, integration_id).
type Connection struct {
	ID                   string            `json:"id" db:"id"`
	UserID               string            `json:"user_id" db:"user_id"`
	IntegrationID        string            `json:"integration_id" db:"integration_id"`
	ExternalConnectionID string            `json:"external_connection_id" db:"external_connection_id"`
	Status               string            `json:"status" db:"status"`
	Metadata             map[string]string `json:"metadata" db:"metadata"`
	LastSyncAt           *time.Time        `json:"last_sync_at" db:"last_sync_at"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// Integration is a static reference row describing a supported external
// provider, keyed by its Nango provider config key.
type Integration struct {
	ID          string    `json:"id" db:"id"`
	ProviderKey string    `json:"provider_key" db:"provider_key"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
