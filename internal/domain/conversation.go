package domain

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	MessageRoleUser   = "user"
	MessageRoleAgent  = "agent"
	MessageRoleSystem = "system"
)

// Conversation is the single onboarding transcript per user.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is one transcript entry. RawPayload holds the provider event
// verbatim for debugging and is optional.
type Message struct {
	ID             string          `json:"id" db:"id"`
	ConversationID string          `json:"conversation_id" db:"conversation_id"`
	Role           string          `json:"role" db:"role"`
	Text           string          `json:"text" db:"text"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// ValidRole reports whether r is a known message role.
func ValidRole(r string) bool {
	return r == MessageRoleUser || r == MessageRoleAgent || r == MessageRoleSystem
}
