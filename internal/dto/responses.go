package dto

import (
	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/square"
)

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// OTPRequestResponse acknowledges a code dispatch. DebugCode is only set
// outside production so sandbox flows can complete without email delivery.
type OTPRequestResponse struct {
	Message   string `json:"message"`
	DebugCode string `json:"debug_code,omitempty"`
}

// ConnectSessionResponse carries the short-lived OAuth session token
type ConnectSessionResponse struct {
	SessionToken string              `json:"session_token"`
	ExpiresAt    string              `json:"expires_at"`
	Integration  *domain.Integration `json:"integration"`
}

// BusinessDataResponse returns the synced (or fixture) snapshot
type BusinessDataResponse struct {
	Success      bool                 `json:"success"`
	BusinessData *domain.BusinessData `json:"business_data"`
}

// AvailabilityResponse lists open slots; empty means no availability, not
// an error.
type AvailabilityResponse struct {
	Availabilities []square.Availability `json:"availabilities"`
}

// BookingResponse wraps a single booking
type BookingResponse struct {
	Booking *square.Booking `json:"booking"`
}

// ListBookingsResponse is one page of bookings; Cursor is empty on the
// last page.
type ListBookingsResponse struct {
	Bookings []square.Booking `json:"bookings"`
	Cursor   string           `json:"cursor,omitempty"`
}

// ToolCallResponse carries the string the voice agent speaks
type ToolCallResponse struct {
	Result string `json:"result"`
}

// MessagesResponse lists a conversation transcript
type MessagesResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []*domain.Message `json:"messages"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
