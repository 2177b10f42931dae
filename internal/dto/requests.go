package dto

import (
	"encoding/json"
	"time"

	"github.com/ovela/onboard-service/internal/square"
)

// Business data fetch actions.
const (
	ActionFetchData = "fetch_data"
	ActionTestData  = "test_data"
)

// OTPRequestRequest asks for a one-time code to be sent to an email
type OTPRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// OTPVerifyRequest exchanges a one-time code for a session token
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// ConnectSessionRequest starts an OAuth connect flow for an integration
type ConnectSessionRequest struct {
	IntegrationID string `json:"integration_id" binding:"required"`
}

// BusinessDataRequest triggers a business data fetch. Action defaults to
// fetch_data; test_data returns a fixture snapshot without persistence.
type BusinessDataRequest struct {
	Action       string `json:"action"`
	ConnectionID string `json:"connection_id"`
}

// AvailabilitySearchRequest searches open appointment slots in a window
type AvailabilitySearchRequest struct {
	StartAt        time.Time              `json:"start_at" binding:"required"`
	EndAt          time.Time              `json:"end_at" binding:"required"`
	LocationID     string                 `json:"location_id"`
	SegmentFilters []square.SegmentFilter `json:"segment_filters"`
}

// CreateBookingRequest creates a booking at a slot
type CreateBookingRequest struct {
	StartAt      time.Time                   `json:"start_at" binding:"required"`
	LocationID   string                      `json:"location_id" binding:"required"`
	Segments     []square.AppointmentSegment `json:"segments" binding:"required,min=1"`
	CustomerID   string                      `json:"customer_id"`
	CustomerNote string                      `json:"customer_note"`
}

// UpdateBookingRequest patches a booking. Version is the caller's latest
// known booking version; a stale version fails without mutation. It is a
// pointer because freshly created bookings sit at version 0, which the
// required validator would otherwise reject as a missing field.
type UpdateBookingRequest struct {
	Version      *int64                      `json:"version" binding:"required"`
	StartAt      *time.Time                  `json:"start_at"`
	CustomerNote *string                     `json:"customer_note"`
	Segments     []square.AppointmentSegment `json:"segments"`
}

// CancelBookingRequest cancels a booking at a version. Version is a
// pointer for the same reason as UpdateBookingRequest: 0 is a legitimate
// latest version.
type CancelBookingRequest struct {
	Version *int64 `json:"version" binding:"required"`
}

// AppendMessageRequest appends a transcript entry
type AppendMessageRequest struct {
	Role       string          `json:"role" binding:"required"`
	Text       string          `json:"text" binding:"required"`
	RawPayload json.RawMessage `json:"raw_payload"`
}
