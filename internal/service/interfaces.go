package service

import (
	"context"
	"time"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/square"
)

// AuthService defines methods for OTP authentication operations
type AuthService interface {
	RequestCode(ctx context.Context, email string) (*dto.OTPRequestResponse, error)
	VerifyCode(ctx context.Context, email, code string) (*dto.AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (userID, email string, err error)
}

// ConnectService defines methods for the OAuth bridge
type ConnectService interface {
	// CreateSession requests a short-lived connect session token from the
	// OAuth broker for the given user and integration.
	CreateSession(ctx context.Context, userID, integrationID string) (*dto.ConnectSessionResponse, error)
	// HandleWebhook processes an asynchronous auth callback. The raw body
	// and signature header are both required for verification.
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// CatalogService defines methods for the business data fetcher
type CatalogService interface {
	// FetchAndStoreBusinessData syncs locations and catalog from the
	// linked platform into the user's profile. With an empty connectionID
	// the user's active connection is resolved first; no external call is
	// made when none exists.
	FetchAndStoreBusinessData(ctx context.Context, userID, connectionID string) (*domain.BusinessData, error)
	// TestData returns the sandbox fixture snapshot without persistence.
	TestData() *domain.BusinessData
}

// BookingService defines methods for the booking integration
type BookingService interface {
	SearchAvailability(ctx context.Context, userID string, req *dto.AvailabilitySearchRequest) ([]square.Availability, error)
	CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*square.Booking, error)
	// GetBooking fetches a single booking, including its current version
	// for callers about to update or cancel.
	GetBooking(ctx context.Context, userID, bookingID string) (*square.Booking, error)
	UpdateBooking(ctx context.Context, userID, bookingID string, req *dto.UpdateBookingRequest) (*square.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID string, version int64) (*square.Booking, error)
	ListBookings(ctx context.Context, userID string, params square.ListBookingsParams, cursor string) ([]square.Booking, string, error)
	// ListAllBookings drains the cursor. Callers should bound the date
	// range; the drain is capped to protect against runaway result sets.
	ListAllBookings(ctx context.Context, userID string, params square.ListBookingsParams) ([]square.Booking, error)
}

// NangoAPI is the subset of the broker client the services depend on.
// *nango.Client satisfies it; tests substitute fakes.
type NangoAPI interface {
	CreateConnectSession(ctx context.Context, endUser nango.EndUser, providerConfigKey string) (*nango.ConnectSession, error)
	GetConnection(ctx context.Context, connectionID, providerConfigKey string) (*nango.Connection, error)
}

// SquareAPI is the subset of the platform client the services depend on.
// *square.Client satisfies it; tests substitute fakes.
type SquareAPI interface {
	ListLocations(ctx context.Context) ([]square.Location, error)
	ListCatalog(ctx context.Context, types ...string) ([]square.CatalogObject, error)
	SearchAvailability(ctx context.Context, startAt, endAt time.Time, locationID string, filters []square.SegmentFilter) ([]square.Availability, error)
	CreateBooking(ctx context.Context, booking square.Booking) (*square.Booking, error)
	RetrieveBooking(ctx context.Context, bookingID string) (*square.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, booking square.Booking) (*square.Booking, error)
	CancelBooking(ctx context.Context, bookingID string, version int64) (*square.Booking, error)
	ListBookings(ctx context.Context, params square.ListBookingsParams, cursor string) ([]square.Booking, string, error)
}

// SquareClientFactory builds a platform client from per-merchant
// credentials resolved through the broker.
type SquareClientFactory func(accessToken string) SquareAPI
