package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/square"
	"github.com/ovela/onboard-service/pkg/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// availabilityCacheTTL keeps slot results fresh enough for a live voice
// conversation while absorbing repeated tool calls.
const availabilityCacheTTL = 30 * time.Second

// maxBookingPages caps the fully-drained listing.
const maxBookingPages = 20

const drainPageSize = 100

// bookingService implements BookingService
type bookingService struct {
	connectionRepo    repository.ConnectionRepository
	integrationRepo   repository.IntegrationRepository
	nango             NangoAPI
	squareFactory     SquareClientFactory
	providerConfigKey string
	redis             *redis.Client
	logger            *zap.Logger
	metrics           *observability.Metrics
	defaultTeamMember string
}

// NewBookingService creates a new booking service
func NewBookingService(
	connectionRepo repository.ConnectionRepository,
	integrationRepo repository.IntegrationRepository,
	nangoClient NangoAPI,
	squareFactory SquareClientFactory,
	providerConfigKey string,
	redisClient *redis.Client,
	logger *zap.Logger,
	metrics *observability.Metrics,
	defaultTeamMember string,
) BookingService {
	return &bookingService{
		connectionRepo:    connectionRepo,
		integrationRepo:   integrationRepo,
		nango:             nangoClient,
		squareFactory:     squareFactory,
		providerConfigKey: providerConfigKey,
		redis:             redisClient,
		logger:            logger,
		metrics:           metrics,
		defaultTeamMember: defaultTeamMember,
	}
}

// clientForUser exchanges the user's active connection for a platform
// client. Fails with not-found before any external call when the user has
// no active connection.
func (s *bookingService) clientForUser(ctx context.Context, userID string) (SquareAPI, error) {
	integration, err := s.integrationRepo.GetByProviderKey(ctx, s.providerConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve integration: %w", err)
	}

	conn, err := s.connectionRepo.GetActiveByUser(ctx, userID, integration.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active connection: %w", err)
	}

	creds, err := s.nango.GetConnection(ctx, conn.ExternalConnectionID, s.providerConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve platform credentials: %w", err)
	}

	return s.squareFactory(creds.Credentials.AccessToken), nil
}

// SearchAvailability returns open slots in the window. An empty result is
// success, not an error.
func (s *bookingService) SearchAvailability(ctx context.Context, userID string, req *dto.AvailabilitySearchRequest) ([]square.Availability, error) {
	cacheKey := availabilityCacheKey(userID, req)
	if cached, ok := s.cachedAvailability(ctx, cacheKey); ok {
		return cached, nil
	}

	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	slots, err := sq.SearchAvailability(ctx, req.StartAt, req.EndAt, req.LocationID, req.SegmentFilters)
	s.metrics.UpstreamLatency.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	s.cacheAvailability(ctx, cacheKey, slots)

	return slots, nil
}

// CreateBooking creates a booking; the platform assigns id and version.
// Rejections (e.g. the slot was just taken) surface as errors.
func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *dto.CreateBookingRequest) (*square.Booking, error) {
	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	segments := make([]square.AppointmentSegment, len(req.Segments))
	copy(segments, req.Segments)
	for i := range segments {
		if segments[i].TeamMemberID == "" {
			segments[i].TeamMemberID = s.defaultTeamMember
		}
	}

	booking := square.Booking{
		StartAt:      req.StartAt.Format(time.RFC3339),
		LocationID:   req.LocationID,
		CustomerID:   req.CustomerID,
		CustomerNote: req.CustomerNote,
		Segments:     segments,
	}

	created, err := sq.CreateBooking(ctx, booking)
	if err != nil {
		return nil, mapVersionError(err)
	}

	s.logger.Info("booking created",
		zap.String("user_id", userID),
		zap.String("booking_id", created.ID),
		zap.String("start_at", created.StartAt),
	)

	return created, nil
}

// GetBooking fetches one booking. The returned version is the one to
// pass on a subsequent update or cancel.
func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID string) (*square.Booking, error) {
	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return sq.RetrieveBooking(ctx, bookingID)
}

// UpdateBooking applies a sparse patch at the caller's latest known
// version. A stale version fails without mutating the booking.
func (s *bookingService) UpdateBooking(ctx context.Context, userID, bookingID string, req *dto.UpdateBookingRequest) (*square.Booking, error) {
	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	patch := square.Booking{Version: *req.Version}
	if req.StartAt != nil {
		patch.StartAt = req.StartAt.Format(time.RFC3339)
	}
	if req.CustomerNote != nil {
		patch.CustomerNote = *req.CustomerNote
	}
	if len(req.Segments) > 0 {
		patch.Segments = req.Segments
	}

	updated, err := sq.UpdateBooking(ctx, bookingID, patch)
	if err != nil {
		return nil, mapVersionError(err)
	}

	return updated, nil
}

// CancelBooking cancels at the caller's latest known version.
func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID string, version int64) (*square.Booking, error) {
	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	cancelled, err := sq.CancelBooking(ctx, bookingID, version)
	if err != nil {
		return nil, mapVersionError(err)
	}

	s.logger.Info("booking cancelled",
		zap.String("user_id", userID),
		zap.String("booking_id", bookingID),
	)

	return cancelled, nil
}

// ListBookings returns one page of bookings plus the next cursor.
func (s *bookingService) ListBookings(ctx context.Context, userID string, params square.ListBookingsParams, cursor string) ([]square.Booking, string, error) {
	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	return sq.ListBookings(ctx, params, cursor)
}

// ListAllBookings drains the cursor up to the page cap. Callers should
// bound the date range.
func (s *bookingService) ListAllBookings(ctx context.Context, userID string, params square.ListBookingsParams) ([]square.Booking, error) {
	sq, err := s.clientForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = drainPageSize
	}

	var all []square.Booking
	cursor := ""

	for page := 0; ; page++ {
		if page >= maxBookingPages {
			return nil, fmt.Errorf("bookings listing exceeded %d pages, narrow the date range", maxBookingPages)
		}

		bookings, next, err := sq.ListBookings(ctx, params, cursor)
		if err != nil {
			return nil, err
		}

		all = append(all, bookings...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

func (s *bookingService) cachedAvailability(ctx context.Context, key string) ([]square.Availability, bool) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var slots []square.Availability
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (s *bookingService) cacheAvailability(ctx context.Context, key string, slots []square.Availability) {
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, availabilityCacheTTL).Err(); err != nil {
		s.logger.Warn("failed to cache availability", zap.Error(err))
	}
}

func availabilityCacheKey(userID string, req *dto.AvailabilitySearchRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(append([]byte(userID+"|"), payload...))
	return "availability:" + hex.EncodeToString(sum[:16])
}

// mapVersionError tags optimistic concurrency rejections so handlers can
// report conflicts distinctly from other upstream failures.
func mapVersionError(err error) error {
	var apiErr *square.Error
	if errors.As(err, &apiErr) && apiErr.IsVersionMismatch() {
		return fmt.Errorf("%w: %v", ErrStaleVersion, err)
	}
	return err
}
