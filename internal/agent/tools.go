package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/service"
	"github.com/ovela/onboard-service/internal/square"
)

// maxSpokenSlots bounds how many open slots a single answer lists.
const maxSpokenSlots = 10

// Toolset wires the three booking tools onto a registry.
type Toolset struct {
	users   repository.UserRepository
	booking service.BookingService
}

// NewToolset creates the toolset backed by the given services.
func NewToolset(users repository.UserRepository, booking service.BookingService) *Toolset {
	return &Toolset{users: users, booking: booking}
}

// RegisterAll registers every tool on the registry.
func (t *Toolset) RegisterAll(r *Registry) {
	r.Register(Tool{
		Name:        "get_customer_info",
		Description: "Look up the connected business profile: locations, services, and last sync time.",
		Handle:      t.getCustomerInfo,
	})
	r.Register(Tool{
		Name:        "check_availability",
		Description: "Search open appointment slots in a time window, optionally for one service.",
		Handle:      t.checkAvailability,
	})
	r.Register(Tool{
		Name:        "book_appointment",
		Description: "Create a booking at a previously offered slot.",
		Handle:      t.bookAppointment,
	})
}

type customerInfoArgs struct {
	UserID string `json:"user_id"`
}

func (t *Toolset) getCustomerInfo(ctx context.Context, args json.RawMessage) (string, error) {
	var req customerInfoArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if req.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	user, err := t.users.GetByID(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to look up customer: %w", err)
	}

	if user.BusinessData == nil {
		return Success("The business profile exists but no point-of-sale data has been synced yet.", map[string]any{
			"email": user.Email,
		}), nil
	}

	bd := user.BusinessData
	primary := ""
	for _, loc := range bd.Locations {
		if loc.ID == bd.PrimaryLocationID {
			primary = loc.Name
			break
		}
	}

	services := make([]string, 0, len(bd.Items))
	for _, item := range bd.Items {
		services = append(services, item.Name)
	}

	msg := fmt.Sprintf("%s has %d location(s) and offers %d service(s): %s.",
		primaryOr(primary, "The business"), len(bd.Locations), len(bd.Items), strings.Join(services, ", "))

	return Success(msg, map[string]any{
		"email":               user.Email,
		"primary_location_id": bd.PrimaryLocationID,
		"locations":           len(bd.Locations),
		"services":            len(bd.Items),
		"last_synced_at":      bd.LastSyncedAt.Format(time.RFC3339),
	}), nil
}

type availabilityArgs struct {
	UserID             string `json:"user_id"`
	Date               string `json:"date"`
	StartAt            string `json:"start_at"`
	EndAt              string `json:"end_at"`
	LocationID         string `json:"location_id"`
	ServiceVariationID string `json:"service_variation_id"`
	TeamMemberID       string `json:"team_member_id"`
}

func (t *Toolset) checkAvailability(ctx context.Context, args json.RawMessage) (string, error) {
	var req availabilityArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if req.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	start, end, err := resolveWindow(req.Date, req.StartAt, req.EndAt)
	if err != nil {
		return "", err
	}

	locationID, err := t.resolveLocation(ctx, req.UserID, req.LocationID)
	if err != nil {
		return "", err
	}

	search := &dto.AvailabilitySearchRequest{
		StartAt:    start,
		EndAt:      end,
		LocationID: locationID,
	}
	if req.ServiceVariationID != "" {
		filter := square.SegmentFilter{ServiceVariationID: req.ServiceVariationID}
		if req.TeamMemberID != "" {
			filter.TeamMemberIDFilter = &square.TeamMemberIDFilter{Any: []string{req.TeamMemberID}}
		}
		search.SegmentFilters = []square.SegmentFilter{filter}
	}

	slots, err := t.booking.SearchAvailability(ctx, req.UserID, search)
	if err != nil {
		return "", fmt.Errorf("availability search failed: %w", err)
	}

	if len(slots) == 0 {
		return Success("There are no open slots in that window. Try another day or a wider window.", nil), nil
	}

	times := make([]string, 0, maxSpokenSlots)
	for i, slot := range slots {
		if i >= maxSpokenSlots {
			break
		}
		times = append(times, spokenTime(slot.StartAt))
	}

	msg := fmt.Sprintf("There are %d open slot(s). The first options are: %s.", len(slots), strings.Join(times, "; "))

	return Success(msg, map[string]any{
		"count":       len(slots),
		"slots":       times,
		"location_id": locationID,
	}), nil
}

type bookArgs struct {
	UserID                  string `json:"user_id"`
	StartAt                 string `json:"start_at"`
	LocationID              string `json:"location_id"`
	ServiceVariationID      string `json:"service_variation_id"`
	ServiceVariationVersion int64  `json:"service_variation_version"`
	TeamMemberID            string `json:"team_member_id"`
	CustomerID              string `json:"customer_id"`
	Note                    string `json:"note"`
}

func (t *Toolset) bookAppointment(ctx context.Context, args json.RawMessage) (string, error) {
	var req bookArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if req.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if req.ServiceVariationID == "" {
		return "", fmt.Errorf("service_variation_id is required")
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return "", fmt.Errorf("start_at must be an RFC3339 timestamp: %w", err)
	}

	locationID, err := t.resolveLocation(ctx, req.UserID, req.LocationID)
	if err != nil {
		return "", err
	}

	booking, err := t.booking.CreateBooking(ctx, req.UserID, &dto.CreateBookingRequest{
		StartAt:    startAt,
		LocationID: locationID,
		CustomerID: req.CustomerID,
		Segments: []square.AppointmentSegment{{
			ServiceVariationID:      req.ServiceVariationID,
			ServiceVariationVersion: req.ServiceVariationVersion,
			TeamMemberID:            req.TeamMemberID,
		}},
		CustomerNote: req.Note,
	})
	if err != nil {
		return "", fmt.Errorf("booking failed: %w", err)
	}

	msg := fmt.Sprintf("Booked for %s. The confirmation number is %s.", spokenTime(booking.StartAt), booking.ID)

	return Success(msg, map[string]any{
		"booking_id": booking.ID,
		"version":    booking.Version,
		"status":     booking.Status,
		"start_at":   booking.StartAt,
	}), nil
}

// resolveLocation falls back to the profile's primary location when the
// agent didn't name one.
func (t *Toolset) resolveLocation(ctx context.Context, userID, locationID string) (string, error) {
	if locationID != "" {
		return locationID, nil
	}

	user, err := t.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve location: %w", err)
	}
	if user.BusinessData == nil || user.BusinessData.PrimaryLocationID == "" {
		return "", fmt.Errorf("no location available; sync business data first")
	}

	return user.BusinessData.PrimaryLocationID, nil
}

// resolveWindow builds the search window from either an explicit range or
// a calendar date (whole day, UTC).
func resolveWindow(date, startAt, endAt string) (time.Time, time.Time, error) {
	if startAt != "" && endAt != "" {
		start, err := time.Parse(time.RFC3339, startAt)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start_at must be an RFC3339 timestamp: %w", err)
		}
		end, err := time.Parse(time.RFC3339, endAt)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end_at must be an RFC3339 timestamp: %w", err)
		}
		return start, end, nil
	}

	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		return day, day.Add(24 * time.Hour), nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("either date or start_at and end_at are required")
}

func spokenTime(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.Format("Monday, January 2 at 3:04 PM")
}

func primaryOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
