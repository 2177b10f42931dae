package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiVersion = "2025-01-23"

// maxCatalogPages bounds the catalog pagination drain.
const maxCatalogPages = 50

// Client communicates with the Square REST API using a per-merchant access
// token obtained through the OAuth broker.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// New creates a Client for the given Square endpoint and merchant token.
func New(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListLocations returns all of the merchant's locations.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var resp listLocationsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/locations", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return resp.Locations, nil
}

// ListCatalog drains the catalog listing for the given object types.
func (c *Client) ListCatalog(ctx context.Context, types ...string) ([]CatalogObject, error) {
	var objects []CatalogObject
	cursor := ""

	for page := 0; ; page++ {
		if page >= maxCatalogPages {
			return nil, fmt.Errorf("catalog listing exceeded %d pages", maxCatalogPages)
		}

		query := url.Values{}
		if len(types) > 0 {
			query.Set("types", strings.Join(types, ","))
		}
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp listCatalogResponse
		if err := c.do(ctx, http.MethodGet, "/v2/catalog/list", query, nil, &resp); err != nil {
			return nil, fmt.Errorf("failed to list catalog: %w", err)
		}

		objects = append(objects, resp.Objects...)
		if resp.Cursor == "" {
			return objects, nil
		}
		cursor = resp.Cursor
	}
}

// SearchAvailability returns open slots in the given window. An empty
// result is a valid success outcome.
func (c *Client) SearchAvailability(ctx context.Context, startAt, endAt time.Time, locationID string, filters []SegmentFilter) ([]Availability, error) {
	req := searchAvailabilityRequest{
		Query: availabilityQuery{
			Filter: availabilityFilter{
				StartAtRange: timeRange{
					StartAt: startAt.Format(time.RFC3339),
					EndAt:   endAt.Format(time.RFC3339),
				},
				LocationID:     locationID,
				SegmentFilters: filters,
			},
		},
	}

	var resp searchAvailabilityResponse
	if err := c.do(ctx, http.MethodPost, "/v2/bookings/availability/search", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to search availability: %w", err)
	}

	// Distinguish "no slots" from error: always return a non-nil slice.
	if resp.Availabilities == nil {
		return []Availability{}, nil
	}
	return resp.Availabilities, nil
}

// CreateBooking creates a booking; the platform assigns id and version.
func (c *Client) CreateBooking(ctx context.Context, booking Booking) (*Booking, error) {
	var resp bookingResponse
	if err := c.do(ctx, http.MethodPost, "/v2/bookings", nil, bookingRequest{Booking: booking}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return &resp.Booking, nil
}

// RetrieveBooking fetches a booking by id.
func (c *Client) RetrieveBooking(ctx context.Context, bookingID string) (*Booking, error) {
	var resp bookingResponse
	if err := c.do(ctx, http.MethodGet, "/v2/bookings/"+url.PathEscape(bookingID), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to retrieve booking %s: %w", bookingID, err)
	}
	return &resp.Booking, nil
}

// UpdateBooking applies a sparse update. The booking must carry the latest
// known version or the platform rejects the call.
func (c *Client) UpdateBooking(ctx context.Context, bookingID string, booking Booking) (*Booking, error) {
	var resp bookingResponse
	if err := c.do(ctx, http.MethodPut, "/v2/bookings/"+url.PathEscape(bookingID), nil, bookingRequest{Booking: booking}, &resp); err != nil {
		return nil, fmt.Errorf("failed to update booking %s: %w", bookingID, err)
	}
	return &resp.Booking, nil
}

// CancelBooking cancels a booking at the given version.
func (c *Client) CancelBooking(ctx context.Context, bookingID string, version int64) (*Booking, error) {
	req := cancelBookingRequest{BookingVersion: version}

	var resp bookingResponse
	if err := c.do(ctx, http.MethodPost, "/v2/bookings/"+url.PathEscape(bookingID)+"/cancel", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to cancel booking %s: %w", bookingID, err)
	}
	return &resp.Booking, nil
}

// ListBookings returns one page of bookings plus the cursor for the next.
func (c *Client) ListBookings(ctx context.Context, params ListBookingsParams, cursor string) ([]Booking, string, error) {
	query := url.Values{}
	if params.LocationID != "" {
		query.Set("location_id", params.LocationID)
	}
	if params.StartAtMin != "" {
		query.Set("start_at_min", params.StartAtMin)
	}
	if params.StartAtMax != "" {
		query.Set("start_at_max", params.StartAtMax)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var resp listBookingsResponse
	if err := c.do(ctx, http.MethodGet, "/v2/bookings", query, nil, &resp); err != nil {
		return nil, "", fmt.Errorf("failed to list bookings: %w", err)
	}

	return resp.Bookings, resp.Cursor, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Square-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var envelope struct {
			Errors []APIError `json:"errors"`
		}
		if err := json.Unmarshal(data, &envelope); err == nil {
			apiErr.Errors = envelope.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
