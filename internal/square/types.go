package square

import "fmt"

// Location mirrors Square's location object.
type Location struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     *Address `json:"address,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Status      string   `json:"status,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
}

// Address is the subset of Square's address we surface.
type Address struct {
	AddressLine1       string `json:"address_line_1,omitempty"`
	Locality           string `json:"locality,omitempty"`
	AdministrativeArea string `json:"administrative_district_level_1,omitempty"`
	PostalCode         string `json:"postal_code,omitempty"`
}

// Catalog object types we request.
const (
	CatalogTypeItem     = "ITEM"
	CatalogTypeCategory = "CATEGORY"
)

// CatalogObject is Square's polymorphic catalog envelope; exactly one of
// the *Data fields is set depending on Type.
type CatalogObject struct {
	Type              string             `json:"type"`
	ID                string             `json:"id"`
	Version           int64              `json:"version,omitempty"`
	ItemData          *ItemData          `json:"item_data,omitempty"`
	CategoryData      *CategoryData      `json:"category_data,omitempty"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
}

// ItemData is the payload of an ITEM catalog object.
type ItemData struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Variations  []CatalogObject `json:"variations,omitempty"`
}

// CategoryData is the payload of a CATEGORY catalog object.
type CategoryData struct {
	Name string `json:"name"`
}

// ItemVariationData is the payload of an ITEM_VARIATION catalog object.
type ItemVariationData struct {
	ItemID          string `json:"item_id,omitempty"`
	Name            string `json:"name"`
	PriceMoney      *Money `json:"price_money,omitempty"`
	ServiceDuration int64  `json:"service_duration,omitempty"`
}

// Money is an amount in the currency's smallest unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// AppointmentSegment is one bookable unit within a booking: a service
// variation performed by a team member for a duration.
type AppointmentSegment struct {
	ServiceVariationID      string `json:"service_variation_id"`
	ServiceVariationVersion int64  `json:"service_variation_version,omitempty"`
	TeamMemberID            string `json:"team_member_id"`
	DurationMinutes         int    `json:"duration_minutes,omitempty"`
}

// Availability is one open slot returned by the availability search.
type Availability struct {
	StartAt    string               `json:"start_at"`
	LocationID string               `json:"location_id"`
	Segments   []AppointmentSegment `json:"appointment_segments"`
}

// SegmentFilter narrows an availability search to services/team members.
type SegmentFilter struct {
	ServiceVariationID string              `json:"service_variation_id"`
	TeamMemberIDFilter *TeamMemberIDFilter `json:"team_member_id_filter,omitempty"`
}

// TeamMemberIDFilter restricts a segment filter to specific team members.
type TeamMemberIDFilter struct {
	Any []string `json:"any,omitempty"`
}

// Booking mirrors Square's booking object. Version implements the
// platform's optimistic concurrency: updates and cancels must present the
// latest version.
type Booking struct {
	ID              string               `json:"id,omitempty"`
	Version         int64                `json:"version,omitempty"`
	Status          string               `json:"status,omitempty"`
	StartAt         string               `json:"start_at"`
	LocationID      string               `json:"location_id"`
	CustomerID      string               `json:"customer_id,omitempty"`
	CustomerNote    string               `json:"customer_note,omitempty"`
	SellerNote      string               `json:"seller_note,omitempty"`
	Segments        []AppointmentSegment `json:"appointment_segments"`
	CreatedAt       string               `json:"created_at,omitempty"`
	UpdatedAt       string               `json:"updated_at,omitempty"`
	AllDay          bool                 `json:"all_day,omitempty"`
	TransitionTimeM int                  `json:"transition_time_minutes,omitempty"`
}

// ListBookingsParams filters a bookings listing.
type ListBookingsParams struct {
	LocationID string
	StartAtMin string
	StartAtMax string
	Limit      int
}

// APIError is a single error entry from Square's error envelope.
type APIError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail,omitempty"`
}

// Error implements the error interface for a Square API failure.
type Error struct {
	StatusCode int
	Errors     []APIError
}

func (e *Error) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("square returned %d: %s (%s)", e.StatusCode, e.Errors[0].Code, e.Errors[0].Detail)
	}
	return fmt.Sprintf("square returned %d", e.StatusCode)
}

// IsVersionMismatch reports whether the failure was an optimistic
// concurrency rejection (stale booking version).
func (e *Error) IsVersionMismatch() bool {
	for _, apiErr := range e.Errors {
		if apiErr.Code == "VERSION_MISMATCH" || apiErr.Code == "CONFLICT" {
			return true
		}
	}
	return false
}

type listLocationsResponse struct {
	Locations []Location `json:"locations"`
	Errors    []APIError `json:"errors,omitempty"`
}

type listCatalogResponse struct {
	Objects []CatalogObject `json:"objects"`
	Cursor  string          `json:"cursor,omitempty"`
	Errors  []APIError      `json:"errors,omitempty"`
}

type searchAvailabilityRequest struct {
	Query availabilityQuery `json:"query"`
}

type availabilityQuery struct {
	Filter availabilityFilter `json:"filter"`
}

type availabilityFilter struct {
	StartAtRange   timeRange       `json:"start_at_range"`
	LocationID     string          `json:"location_id,omitempty"`
	SegmentFilters []SegmentFilter `json:"segment_filters,omitempty"`
}

type timeRange struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

type searchAvailabilityResponse struct {
	Availabilities []Availability `json:"availabilities"`
	Errors         []APIError     `json:"errors,omitempty"`
}

type bookingRequest struct {
	Booking Booking `json:"booking"`
}

type bookingResponse struct {
	Booking Booking    `json:"booking"`
	Errors  []APIError `json:"errors,omitempty"`
}

type cancelBookingRequest struct {
	BookingVersion int64 `json:"booking_version"`
}

type listBookingsResponse struct {
	Bookings []Booking  `json:"bookings"`
	Cursor   string     `json:"cursor,omitempty"`
	Errors   []APIError `json:"errors,omitempty"`
}
