package service

import (
	"context"
	"testing"
	"time"

	"github.com/ovela/onboard-service/internal/domain"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/nango"
	"github.com/ovela/onboard-service/internal/repository"
	"github.com/ovela/onboard-service/internal/square"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBookingFixture(t *testing.T, sq *fakeSquare) (BookingService, *fakeConnectionRepo, *fakeNango) {
	t.Helper()

	connections := newFakeConnectionRepo()
	integrations := &fakeIntegrationRepo{integrations: []*domain.Integration{
		{ID: "int-1", ProviderKey: "square-sandbox", Enabled: true},
	}}
	broker := &fakeNango{connection: &nango.Connection{
		Credentials: nango.Credentials{AccessToken: "sq-token"},
	}}

	svc := NewBookingService(
		connections, integrations, broker,
		func(string) SquareAPI { return sq },
		"square-sandbox", testRedis(), nopLogger(), testMetrics(t),
		"TM-DEFAULT",
	)

	return svc, connections, broker
}

func searchWindow() *dto.AvailabilitySearchRequest {
	return &dto.AvailabilitySearchRequest{
		StartAt:    time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC),
		LocationID: "L1",
	}
}

func TestSearchAvailability_EmptyIsNotAnError(t *testing.T) {
	sq := &fakeSquare{availabilities: []square.Availability{}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	slots, err := svc.SearchAvailability(context.Background(), "u1", searchWindow())
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestSearchAvailability_NoConnection(t *testing.T) {
	sq := &fakeSquare{}
	svc, _, broker := newBookingFixture(t, sq)

	_, err := svc.SearchAvailability(context.Background(), "u1", searchWindow())
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, broker.getCalls)
	assert.Zero(t, sq.searchCalls)
}

func TestCreateBooking_FillsDefaultTeamMember(t *testing.T) {
	sq := &fakeSquare{booking: &square.Booking{ID: "bk1", Version: 0, Status: "ACCEPTED", StartAt: "2026-09-01T10:00:00Z"}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	req := &dto.CreateBookingRequest{
		StartAt:    time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		LocationID: "L1",
		Segments: []square.AppointmentSegment{
			{ServiceVariationID: "V1", ServiceVariationVersion: 7},
			{ServiceVariationID: "V2", TeamMemberID: "TM-9"},
		},
	}

	created, err := svc.CreateBooking(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "bk1", created.ID)

	require.Len(t, sq.lastCreated.Segments, 2)
	assert.Equal(t, "TM-DEFAULT", sq.lastCreated.Segments[0].TeamMemberID)
	assert.Equal(t, "TM-9", sq.lastCreated.Segments[1].TeamMemberID)

	// The caller's request must not be mutated by the default fill-in.
	assert.Empty(t, req.Segments[0].TeamMemberID)
}

func TestGetBooking_ReturnsCurrentVersion(t *testing.T) {
	sq := &fakeSquare{booking: &square.Booking{ID: "bk1", Version: 5, Status: "ACCEPTED"}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	booking, err := svc.GetBooking(context.Background(), "u1", "bk1")
	require.NoError(t, err)

	assert.Equal(t, int64(5), booking.Version)
	assert.Equal(t, 1, sq.retrieveCalls)
}

func TestUpdateBooking_StaleVersion(t *testing.T) {
	sq := &fakeSquare{err: &square.Error{
		StatusCode: 400,
		Errors:     []square.APIError{{Category: "INVALID_REQUEST_ERROR", Code: "VERSION_MISMATCH"}},
	}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	note := "new note"
	version := int64(3)
	_, err := svc.UpdateBooking(context.Background(), "u1", "bk1", &dto.UpdateBookingRequest{
		Version:      &version,
		CustomerNote: &note,
	})
	require.ErrorIs(t, err, ErrStaleVersion)
}

func TestCancelBooking_StaleVersion(t *testing.T) {
	sq := &fakeSquare{err: &square.Error{
		StatusCode: 409,
		Errors:     []square.APIError{{Code: "CONFLICT"}},
	}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	_, err := svc.CancelBooking(context.Background(), "u1", "bk1", 1)
	require.ErrorIs(t, err, ErrStaleVersion)
}

func TestUpdateBooking_SparsePatch(t *testing.T) {
	sq := &fakeSquare{booking: &square.Booking{ID: "bk1", Version: 4}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	version := int64(3)
	_, err := svc.UpdateBooking(context.Background(), "u1", "bk1", &dto.UpdateBookingRequest{Version: &version})
	require.NoError(t, err)

	assert.Equal(t, int64(3), sq.lastUpdated.Version)
	assert.Empty(t, sq.lastUpdated.StartAt, "untouched fields stay zero")
	assert.Empty(t, sq.lastUpdated.CustomerNote)
}

func TestListAllBookings_DrainsCursor(t *testing.T) {
	sq := &fakeSquare{bookingPages: [][]square.Booking{
		{{ID: "bk1"}, {ID: "bk2"}},
		{{ID: "bk3"}},
	}}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	all, err := svc.ListAllBookings(context.Background(), "u1", square.ListBookingsParams{LocationID: "L1"})
	require.NoError(t, err)

	assert.Len(t, all, 3)
	assert.Equal(t, 2, sq.listCalls)
}

func TestListAllBookings_PageCap(t *testing.T) {
	sq := &fakeSquare{endlessCursor: true}
	svc, connections, _ := newBookingFixture(t, sq)
	activeConnection(connections, "u1")

	_, err := svc.ListAllBookings(context.Background(), "u1", square.ListBookingsParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narrow the date range")
	assert.Equal(t, maxBookingPages, sq.listCalls)
}
