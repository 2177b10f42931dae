package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ovela/onboard-service/internal/dto"
	"github.com/ovela/onboard-service/internal/service"
	"github.com/ovela/onboard-service/internal/square"
)

// BookingHandler handles booking integration requests
type BookingHandler struct {
	bookingService service.BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService service.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// SearchAvailability searches open slots. An empty list is a valid
// success response.
func (h *BookingHandler) SearchAvailability(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.AvailabilitySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	slots, err := h.bookingService.SearchAvailability(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AvailabilityResponse{
		Availabilities: slots,
	})
}

// Create creates a booking
func (h *BookingHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.BookingResponse{
		Booking: booking,
	})
}

// Get returns one booking with its current version, so callers can
// refresh before an update or cancel.
func (h *BookingHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BookingResponse{
		Booking: booking,
	})
}

// Update patches a booking at the caller's latest known version
func (h *BookingHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookingService.UpdateBooking(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BookingResponse{
		Booking: booking,
	})
}

// Cancel cancels a booking at the caller's latest known version
func (h *BookingHandler) Cancel(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), userID, c.Param("id"), *req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BookingResponse{
		Booking: booking,
	})
}

// List returns bookings. One page by default; all=true drains the cursor
// and should be bounded by a date range.
func (h *BookingHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := square.ListBookingsParams{
		LocationID: c.Query("location_id"),
		StartAtMin: c.Query("start_at_min"),
		StartAtMax: c.Query("start_at_max"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Message: "limit must be a positive integer",
			})
			return
		}
		params.Limit = n
	}

	if c.Query("all") == "true" {
		bookings, err := h.bookingService.ListAllBookings(c.Request.Context(), userID, params)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.ListBookingsResponse{Bookings: bookings})
		return
	}

	bookings, cursor, err := h.bookingService.ListBookings(c.Request.Context(), userID, params, c.Query("cursor"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListBookingsResponse{
		Bookings: bookings,
		Cursor:   cursor,
	})
}
