// controllers/booking_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/middleware"
	"rental-backend/models"
	"rental-backend/services"
	"rental-backend/utils"
)

type BookingController struct {
	BookingSvc *services.BookingService
}

func NewBookingController(svc *services.BookingService) *BookingController {
	return &BookingController{BookingSvc: svc}
}

// CreateBooking handles POST /api/listings/:id/bookings.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var form services.BookingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	b, err := bc.BookingSvc.CreateBooking(c.Request.Context(), middleware.CurrentUser(c), id, form)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, b)
}

// GetBookings returns bookings on the caller's listings for owners and
// admins, and the caller's own bookings for renters.
func (bc *BookingController) GetBookings(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		respondError(c, services.ErrUnauthenticated)
		return
	}
	var (
		bookings []models.Booking
		err      error
	)
	if u.Role.CanManageListings() && c.Query("as") != "renter" {
		bookings, err = bc.BookingSvc.ListOwnerBookings(c.Request.Context(), u.ID)
	} else {
		bookings, err = bc.BookingSvc.ListRenterBookings(c.Request.Context(), u.ID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, bookings)
}

func (bc *BookingController) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var p statusPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	b, err := bc.BookingSvc.UpdateBookingStatus(c.Request.Context(), middleware.CurrentUser(c), id, models.BookingStatus(p.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, b)
}

func (bc *BookingController) CancelBooking(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	b, err := bc.BookingSvc.CancelBooking(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, b)
}
