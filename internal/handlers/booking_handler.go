package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bookings/internal/helpers"
	"github.com/joshua-takyi/bookings/internal/models"
	"github.com/joshua-takyi/bookings/internal/services"
)

type createBookingRequest struct {
	ScheduleData *models.Schedule              `json:"scheduleData" binding:"required"`
	PaymentData  *services.BookingPaymentInput `json:"paymentData" binding:"required"`
	SessionName  string                        `json:"sessionName"`
}

type deleteBookingRequest struct {
	PaymentID  string `json:"paymentId" binding:"required"`
	SessionID  string `json:"sessionId"`
	ScheduleID string `json:"scheduleId" binding:"required"`
}

func CreateBooking(b BookingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req createBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("Missing scheduleData or paymentData"))
			return
		}

		// the owner always comes from the token, and only admins book as confirmed
		req.ScheduleData.UserID = user.UserID
		if !user.IsAdmin() {
			req.ScheduleData.Status = models.SchedulePending
		}
		booking, err := b.CreateBooking(c.Request.Context(), services.CreateBookingInput{
			Schedule:    *req.ScheduleData,
			Payment:     *req.PaymentData,
			SessionName: req.SessionName,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(booking, "Booking created successfully"))
	}
}

func ListMyBookings(b BookingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		bookings, err := b.FindBookingsByUser(c.Request.Context(), user.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(bookings, ""))
	}
}

func ListAllBookings(b BookingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := b.FindAllBookingsForAdmin(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(bookings, ""))
	}
}

// loadOwnedBooking writes the error response itself and returns nil when the caller
// may not see the booking.
func loadOwnedBooking(c *gin.Context, b BookingManager, user *helpers.UserClaims, scheduleID string) *models.Booking {
	booking, err := b.FindBookingByScheduleID(c.Request.Context(), scheduleID)
	if err != nil {
		respondError(c, err)
		return nil
	}
	if !user.CanAccess(booking.ScheduleData.UserID) {
		forbid(c)
		return nil
	}
	return booking
}

func GetBooking(b BookingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		booking := loadOwnedBooking(c, b, user, pathID(c, "scheduleId"))
		if booking == nil {
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, ""))
	}
}

func UpdateBooking(b BookingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		scheduleID := pathID(c, "scheduleId")

		var req services.UpdateBookingInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}
		if !statusAllowed(user, req.Schedule.Status) {
			forbid(c)
			return
		}
		if loadOwnedBooking(c, b, user, scheduleID) == nil {
			return
		}

		booking, err := b.UpdateBooking(c.Request.Context(), scheduleID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking updated successfully"))
	}
}

func DeleteBooking(b BookingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req deleteBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("paymentId and scheduleId are required"))
			return
		}
		if loadOwnedBooking(c, b, user, req.ScheduleID) == nil {
			return
		}

		if err := b.DeleteBooking(c.Request.Context(), req.PaymentID, req.SessionID, req.ScheduleID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "Booking deleted successfully"))
	}
}
