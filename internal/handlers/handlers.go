package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bookings/internal/helpers"
	"github.com/joshua-takyi/bookings/internal/middleware"
	"github.com/joshua-takyi/bookings/internal/models"
	"github.com/joshua-takyi/bookings/internal/services"
)

// BookingManager is implemented by *services.BookingService.
type BookingManager interface {
	CreateBooking(ctx context.Context, in services.CreateBookingInput) (*models.Booking, error)
	FindBookingByScheduleID(ctx context.Context, scheduleID string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, scheduleID string, in services.UpdateBookingInput) (*models.Booking, error)
	FindBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	FindAllBookingsForAdmin(ctx context.Context) ([]*models.Booking, error)
	DeleteBooking(ctx context.Context, paymentID, sessionID, scheduleID string) error
}

// ScheduleManager is implemented by *services.ScheduleService.
type ScheduleManager interface {
	Create(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error)
	Read(ctx context.Context) ([]*models.Schedule, error)
	ReadOne(ctx context.Context, id string) (*models.Schedule, error)
	FindByUserID(ctx context.Context, userID string) ([]*models.Schedule, error)
	FindByDate(ctx context.Context, start time.Time, end *time.Time) ([]*models.Schedule, error)
	Update(ctx context.Context, id string, update models.ScheduleUpdate) (*models.Schedule, error)
	Delete(ctx context.Context, id string) (*models.Schedule, error)
	FilterAvailableSlots(ctx context.Context, date time.Time, candidates []string) ([]string, error)
}

// NotificationReader is implemented by *services.NotificationService.
type NotificationReader interface {
	FindByUserID(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
}

func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindConflict:
		return http.StatusConflict
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindPartialFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status its kind maps to. Errors without a kind are
// attached to the context so ErrorHandler logs them, and their text is not exposed.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		res := models.ErrorResponse("Internal server error")
		res.RequestID, _ = c.Get("request_id")
		c.JSON(status, res)
		return
	}
	if status == http.StatusBadGateway {
		_ = c.Error(err)
	}
	c.JSON(status, models.AppErrorResponse(err))
}

func currentUser(c *gin.Context) (*helpers.UserClaims, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
	}
	return user, ok
}

func forbid(c *gin.Context) {
	c.JSON(http.StatusForbidden, models.ErrorResponse("you do not have access to this resource"))
}

// pathID trims spaces and stray quotes clients sometimes send around ids.
func pathID(c *gin.Context, name string) string {
	return strings.Trim(strings.TrimSpace(c.Param(name)), "\"'")
}

// statusAllowed reports whether user may put a booking in status. Admins set any
// status; owners may only cancel.
func statusAllowed(user *helpers.UserClaims, status *models.ScheduleStatus) bool {
	if status == nil || user.IsAdmin() {
		return true
	}
	return *status == models.ScheduleCancelled
}

const dateOnly = "2006-01-02"

var (
	errDateRequired = models.NewValidationError("date is required")
	errInvalidDate  = models.NewValidationError("invalid date, use YYYY-MM-DD or RFC 3339")
)

// parseDate accepts an RFC 3339 timestamp or a calendar day, which is read as
// midnight in loc.
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errDateRequired
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateOnly, raw, loc)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return t, nil
}

type dateRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

func (r dateRangeRequest) parse(loc *time.Location) (time.Time, *time.Time, error) {
	start, err := parseDate(r.StartDate, loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	if strings.TrimSpace(r.EndDate) == "" {
		return start, nil, nil
	}
	end, err := parseDate(r.EndDate, loc)
	if err != nil {
		return time.Time{}, nil, err
	}
	return start, &end, nil
}
