package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joshua-takyi/bookings/internal/helpers"
	"github.com/joshua-takyi/bookings/internal/models"
	"github.com/joshua-takyi/bookings/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	ownerID = "user-1"
	otherID = "user-2"
)

var brt = time.FixedZone("BRT", -3*60*60)

type stubBookings struct {
	booking   *models.Booking
	err       error
	createdIn services.CreateBookingInput
	deleted   []string
}

func (s *stubBookings) CreateBooking(_ context.Context, in services.CreateBookingInput) (*models.Booking, error) {
	s.createdIn = in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Booking{ScheduleData: &in.Schedule, SessionData: models.NotScheduled()}, nil
}

func (s *stubBookings) FindBookingByScheduleID(context.Context, string) (*models.Booking, error) {
	if s.booking == nil {
		return nil, models.ErrScheduleNotFound
	}
	return s.booking, nil
}

func (s *stubBookings) UpdateBooking(context.Context, string, services.UpdateBookingInput) (*models.Booking, error) {
	return s.booking, s.err
}

func (s *stubBookings) FindBookingsByUser(_ context.Context, userID string) ([]*models.Booking, error) {
	return []*models.Booking{s.booking}, nil
}

func (s *stubBookings) FindAllBookingsForAdmin(context.Context) ([]*models.Booking, error) {
	return []*models.Booking{s.booking}, nil
}

func (s *stubBookings) DeleteBooking(_ context.Context, paymentID, sessionID, scheduleID string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = []string{paymentID, sessionID, scheduleID}
	return nil
}

type stubSchedules struct {
	schedules []*models.Schedule
	slots     []string
	err       error
	created   *models.Schedule
	from      time.Time
	to        *time.Time
	slotDate  time.Time
}

func (s *stubSchedules) Create(_ context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	s.created = schedule
	if s.err != nil {
		return nil, s.err
	}
	return schedule, nil
}

func (s *stubSchedules) Read(context.Context) ([]*models.Schedule, error) {
	return s.schedules, s.err
}

func (s *stubSchedules) ReadOne(context.Context, string) (*models.Schedule, error) {
	if len(s.schedules) == 0 {
		return nil, nil
	}
	return s.schedules[0], nil
}

func (s *stubSchedules) FindByUserID(_ context.Context, userID string) ([]*models.Schedule, error) {
	out := make([]*models.Schedule, 0)
	for _, sc := range s.schedules {
		if sc.UserID == userID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *stubSchedules) FindByDate(_ context.Context, start time.Time, end *time.Time) ([]*models.Schedule, error) {
	s.from, s.to = start, end
	return s.schedules, s.err
}

func (s *stubSchedules) Update(_ context.Context, _ string, _ models.ScheduleUpdate) (*models.Schedule, error) {
	return s.schedules[0], s.err
}

func (s *stubSchedules) Delete(context.Context, string) (*models.Schedule, error) {
	return s.schedules[0], s.err
}

func (s *stubSchedules) FilterAvailableSlots(_ context.Context, date time.Time, candidates []string) ([]string, error) {
	s.slotDate = date
	s.slots = candidates
	if s.err != nil {
		return nil, s.err
	}
	return candidates[:1], nil
}

type stubNotifications struct{}

func (stubNotifications) FindByUserID(_ context.Context, userID string) ([]*models.Notification, error) {
	return []*models.Notification{{UserID: userID, Message: "hello"}}, nil
}

func (stubNotifications) MarkRead(context.Context, string, string) (*models.Notification, error) {
	return nil, models.NewNotFoundError("notification not found")
}

// asUser stands in for AuthMiddleware. An empty id leaves the request anonymous.
func asUser(id, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set(helpers.ContextUserKey, helpers.NewUserClaims(&helpers.CustomClaims{
				Role:             role,
				RegisteredClaims: jwt.RegisteredClaims{Subject: id},
			}))
		}
		c.Next()
	}
}

func newRouter(b BookingManager, s ScheduleManager, id, role string) *gin.Engine {
	r := gin.New()
	r.Use(asUser(id, role))
	r.POST("/booking", CreateBooking(b))
	r.GET("/booking", ListMyBookings(b))
	r.GET("/booking/:scheduleId", GetBooking(b))
	r.PUT("/booking/:scheduleId", UpdateBooking(b))
	r.POST("/booking/Delete", DeleteBooking(b))
	r.POST("/schedules", CreateSchedule(s))
	r.GET("/schedules", ListSchedules(s))
	r.POST("/schedules/calendar", SchedulesByDate(s, brt))
	r.POST("/schedules/filter-slots", FilterSlots(s, brt))
	r.GET("/schedules/:id", GetSchedule(s))
	r.PUT("/schedules/:id", UpdateSchedule(s))
	r.DELETE("/schedules/:id", DeleteSchedule(s))
	r.GET("/notifications", ListNotifications(stubNotifications{}))
	r.PATCH("/notifications/:id/read", MarkNotificationRead(stubNotifications{}))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.ApiResponse {
	t.Helper()
	var res models.ApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return res
}

func ownedBooking(userID string) *models.Booking {
	return &models.Booking{
		ScheduleData: &models.Schedule{ID: primitive.NewObjectID(), UserID: userID},
		SessionData:  models.NotScheduled(),
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewConflictError("taken"), http.StatusConflict},
		{models.ErrScheduleNotFound, http.StatusNotFound},
		{models.NewPartialFailureError("session", []string{"schedule"}, errors.New("boom")), http.StatusBadGateway},
		{models.ErrBookingDeleteFailed, http.StatusBadGateway},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCreateBookingUsesTokenOwner(t *testing.T) {
	b := &stubBookings{}
	r := newRouter(b, &stubSchedules{}, ownerID, "")

	body := `{"scheduleData":{"user_id":"someone-else","start_date":"2024-03-04T10:00:00-03:00","end_date":"2024-03-04T11:00:00-03:00","status":"agendado"},"paymentData":{"price":150}}`
	w := do(r, http.MethodPost, "/booking", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if b.createdIn.Schedule.UserID != ownerID {
		t.Errorf("owner = %q, want %q", b.createdIn.Schedule.UserID, ownerID)
	}
	if b.createdIn.Schedule.Status != models.SchedulePending {
		t.Errorf("status = %q, a user booking starts pending", b.createdIn.Schedule.Status)
	}
	if b.createdIn.Payment.Price != 150 {
		t.Errorf("price = %v", b.createdIn.Payment.Price)
	}
}

func TestOnlyAdminsSetBookingStatus(t *testing.T) {
	body := `{"scheduleData":{"start_date":"2024-03-04T10:00:00-03:00","end_date":"2024-03-04T11:00:00-03:00","status":"%s"},"paymentData":{"price":150}}`

	for _, status := range []string{"scheduled", "completed", "concluído"} {
		b := &stubBookings{}
		w := do(newRouter(b, &stubSchedules{}, ownerID, ""), http.MethodPost, "/booking", fmt.Sprintf(body, status))
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if b.createdIn.Schedule.Status != models.SchedulePending {
			t.Errorf("user sent %q, service got %q; want pending", status, b.createdIn.Schedule.Status)
		}
	}

	b := &stubBookings{}
	w := do(newRouter(b, &stubSchedules{}, otherID, helpers.RoleAdmin), http.MethodPost, "/booking", fmt.Sprintf(body, "agendado"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if b.createdIn.Schedule.Status != models.ScheduleScheduled {
		t.Errorf("admin status = %q, want legacy alias normalized", b.createdIn.Schedule.Status)
	}
}

func TestOnlyAdminsChangeBookingStatus(t *testing.T) {
	b := &stubBookings{booking: ownedBooking(ownerID)}

	tests := []struct {
		name string
		role string
		body string
		want int
	}{
		{"user confirms", "", `{"scheduleData":{"status":"scheduled"}}`, http.StatusForbidden},
		{"user refunds", "", `{"scheduleData":{"status":"refunded"}}`, http.StatusForbidden},
		{"user cancels", "", `{"scheduleData":{"status":"cancelled"}}`, http.StatusOK},
		{"user reschedules", "", `{"scheduleData":{"start_date":"2024-03-05T10:00:00-03:00"}}`, http.StatusOK},
		{"admin confirms", helpers.RoleAdmin, `{"scheduleData":{"status":"scheduled"}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(b, &stubSchedules{}, ownerID, tt.role), http.MethodPut, "/booking/abc", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestOnlyAdminsSetScheduleStatus(t *testing.T) {
	s := &stubSchedules{schedules: []*models.Schedule{{UserID: ownerID}}}
	body := `{"start_date":"2024-03-04T10:00:00-03:00","end_date":"2024-03-04T11:00:00-03:00","status":"scheduled"}`

	if w := do(newRouter(&stubBookings{}, s, ownerID, ""), http.MethodPost, "/schedules", body); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if s.created.Status != models.SchedulePending {
		t.Errorf("user schedule status = %q, want pending", s.created.Status)
	}

	if w := do(newRouter(&stubBookings{}, s, ownerID, helpers.RoleAdmin), http.MethodPost, "/schedules", body); w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if s.created.Status != models.ScheduleScheduled {
		t.Errorf("admin schedule status = %q, want scheduled", s.created.Status)
	}

	if w := do(newRouter(&stubBookings{}, s, ownerID, ""), http.MethodPut, "/schedules/abc", `{"status":"completed"}`); w.Code != http.StatusForbidden {
		t.Errorf("user status change = %d, want 403", w.Code)
	}
	if w := do(newRouter(&stubBookings{}, s, ownerID, helpers.RoleAdmin), http.MethodPut, "/schedules/abc", `{"status":"completed"}`); w.Code != http.StatusOK {
		t.Errorf("admin status change = %d, want 200", w.Code)
	}
}

func TestCreateBookingErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
		kind models.ErrorKind
	}{
		{"missing payment", `{"scheduleData":{}}`, nil, http.StatusBadRequest, ""},
		{"conflict", `{"scheduleData":{},"paymentData":{"price":1}}`, models.NewConflictError("slot already booked"), http.StatusConflict, models.KindConflict},
		{"partial", `{"scheduleData":{},"paymentData":{"price":1}}`, models.NewPartialFailureError("calendar", []string{"schedule", "payment", "session"}, errors.New("boom")), http.StatusBadGateway, models.KindPartialFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&stubBookings{err: tt.err}, &stubSchedules{}, ownerID, "")
			w := do(r, http.MethodPost, "/booking", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if res := decode(t, w); res.Success || res.Kind != tt.kind {
				t.Errorf("response = %+v", res)
			}
		})
	}

	w := do(newRouter(&stubBookings{err: models.NewPartialFailureError("calendar", []string{"schedule"}, errors.New("boom"))}, &stubSchedules{}, ownerID, ""),
		http.MethodPost, "/booking", `{"scheduleData":{},"paymentData":{"price":1}}`)
	if res := decode(t, w); res.Step != "calendar" {
		t.Errorf("step = %q, want calendar", res.Step)
	}
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	r := newRouter(&stubBookings{err: errors.New("mongo: connection refused")}, &stubSchedules{}, ownerID, "")
	w := do(r, http.MethodPost, "/booking", `{"scheduleData":{},"paymentData":{"price":1}}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "mongo") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestBookingOwnership(t *testing.T) {
	b := &stubBookings{booking: ownedBooking(ownerID)}

	if w := do(newRouter(b, &stubSchedules{}, ownerID, ""), http.MethodGet, "/booking/abc", ""); w.Code != http.StatusOK {
		t.Errorf("owner status = %d, want 200", w.Code)
	}
	if w := do(newRouter(b, &stubSchedules{}, otherID, ""), http.MethodGet, "/booking/abc", ""); w.Code != http.StatusForbidden {
		t.Errorf("other user status = %d, want 403", w.Code)
	}
	if w := do(newRouter(b, &stubSchedules{}, otherID, helpers.RoleAdmin), http.MethodGet, "/booking/abc", ""); w.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", w.Code)
	}
	if w := do(newRouter(b, &stubSchedules{}, "", ""), http.MethodGet, "/booking/abc", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", w.Code)
	}
	if w := do(newRouter(&stubBookings{}, &stubSchedules{}, ownerID, ""), http.MethodGet, "/booking/abc", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing booking status = %d, want 404", w.Code)
	}
	if w := do(newRouter(b, &stubSchedules{}, otherID, ""), http.MethodPut, "/booking/abc", `{"scheduleData":{}}`); w.Code != http.StatusForbidden {
		t.Errorf("update by other user status = %d, want 403", w.Code)
	}
}

func TestDeleteBookingHandler(t *testing.T) {
	b := &stubBookings{booking: ownedBooking(ownerID)}
	r := newRouter(b, &stubSchedules{}, ownerID, "")

	if w := do(r, http.MethodPost, "/booking/Delete", `{"paymentId":"p"}`); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w := do(r, http.MethodPost, "/booking/Delete", `{"paymentId":"p","sessionId":"s","scheduleId":"x"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.Join(b.deleted, ",") != "p,s,x" {
		t.Errorf("deleted = %v", b.deleted)
	}

	b.err = models.ErrBookingDeleteFailed
	w = do(r, http.MethodPost, "/booking/Delete", `{"paymentId":"p","scheduleId":"x"}`)
	if w.Code != http.StatusBadGateway || decode(t, w).Error != "failed to delete booking" {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestListSchedulesByRole(t *testing.T) {
	s := &stubSchedules{schedules: []*models.Schedule{
		{UserID: ownerID}, {UserID: otherID}, {External: true},
	}}

	w := do(newRouter(&stubBookings{}, s, ownerID, ""), http.MethodGet, "/schedules", "")
	if got := decode(t, w).Data.([]interface{}); len(got) != 1 {
		t.Errorf("user sees %d schedules, want 1", len(got))
	}

	w = do(newRouter(&stubBookings{}, s, otherID, helpers.RoleAdmin), http.MethodGet, "/schedules", "")
	if got := decode(t, w).Data.([]interface{}); len(got) != 3 {
		t.Errorf("admin sees %d schedules, want 3", len(got))
	}
}

func TestPublicCalendarRedactsOwners(t *testing.T) {
	s := &stubSchedules{schedules: []*models.Schedule{
		{ID: primitive.NewObjectID(), UserID: ownerID, Status: models.ScheduleScheduled},
	}}
	r := newRouter(&stubBookings{}, s, "", "")

	w := do(r, http.MethodPost, "/schedules/calendar", `{"start_date":"2024-03-04T00:00:00-03:00"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), ownerID) {
		t.Errorf("owner leaked to anonymous caller: %s", w.Body.String())
	}

	if w := do(r, http.MethodPost, "/schedules/calendar", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing start_date status = %d, want 400", w.Code)
	}
}

func TestSchedulesByDateAcceptsCalendarDays(t *testing.T) {
	s := &stubSchedules{}
	r := newRouter(&stubBookings{}, s, "", "")

	w := do(r, http.MethodPost, "/schedules/calendar", `{"start_date":"2024-03-04","end_date":"2024-03-08"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if want := time.Date(2024, 3, 4, 0, 0, 0, 0, brt); !s.from.Equal(want) {
		t.Errorf("start = %v, want %v", s.from, want)
	}
	if want := time.Date(2024, 3, 8, 0, 0, 0, 0, brt); s.to == nil || !s.to.Equal(want) {
		t.Errorf("end = %v, want %v", s.to, want)
	}

	w = do(r, http.MethodPost, "/schedules/calendar", `{"start_date":"04/03/2024"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(decode(t, w).Error, "invalid date") {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestFilterSlotsHandler(t *testing.T) {
	s := &stubSchedules{}
	r := newRouter(&stubBookings{}, s, "", "")

	w := do(r, http.MethodPost, "/schedules/filter-slots", `{"date":"2024-03-04T00:00:00-03:00","slots":[" 09:00 - 10:00 ",""," 10:00 - 11:00"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.Join(s.slots, "|") != "09:00 - 10:00|10:00 - 11:00" {
		t.Errorf("candidates = %q", s.slots)
	}

	w = do(r, http.MethodPost, "/schedules/filter-slots", `{"date":"2024-03-04","slots":["09:00 - 10:00"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("date-only status = %d, body %s", w.Code, w.Body.String())
	}
	if want := time.Date(2024, 3, 4, 0, 0, 0, 0, brt); !s.slotDate.Equal(want) {
		t.Errorf("date = %v, want %v", s.slotDate, want)
	}

	if w := do(r, http.MethodPost, "/schedules/filter-slots", `{"slots":["09:00 - 10:00"]}`); w.Code != http.StatusBadRequest || decode(t, w).Error != "date is required" {
		t.Errorf("missing date status = %d, body %s", w.Code, w.Body.String())
	}

	s.err = models.NewValidationError("malformed slot")
	if w := do(r, http.MethodPost, "/schedules/filter-slots", `{"date":"2024-03-04T00:00:00-03:00","slots":["x"]}`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed slot status = %d, want 400", w.Code)
	}
}

func TestScheduleOwnership(t *testing.T) {
	s := &stubSchedules{schedules: []*models.Schedule{{UserID: ownerID}}}

	if w := do(newRouter(&stubBookings{}, s, otherID, ""), http.MethodDelete, "/schedules/abc", ""); w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if w := do(newRouter(&stubBookings{}, s, ownerID, ""), http.MethodDelete, "/schedules/abc", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w := do(newRouter(&stubBookings{}, &stubSchedules{}, ownerID, ""), http.MethodGet, "/schedules/abc", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateScheduleConflict(t *testing.T) {
	s := &stubSchedules{err: models.NewConflictError("pending schedule exists")}
	w := do(newRouter(&stubBookings{}, s, ownerID, ""), http.MethodPost, "/schedules", `{"start_date":"2024-03-04T10:00:00-03:00","end_date":"2024-03-04T11:00:00-03:00"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestNotifications(t *testing.T) {
	r := newRouter(&stubBookings{}, &stubSchedules{}, ownerID, "")

	w := do(r, http.MethodGet, "/notifications", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), ownerID) {
		t.Errorf("status = %d, body %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPatch, "/notifications/abc/read", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
