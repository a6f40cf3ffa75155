package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bookings/internal/helpers"
	"github.com/joshua-takyi/bookings/internal/models"
)

type filterSlotsRequest struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

func CreateSchedule(s ScheduleManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var schedule models.Schedule
		if err := c.ShouldBindJSON(&schedule); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}
		schedule.UserID = user.UserID
		schedule.GoogleEventID = ""
		if !user.IsAdmin() {
			schedule.Status = models.SchedulePending
		}

		created, err := s.Create(c.Request.Context(), &schedule)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(created, "Schedule created successfully"))
	}
}

// ListSchedules returns every schedule merged with the calendar for admins and the
// caller's own schedules otherwise.
func ListSchedules(s ScheduleManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var (
			schedules []*models.Schedule
			err       error
		)
		if user.IsAdmin() {
			schedules, err = s.Read(c.Request.Context())
		} else {
			schedules, err = s.FindByUserID(c.Request.Context(), user.UserID)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(schedules, ""))
	}
}

// SchedulesByDate serves both the public availability calendar and the authenticated
// date search. Non-admin callers only see the time windows of other users' bookings.
// Calendar days are read in loc.
func SchedulesByDate(s ScheduleManager, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dateRangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request body"))
			return
		}
		start, end, err := req.parse(loc)
		if err != nil {
			respondError(c, err)
			return
		}

		schedules, err := s.FindByDate(c.Request.Context(), start, end)
		if err != nil {
			respondError(c, err)
			return
		}

		user, _ := c.Get(helpers.ContextUserKey)
		claims, _ := user.(*helpers.UserClaims)
		c.JSON(http.StatusOK, models.SuccessResponse(redact(schedules, claims), ""))
	}
}

func redact(schedules []*models.Schedule, user *helpers.UserClaims) []*models.Schedule {
	if user != nil && user.IsAdmin() {
		return schedules
	}
	out := make([]*models.Schedule, 0, len(schedules))
	for _, s := range schedules {
		if user != nil && s.UserID != "" && user.IsOwner(s.UserID) {
			out = append(out, s)
			continue
		}
		out = append(out, &models.Schedule{
			StartDate: s.StartDate,
			EndDate:   s.EndDate,
			Status:    s.Status,
			External:  s.External,
		})
	}
	return out
}

func FilterSlots(s ScheduleManager, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req filterSlotsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request body"))
			return
		}
		date, err := parseDate(req.Date, loc)
		if err != nil {
			respondError(c, err)
			return
		}

		available, err := s.FilterAvailableSlots(c.Request.Context(), date, helpers.StringTrim(req.Slots))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(available, ""))
	}
}

func loadOwnedSchedule(c *gin.Context, s ScheduleManager, user *helpers.UserClaims, id string) *models.Schedule {
	schedule, err := s.ReadOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil
	}
	if schedule == nil {
		respondError(c, models.ErrScheduleNotFound)
		return nil
	}
	if !user.CanAccess(schedule.UserID) {
		forbid(c)
		return nil
	}
	return schedule
}

func GetSchedule(s ScheduleManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		schedule := loadOwnedSchedule(c, s, user, pathID(c, "id"))
		if schedule == nil {
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(schedule, ""))
	}
}

func UpdateSchedule(s ScheduleManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		id := pathID(c, "id")

		var update models.ScheduleUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
			return
		}
		if !statusAllowed(user, update.Status) {
			forbid(c)
			return
		}
		if loadOwnedSchedule(c, s, user, id) == nil {
			return
		}

		updated, err := s.Update(c.Request.Context(), id, update)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(updated, "Schedule updated successfully"))
	}
}

func DeleteSchedule(s ScheduleManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		id := pathID(c, "id")
		if loadOwnedSchedule(c, s, user, id) == nil {
			return
		}

		deleted, err := s.Delete(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(deleted, "Schedule deleted successfully"))
	}
}
