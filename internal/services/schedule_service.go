package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/bookings/internal/calendar"
	"github.com/joshua-takyi/bookings/internal/models"
	"github.com/joshua-takyi/bookings/internal/slots"
)

type ScheduleService struct {
	scheduleRepo models.ScheduleRepo
	calendar     calendar.Calendar
	notifier     Notifier
	location     *time.Location
	logger       *slog.Logger
	now          func() time.Time
}

func NewScheduleService(scheduleRepo models.ScheduleRepo, cal calendar.Calendar, notifier Notifier, location *time.Location, logger *slog.Logger) *ScheduleService {
	if cal == nil {
		cal = calendar.Disabled{}
	}
	if location == nil {
		location = time.UTC
	}
	return &ScheduleService{
		scheduleRepo: scheduleRepo,
		calendar:     cal,
		notifier:     notifier,
		location:     location,
		logger:       logger,
		now:          time.Now,
	}
}

func (ss *ScheduleService) notify(ctx context.Context, s *models.Schedule, action scheduleAction) error {
	if _, err := ss.notifier.Notify(ctx, s.UserID, scheduleMessage(action, s.StartDate, ss.location)); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", action, err)
	}
	return nil
}

func (ss *ScheduleService) Create(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	if schedule.Status == "" {
		schedule.Status = models.SchedulePending
	}
	if err := models.Validate.Struct(schedule); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("invalid schedule data provided: %v", err))
	}
	if !schedule.StartDate.Before(schedule.EndDate) {
		return nil, models.NewValidationError("start date must be before end date")
	}
	switch schedule.StartDate.In(ss.location).Weekday() {
	case time.Saturday, time.Sunday:
		return nil, models.NewValidationError("start date must be a weekday")
	}

	taken, err := ss.FindByDate(ctx, schedule.StartDate, &schedule.EndDate)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, models.NewConflictError("slot already booked")
	}

	pending, err := ss.scheduleRepo.ListSchedules(ctx, models.ScheduleFilter{
		UserID: schedule.UserID,
		Status: models.SchedulePending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check pending schedules: %w", err)
	}
	if len(pending) > 0 {
		return nil, models.NewConflictError("pending schedule exists")
	}

	created, err := ss.scheduleRepo.CreateSchedule(ctx, schedule)
	if err != nil {
		return nil, err
	}

	if err := ss.notify(ctx, created, actionCreated); err != nil {
		return created, notificationFailed("schedule", err)
	}
	return created, nil
}

// Read returns every stored schedule plus external calendar events from now until
// the end of the year.
func (ss *ScheduleService) Read(ctx context.Context) ([]*models.Schedule, error) {
	schedules, err := ss.scheduleRepo.ListSchedules(ctx, models.ScheduleFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules: %w", err)
	}

	now := ss.now().In(ss.location)
	_, endOfYear := slots.DayBounds(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, ss.location))
	return ss.mergeExternal(ctx, schedules, now, endOfYear)
}

func (ss *ScheduleService) ReadOne(ctx context.Context, id string) (*models.Schedule, error) {
	return ss.scheduleRepo.GetScheduleByID(ctx, id)
}

func (ss *ScheduleService) FindByUserID(ctx context.Context, userID string) ([]*models.Schedule, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("user ID cannot be empty")
	}
	return ss.scheduleRepo.ListSchedules(ctx, models.ScheduleFilter{UserID: userID})
}

// FindByDate returns the schedules intersecting [start, end], or when end is nil the
// schedules starting on start's day. External calendar events in the same window are
// appended as availability-only rows.
func (ss *ScheduleService) FindByDate(ctx context.Context, start time.Time, end *time.Time) ([]*models.Schedule, error) {
	var (
		filter       models.ScheduleFilter
		windowStart  time.Time
		windowFinish time.Time
	)
	if end != nil {
		filter = models.ScheduleFilter{WindowStart: &start, WindowEnd: end}
		windowStart, windowFinish = start, *end
	} else {
		windowStart, windowFinish = slots.DayBounds(start.In(ss.location))
		filter = models.ScheduleFilter{StartFrom: &windowStart, StartTo: &windowFinish}
	}

	schedules, err := ss.scheduleRepo.ListSchedules(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find schedules by date: %w", err)
	}
	return ss.mergeExternal(ctx, schedules, windowStart, windowFinish)
}

// mergeExternal appends calendar events that do not mirror a stored schedule.
func (ss *ScheduleService) mergeExternal(ctx context.Context, schedules []*models.Schedule, from, to time.Time) ([]*models.Schedule, error) {
	evs, err := ss.calendar.ListEvents(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	mirrored := make(map[string]bool, len(schedules))
	for _, s := range schedules {
		if s.GoogleEventID != "" {
			mirrored[s.GoogleEventID] = true
		}
	}

	now := ss.now()
	for _, ev := range evs {
		if mirrored[ev.ID] {
			continue
		}
		schedules = append(schedules, &models.Schedule{
			StartDate:     ev.Start.DateTime,
			EndDate:       ev.End.DateTime,
			Status:        models.ScheduleScheduled,
			GoogleEventID: ev.ID,
			External:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return schedules, nil
}

// dateChanged compares at millisecond precision, the resolution the store keeps.
// A date that was not supplied counts as changed.
func dateChanged(current time.Time, incoming *time.Time) bool {
	if incoming == nil {
		return true
	}
	return !current.UTC().Truncate(time.Millisecond).Equal(incoming.UTC().Truncate(time.Millisecond))
}

func (ss *ScheduleService) Update(ctx context.Context, id string, update models.ScheduleUpdate) (*models.Schedule, error) {
	existing, err := ss.scheduleRepo.GetScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, models.ErrScheduleNotFound
	}

	if update.Status != nil && !existing.Status.CanTransitionTo(*update.Status) {
		return nil, models.NewValidationError(fmt.Sprintf("cannot change status from %s to %s", existing.Status, *update.Status))
	}
	next := *existing
	update.Apply(&next)
	if !next.StartDate.Before(next.EndDate) {
		return nil, models.NewValidationError("start date must be before end date")
	}

	changed := dateChanged(existing.StartDate, update.StartDate) || dateChanged(existing.EndDate, update.EndDate)

	updated, err := ss.scheduleRepo.UpdateSchedule(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, models.ErrScheduleNotFound
	}

	if existing.GoogleEventID != "" {
		if err := ss.syncCalendar(ctx, existing.GoogleEventID, updated); err != nil {
			return nil, err
		}
	}

	switch {
	case changed:
		err = ss.notify(ctx, updated, actionUpdated)
	case existing.Status != models.ScheduleCancelled && updated.Status == models.ScheduleCancelled:
		err = ss.notify(ctx, updated, actionCancelled)
	}
	if err != nil {
		return updated, notificationFailed("schedule", err)
	}
	return updated, nil
}

// syncCalendar moves the external event to the schedule's window, leaving its other
// fields as they are. A vanished event is not an error.
func (ss *ScheduleService) syncCalendar(ctx context.Context, eventID string, s *models.Schedule) error {
	ev, err := ss.calendar.GetEventByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load calendar event: %w", err)
	}
	if ev == nil {
		ss.logger.Info("calendar event no longer exists, skipping sync",
			slog.String("google_event_id", eventID),
			slog.String("schedule_id", s.ID.Hex()),
		)
		return nil
	}

	ev.Start.DateTime = s.StartDate
	ev.End.DateTime = s.EndDate
	if _, err := ss.calendar.UpdateEvent(ctx, eventID, *ev); err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}
	return nil
}

// Delete removes the schedule. Removing its calendar event is best-effort and never
// blocks the local delete.
func (ss *ScheduleService) Delete(ctx context.Context, id string) (*models.Schedule, error) {
	existing, err := ss.scheduleRepo.GetScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, models.ErrScheduleNotFound
	}

	if existing.GoogleEventID != "" {
		if err := ss.calendar.DeleteEvent(ctx, existing.GoogleEventID); err != nil {
			ss.logger.Warn("failed to delete calendar event",
				slog.String("google_event_id", existing.GoogleEventID),
				slog.String("error", err.Error()),
			)
		}
	}

	deleted, err := ss.scheduleRepo.DeleteSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, models.ErrScheduleNotFound
	}
	return deleted, nil
}

// FilterAvailableSlots keeps the candidate "HH:MM - HH:MM" slots on date's day that
// no schedule or calendar event overlaps.
func (ss *ScheduleService) FilterAvailableSlots(ctx context.Context, date time.Time, candidates []string) ([]string, error) {
	day := date.In(ss.location)
	dayStart, dayEnd := slots.DayBounds(day)

	taken, err := ss.FindByDate(ctx, dayStart, &dayEnd)
	if err != nil {
		return nil, err
	}

	booked := make([]slots.Interval, 0, len(taken))
	for _, s := range taken {
		booked = append(booked, slots.Interval{Start: s.StartDate, End: s.EndDate})
	}

	available, err := slots.FilterAvailable(day, candidates, booked)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	return available, nil
}

// AttachEvent records the calendar event mirroring the schedule. The owner is not notified.
func (ss *ScheduleService) AttachEvent(ctx context.Context, id, eventID string) (*models.Schedule, error) {
	updated, err := ss.scheduleRepo.UpdateSchedule(ctx, id, models.ScheduleUpdate{GoogleEventID: &eventID})
	if err != nil {
		return nil, fmt.Errorf("failed to attach calendar event: %w", err)
	}
	if updated == nil {
		return nil, models.ErrScheduleNotFound
	}
	return updated, nil
}

// restore writes prev's window, status and event id back without syncing or notifying.
func (ss *ScheduleService) restore(ctx context.Context, prev *models.Schedule) error {
	_, err := ss.scheduleRepo.UpdateSchedule(ctx, prev.ID.Hex(), models.ScheduleUpdate{
		StartDate:     &prev.StartDate,
		EndDate:       &prev.EndDate,
		Status:        &prev.Status,
		GoogleEventID: &prev.GoogleEventID,
	})
	return err
}
