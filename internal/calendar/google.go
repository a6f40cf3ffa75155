package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type DegradationRecorder interface {
	RecordCalendarDegradation(operation string)
}

type GoogleConfig struct {
	CalendarID string
	Location   *time.Location
	Logger     *slog.Logger
	Recorder   DegradationRecorder
}

// GoogleCalendar talks to Google Calendar v3 on a single calendar.
type GoogleCalendar struct {
	events     *gcal.EventsService
	calendarID string
	location   *time.Location
	logger     *slog.Logger
	recorder   DegradationRecorder
}

func NewGoogleCalendar(ctx context.Context, cfg GoogleConfig, opts ...option.ClientOption) (*GoogleCalendar, error) {
	if cfg.CalendarID == "" {
		return nil, fmt.Errorf("calendar id is required")
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GoogleCalendar{
		events:     svc.Events,
		calendarID: cfg.CalendarID,
		location:   cfg.Location,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
	}, nil
}

// classify maps provider auth/grant failures onto ErrUnauthorized.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "invalid_grant" || retrieveErr.ErrorCode == "unauthorized_client" {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}
	return err
}

func isMissing(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone)
}

func (g *GoogleCalendar) degrade(op string, err error) {
	g.logger.Warn("calendar unavailable, using fallback",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	if g.recorder != nil {
		g.recorder.RecordCalendarDegradation(op)
	}
}

func (g *GoogleCalendar) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	events := make([]Event, 0)
	call := g.events.List(g.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, err := g.fromGoogle(item)
			if err != nil {
				return err
			}
			events = append(events, *ev)
		}
		return nil
	})
	if err = classify(err); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			g.degrade("list", err)
			return []Event{}, nil
		}
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (g *GoogleCalendar) CreateEvent(ctx context.Context, event Event) (*Event, error) {
	created, err := g.events.Insert(g.calendarID, toGoogle(event)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", classify(err))
	}
	return g.fromGoogle(created)
}

func (g *GoogleCalendar) GetEventByID(ctx context.Context, id string) (*Event, error) {
	item, err := g.events.Get(g.calendarID, id).Context(ctx).Do()
	if isMissing(err) {
		return nil, nil
	}
	if err = classify(err); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			g.degrade("get", err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return g.fromGoogle(item)
}

func (g *GoogleCalendar) UpdateEvent(ctx context.Context, id string, event Event) (*Event, error) {
	updated, err := g.events.Patch(g.calendarID, id, toGoogle(event)).Context(ctx).Do()
	if err = classify(err); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			g.degrade("update", err)
			event.ID = id
			return &event, nil
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return g.fromGoogle(updated)
}

func (g *GoogleCalendar) DeleteEvent(ctx context.Context, id string) error {
	if err := g.events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", classify(err))
	}
	return nil
}

func toGoogle(e Event) *gcal.Event {
	ev := &gcal.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       toGoogleTime(e.Start),
		End:         toGoogleTime(e.End),
		Reminders: &gcal.EventReminders{
			UseDefault: e.UseDefaultReminders,
			// UseDefault=false is meaningful and would otherwise be dropped as empty
			ForceSendFields: []string{"UseDefault"},
		},
	}
	for _, email := range e.Attendees {
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: email})
	}
	for _, r := range e.Reminders {
		ev.Reminders.Overrides = append(ev.Reminders.Overrides, &gcal.EventReminder{
			Method:  r.Method,
			Minutes: r.Minutes,
		})
	}
	return ev
}

func toGoogleTime(t EventTime) *gcal.EventDateTime {
	if t.DateTime.IsZero() {
		return nil
	}
	return &gcal.EventDateTime{
		DateTime: t.DateTime.Format(time.RFC3339),
		TimeZone: t.TimeZone,
	}
}

func (g *GoogleCalendar) fromGoogle(item *gcal.Event) (*Event, error) {
	start, err := g.parseTime(item.Start)
	if err != nil {
		return nil, fmt.Errorf("event %s: invalid start: %w", item.Id, err)
	}
	end, err := g.parseTime(item.End)
	if err != nil {
		return nil, fmt.Errorf("event %s: invalid end: %w", item.Id, err)
	}

	ev := &Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       start,
		End:         end,
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, a.Email)
	}
	if item.Reminders != nil {
		ev.UseDefaultReminders = item.Reminders.UseDefault
		for _, r := range item.Reminders.Overrides {
			ev.Reminders = append(ev.Reminders, Reminder{Method: r.Method, Minutes: r.Minutes})
		}
	}
	return ev, nil
}

// parseTime reads timed events as RFC 3339 and all-day events as midnight in the
// configured location.
func (g *GoogleCalendar) parseTime(dt *gcal.EventDateTime) (EventTime, error) {
	if dt == nil {
		return EventTime{}, nil
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return EventTime{}, err
		}
		return EventTime{DateTime: t, TimeZone: dt.TimeZone}, nil
	}
	if dt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", dt.Date, g.location)
		if err != nil {
			return EventTime{}, err
		}
		return EventTime{DateTime: t, TimeZone: dt.TimeZone}, nil
	}
	return EventTime{}, nil
}
