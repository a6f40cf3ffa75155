// Package calendar mirrors confirmed sessions into an external calendar.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthorized marks an auth or grant failure from the calendar provider.
// Read paths degrade on it instead of failing.
var ErrUnauthorized = errors.New("calendar: unauthorized")

type EventTime struct {
	DateTime time.Time
	TimeZone string
}

type Reminder struct {
	Method  string
	Minutes int64
}

type Event struct {
	ID                  string
	Summary             string
	Description         string
	Location            string
	Start               EventTime
	End                 EventTime
	Attendees           []string
	UseDefaultReminders bool
	Reminders           []Reminder
}

// Calendar is the external calendar collaborator. GetEventByID returns (nil, nil)
// when the event does not exist.
type Calendar interface {
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, event Event) (*Event, error)
	GetEventByID(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, id string, event Event) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// SessionReminders are attached to every session event: emails a day and ten
// minutes ahead, and a popup half an hour ahead.
func SessionReminders() []Reminder {
	return []Reminder{
		{Method: "email", Minutes: 24 * 60},
		{Method: "email", Minutes: 10},
		{Method: "popup", Minutes: 30},
	}
}

// Disabled is used when no calendar is configured. Reads are empty and writes succeed
// without side effects.
type Disabled struct{}

func (Disabled) ListEvents(context.Context, time.Time, time.Time) ([]Event, error) {
	return []Event{}, nil
}

func (Disabled) CreateEvent(_ context.Context, event Event) (*Event, error) {
	return &event, nil
}

func (Disabled) GetEventByID(context.Context, string) (*Event, error) {
	return nil, nil
}

func (Disabled) UpdateEvent(_ context.Context, id string, event Event) (*Event, error) {
	event.ID = id
	return &event, nil
}

func (Disabled) DeleteEvent(context.Context, string) error {
	return nil
}
