package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ScheduleColName = "schedules"

type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "pending"
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleCancelled ScheduleStatus = "cancelled"
	ScheduleRefunded  ScheduleStatus = "refunded"
	ScheduleCompleted ScheduleStatus = "completed"
)

// statuses still sent by older clients
var legacyScheduleStatuses = map[string]ScheduleStatus{
	"pendente":    SchedulePending,
	"agendado":    ScheduleScheduled,
	"confirmado":  ScheduleScheduled,
	"cancelado":   ScheduleCancelled,
	"reembolsado": ScheduleRefunded,
	"concluído":   ScheduleCompleted,
	"concluido":   ScheduleCompleted,
}

var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	SchedulePending:   {ScheduleScheduled, ScheduleCancelled},
	ScheduleScheduled: {ScheduleCompleted, ScheduleCancelled, ScheduleRefunded},
}

func NormalizeScheduleStatus(raw string) ScheduleStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if legacy, ok := legacyScheduleStatuses[s]; ok {
		return legacy
	}
	return ScheduleStatus(s)
}

func (s *ScheduleStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NormalizeScheduleStatus(raw)
	return nil
}

// CanTransitionTo reports whether a schedule may move from s to next.
// Staying in the same status is always allowed.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range scheduleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Schedule struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitzero"`
	UserID        string             `bson:"user_id" json:"user_id" validate:"required"`
	StartDate     time.Time          `bson:"start_date" json:"start_date" validate:"required"`
	EndDate       time.Time          `bson:"end_date" json:"end_date" validate:"required"`
	Status        ScheduleStatus     `bson:"status" json:"status" validate:"required,oneof=pending scheduled cancelled refunded completed"`
	GoogleEventID string             `bson:"google_event_id,omitempty" json:"google_event_id,omitempty"`
	// External marks rows mirrored from the external calendar; they are never stored or billed.
	External  bool      `bson:"-" json:"external,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (s *Schedule) BeforeCreate() {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

// ScheduleUpdate holds the fields a caller may change. Nil fields are left untouched.
type ScheduleUpdate struct {
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	Status        *ScheduleStatus `json:"status,omitempty"`
	GoogleEventID *string         `json:"-"`
}

func (u ScheduleUpdate) Apply(s *Schedule) {
	if u.StartDate != nil {
		s.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		s.EndDate = *u.EndDate
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.GoogleEventID != nil {
		s.GoogleEventID = *u.GoogleEventID
	}
}

// ScheduleFilter selects schedules. Zero fields do not constrain the result.
//
// WindowStart/WindowEnd select schedules whose [start_date, end_date] intersects the
// window with inclusive bounds. StartFrom/StartTo bound start_date alone.
type ScheduleFilter struct {
	UserID      string
	Status      ScheduleStatus
	WindowStart *time.Time
	WindowEnd   *time.Time
	StartFrom   *time.Time
	StartTo     *time.Time
}

func (f ScheduleFilter) Matches(s *Schedule) bool {
	if f.UserID != "" && s.UserID != f.UserID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.WindowEnd != nil && s.StartDate.After(*f.WindowEnd) {
		return false
	}
	if f.WindowStart != nil && s.EndDate.Before(*f.WindowStart) {
		return false
	}
	if f.StartFrom != nil && s.StartDate.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && s.StartDate.After(*f.StartTo) {
		return false
	}
	return true
}

type ScheduleRepo interface {
	CreateSchedule(ctx context.Context, schedule *Schedule) (*Schedule, error)
	GetScheduleByID(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error)
	UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) (*Schedule, error)
	DeleteSchedule(ctx context.Context, id string) (*Schedule, error)
}
