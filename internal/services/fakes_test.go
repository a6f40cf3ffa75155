package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joshua-takyi/bookings/internal/calendar"
	"github.com/joshua-takyi/bookings/internal/events"
	"github.com/joshua-takyi/bookings/internal/models"
)

var (
	brt        = time.FixedZone("BRT", -3*60*60)
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	errBoom    = errors.New("boom")
)

const (
	aliceID = "64c1423764cfbb9e80c36865"
	bobID   = "64c1423764cfbb9e80c36866"
)

func at(day, hhmm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+hhmm, brt)
	if err != nil {
		panic(err)
	}
	return t
}

type memScheduleRepo struct {
	mu    sync.Mutex
	items []*models.Schedule
}

func (r *memScheduleRepo) CreateSchedule(_ context.Context, s *models.Schedule) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.BeforeCreate()
	cp := *s
	r.items = append(r.items, &cp)
	return s, nil
}

func (r *memScheduleRepo) find(id string) (int, error) {
	if _, err := models.ParseID(id); err != nil {
		return -1, err
	}
	for i, s := range r.items {
		if s.ID.Hex() == id {
			return i, nil
		}
	}
	return -1, nil
}

func (r *memScheduleRepo) GetScheduleByID(_ context.Context, id string) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.find(id)
	if err != nil || i < 0 {
		return nil, err
	}
	cp := *r.items[i]
	return &cp, nil
}

func (r *memScheduleRepo) ListSchedules(_ context.Context, f models.ScheduleFilter) ([]*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Schedule, 0)
	for _, s := range r.items {
		if f.Matches(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memScheduleRepo) UpdateSchedule(_ context.Context, id string, u models.ScheduleUpdate) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.find(id)
	if err != nil || i < 0 {
		return nil, err
	}
	u.Apply(r.items[i])
	r.items[i].UpdatedAt = time.Now()
	cp := *r.items[i]
	return &cp, nil
}

func (r *memScheduleRepo) DeleteSchedule(_ context.Context, id string) (*models.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, err := r.find(id)
	if err != nil || i < 0 {
		return nil, err
	}
	s := r.items[i]
	r.items = append(r.items[:i], r.items[i+1:]...)
	return s, nil
}

func (r *memScheduleRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memPaymentRepo struct {
	items     []*models.Payment
	createErr error
	updateErr error
}

func (r *memPaymentRepo) CreatePayment(_ context.Context, p *models.Payment) (*models.Payment, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	p.BeforeCreate()
	cp := *p
	r.items = append(r.items, &cp)
	return p, nil
}

func (r *memPaymentRepo) index(id string) (int, error) {
	if _, err := models.ParseID(id); err != nil {
		return -1, err
	}
	for i, p := range r.items {
		if p.ID.Hex() == id {
			return i, nil
		}
	}
	return -1, nil
}

func (r *memPaymentRepo) GetPaymentByID(_ context.Context, id string) (*models.Payment, error) {
	i, err := r.index(id)
	if err != nil || i < 0 {
		return nil, err
	}
	cp := *r.items[i]
	return &cp, nil
}

func (r *memPaymentRepo) ListPayments(_ context.Context, scheduleID string) ([]*models.Payment, error) {
	out := make([]*models.Payment, 0)
	for _, p := range r.items {
		if scheduleID == "" || p.ScheduleID == scheduleID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) UpdatePayment(_ context.Context, id string, u models.PaymentUpdate) (*models.Payment, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	i, err := r.index(id)
	if err != nil || i < 0 {
		return nil, err
	}
	u.Apply(r.items[i])
	cp := *r.items[i]
	return &cp, nil
}

func (r *memPaymentRepo) DeletePayment(_ context.Context, id string) (*models.Payment, error) {
	i, err := r.index(id)
	if err != nil || i < 0 {
		return nil, err
	}
	p := r.items[i]
	r.items = append(r.items[:i], r.items[i+1:]...)
	return p, nil
}

type memSessionRepo struct {
	items     []*models.Session
	createErr error
}

func (r *memSessionRepo) CreateSession(_ context.Context, s *models.Session) (*models.Session, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	s.BeforeCreate()
	cp := *s
	r.items = append(r.items, &cp)
	return s, nil
}

func (r *memSessionRepo) index(id string) (int, error) {
	if _, err := models.ParseID(id); err != nil {
		return -1, err
	}
	for i, s := range r.items {
		if s.ID.Hex() == id {
			return i, nil
		}
	}
	return -1, nil
}

func (r *memSessionRepo) GetSessionByID(_ context.Context, id string) (*models.Session, error) {
	i, err := r.index(id)
	if err != nil || i < 0 {
		return nil, err
	}
	cp := *r.items[i]
	return &cp, nil
}

func (r *memSessionRepo) ListSessions(_ context.Context, scheduleID string) ([]*models.Session, error) {
	out := make([]*models.Session, 0)
	for _, s := range r.items {
		if scheduleID == "" || s.ScheduleID == scheduleID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSessionRepo) UpdateSession(_ context.Context, id string, u models.SessionUpdate) (*models.Session, error) {
	i, err := r.index(id)
	if err != nil || i < 0 {
		return nil, err
	}
	u.Apply(r.items[i])
	cp := *r.items[i]
	return &cp, nil
}

func (r *memSessionRepo) DeleteSession(_ context.Context, id string) (*models.Session, error) {
	i, err := r.index(id)
	if err != nil || i < 0 {
		return nil, err
	}
	s := r.items[i]
	r.items = append(r.items[:i], r.items[i+1:]...)
	return s, nil
}

type memNotificationRepo struct {
	items []*models.Notification
	// failOn rejects messages containing it
	failOn string
}

func (r *memNotificationRepo) CreateNotification(_ context.Context, n *models.Notification) (*models.Notification, error) {
	if r.failOn != "" && strings.Contains(n.Message, r.failOn) {
		return nil, errBoom
	}
	n.BeforeCreate()
	cp := *n
	r.items = append(r.items, &cp)
	return n, nil
}

func (r *memNotificationRepo) ListNotifications(_ context.Context, userID string) ([]*models.Notification, error) {
	out := make([]*models.Notification, 0)
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkNotificationRead(_ context.Context, id, userID string) (*models.Notification, error) {
	if _, err := models.ParseID(id); err != nil {
		return nil, err
	}
	for _, n := range r.items {
		if n.ID.Hex() == id && n.UserID == userID {
			n.Read = true
			return n, nil
		}
	}
	return nil, nil
}

func (r *memNotificationRepo) messagesContaining(substr string) int {
	count := 0
	for _, n := range r.items {
		if strings.Contains(n.Message, substr) {
			count++
		}
	}
	return count
}

type fakeUsers struct {
	users map[string]*models.User
	errs  map[string]error
}

func (f *fakeUsers) FindUserByID(_ context.Context, id string) (*models.User, error) {
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	return f.users[id], nil
}

type fakeCalendar struct {
	events    map[string]calendar.Event
	nextID    int
	created   int
	updated   []calendar.Event
	deleted   []string
	createErr error
	deleteErr error
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]calendar.Event{}}
}

func (f *fakeCalendar) ListEvents(_ context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	out := make([]calendar.Event, 0)
	for _, ev := range f.events {
		if ev.Start.DateTime.Before(timeMax) && ev.End.DateTime.After(timeMin) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, ev calendar.Event) (*calendar.Event, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	f.created++
	ev.ID = fmt.Sprintf("gcal-%d", f.nextID)
	f.events[ev.ID] = ev
	return &ev, nil
}

func (f *fakeCalendar) GetEventByID(_ context.Context, id string) (*calendar.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, id string, ev calendar.Event) (*calendar.Event, error) {
	ev.ID = id
	f.events[id] = ev
	f.updated = append(f.updated, ev)
	return &ev, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.events, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePublisher struct {
	published []events.NotificationCreatedEvent
	err       error
}

func (f *fakePublisher) PublishNotificationCreated(ev events.NotificationCreatedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, ev)
	return nil
}

type fixture struct {
	schedules     *memScheduleRepo
	payments      *memPaymentRepo
	sessions      *memSessionRepo
	notifications *memNotificationRepo
	users         *fakeUsers
	calendar      *fakeCalendar
	publisher     *fakePublisher

	scheduleSvc *ScheduleService
	bookingSvc  *BookingService
}

func newFixture(compensate bool) *fixture {
	f := &fixture{
		schedules:     &memScheduleRepo{},
		payments:      &memPaymentRepo{},
		sessions:      &memSessionRepo{},
		notifications: &memNotificationRepo{},
		users: &fakeUsers{
			users: map[string]*models.User{
				aliceID: {ID: aliceID, Name: "Alice", Email: "alice@example.com", Phone: "+55 11 99999-0000"},
				bobID:   {ID: bobID, Name: "Bob", Email: "bob@example.com", Phone: "+55 11 98888-0000"},
			},
			errs: map[string]error{},
		},
		calendar:  newFakeCalendar(),
		publisher: &fakePublisher{},
	}

	notifier := NewNotificationService(f.notifications, f.publisher, nil, testLogger)
	f.scheduleSvc = NewScheduleService(f.schedules, f.calendar, notifier, brt, testLogger)
	f.scheduleSvc.now = func() time.Time { return at("2024-03-01", "08:00") }
	f.bookingSvc = NewBookingService(
		f.scheduleSvc,
		NewPaymentService(f.payments, notifier, testLogger),
		NewSessionService(f.sessions),
		f.users,
		f.calendar,
		nil,
		testLogger,
		BookingConfig{CompensateOnFailure: compensate, EventLocation: "Consultório", Location: brt},
	)
	return f
}

// seed stores a schedule directly, bypassing the create rules.
func (f *fixture) seed(userID string, start, end time.Time, status models.ScheduleStatus) *models.Schedule {
	s, _ := f.schedules.CreateSchedule(context.Background(), &models.Schedule{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Status:    status,
	})
	return s
}
