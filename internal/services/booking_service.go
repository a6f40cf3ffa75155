package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joshua-takyi/bookings/internal/calendar"
	"github.com/joshua-takyi/bookings/internal/metrics"
	"github.com/joshua-takyi/bookings/internal/models"
)

type BookingConfig struct {
	// CompensateOnFailure undoes committed steps when a later one fails.
	CompensateOnFailure bool
	EventLocation       string
	Location            *time.Location
}

type BookingPaymentInput struct {
	Price           float64 `json:"price"`
	PaymentIntentID string  `json:"payment_intent_id,omitempty"`
}

type CreateBookingInput struct {
	Schedule    models.Schedule     `json:"scheduleData"`
	Payment     BookingPaymentInput `json:"paymentData"`
	SessionName string              `json:"sessionName,omitempty"`
}

type UpdateBookingInput struct {
	Schedule    models.ScheduleUpdate `json:"scheduleData"`
	SessionName string                `json:"sessionName,omitempty"`
}

// BookingService keeps a schedule, its payment, its session and the calendar event
// consistent. The stores share no transaction, so every write runs through a saga.
type BookingService struct {
	schedules *ScheduleService
	payments  *PaymentService
	sessions  *SessionService
	users     models.UserDirectory
	calendar  calendar.Calendar
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	cfg       BookingConfig
}

func NewBookingService(
	schedules *ScheduleService,
	payments *PaymentService,
	sessions *SessionService,
	users models.UserDirectory,
	cal calendar.Calendar,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg BookingConfig,
) *BookingService {
	if cal == nil {
		cal = calendar.Disabled{}
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &BookingService{
		schedules: schedules,
		payments:  payments,
		sessions:  sessions,
		users:     users,
		calendar:  cal,
		metrics:   collector,
		logger:    logger,
		cfg:       cfg,
	}
}

func (bs *BookingService) record(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(models.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	bs.metrics.RecordBooking(operation, outcome)
}

func (bs *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (booking *models.Booking, err error) {
	defer func() { bs.record("create", err) }()

	sg := newSaga("create", bs.cfg.CompensateOnFailure, bs.metrics, bs.logger)

	schedule, err := bs.schedules.Create(ctx, &in.Schedule)
	if schedule == nil {
		return nil, err
	}
	scheduleID := schedule.ID.Hex()
	sg.done("schedule", func(ctx context.Context) error {
		_, err := bs.schedules.scheduleRepo.DeleteSchedule(ctx, scheduleID)
		return err
	})
	if err != nil {
		return nil, sg.fail(ctx, stepNotification, notificationCause(err))
	}

	payment, err := bs.payments.Create(ctx, &models.Payment{
		ScheduleID:      scheduleID,
		Price:           in.Payment.Price,
		Status:          models.PaymentStatusFor(schedule.Status),
		PaymentIntentID: in.Payment.PaymentIntentID,
	}, schedule.UserID)
	if payment == nil {
		return nil, sg.fail(ctx, "payment", err)
	}
	sg.done("payment", func(ctx context.Context) error {
		_, err := bs.payments.Delete(ctx, payment.ID.Hex())
		return err
	})
	if err != nil {
		return nil, sg.fail(ctx, stepNotification, notificationCause(err))
	}

	user, err := bs.users.FindUserByID(ctx, schedule.UserID)
	if err != nil {
		return nil, sg.fail(ctx, "user", fmt.Errorf("failed to resolve user: %w", err))
	}

	booking = &models.Booking{
		ScheduleData: schedule,
		PaymentData:  payment,
		SessionData:  models.NotScheduled(),
		UserData:     user,
	}
	if payment.Status != models.PaymentPaid {
		return booking, nil
	}

	session, err := bs.sessions.Create(ctx, &models.Session{
		ScheduleID: scheduleID,
		Date:       sessionDate(user, schedule.StartDate, bs.cfg.Location, false),
		Price:      payment.Price,
	})
	if err != nil {
		return nil, sg.fail(ctx, "session", err)
	}
	sg.done("session", func(ctx context.Context) error {
		_, err := bs.sessions.Delete(ctx, session.ID.Hex())
		return err
	})
	booking.SessionData = models.ScheduledSession(session)

	linked, err := bs.mirrorToCalendar(ctx, sg, schedule, user, session, in.SessionName)
	if err != nil {
		return nil, err
	}
	booking.ScheduleData = linked
	return booking, nil
}

// mirrorToCalendar creates the session's calendar event and stores its id on the schedule.
func (bs *BookingService) mirrorToCalendar(ctx context.Context, sg *saga, schedule *models.Schedule, user *models.User, session *models.Session, name string) (*models.Schedule, error) {
	ev, err := bs.calendar.CreateEvent(ctx, bs.sessionEvent(schedule, user, session, name))
	if err != nil {
		return nil, sg.fail(ctx, "calendar", err)
	}
	if ev == nil || ev.ID == "" {
		return schedule, nil
	}
	eventID := ev.ID
	sg.done("calendar", func(ctx context.Context) error {
		return bs.calendar.DeleteEvent(ctx, eventID)
	})

	linked, err := bs.schedules.AttachEvent(ctx, schedule.ID.Hex(), eventID)
	if err != nil {
		return nil, sg.fail(ctx, "link_event", err)
	}
	return linked, nil
}

func (bs *BookingService) sessionEvent(schedule *models.Schedule, user *models.User, session *models.Session, name string) calendar.Event {
	if name == "" {
		name = defaultSessionName
	}
	tz := bs.cfg.Location.String()
	ev := calendar.Event{
		Summary:     name,
		Description: session.Date,
		Location:    bs.cfg.EventLocation,
		Start:       calendar.EventTime{DateTime: schedule.StartDate, TimeZone: tz},
		End:         calendar.EventTime{DateTime: schedule.EndDate, TimeZone: tz},
		Reminders:   calendar.SessionReminders(),
	}
	if user != nil && user.Email != "" {
		ev.Attendees = []string{user.Email}
	}
	return ev
}

func (bs *BookingService) FindBookingByScheduleID(ctx context.Context, scheduleID string) (*models.Booking, error) {
	schedule, err := bs.schedules.ReadOne(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.ErrScheduleNotFound
	}
	return bs.compose(ctx, schedule, nil)
}

// compose resolves the payment, session and owner of schedule. users caches owners
// across calls in bulk listings and may be nil.
func (bs *BookingService) compose(ctx context.Context, schedule *models.Schedule, users map[string]*models.User) (*models.Booking, error) {
	scheduleID := schedule.ID.Hex()

	payment, err := bs.payments.FindByScheduleID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	state := models.NotScheduled()
	session, err := bs.sessions.FindByScheduleID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		state = models.ScheduledSession(session)
	}

	var user *models.User
	if schedule.UserID != "" {
		cached, ok := users[schedule.UserID]
		if ok {
			user = cached
		} else {
			user, err = bs.users.FindUserByID(ctx, schedule.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve user: %w", err)
			}
			if users != nil {
				users[schedule.UserID] = user
			}
		}
	}

	return &models.Booking{
		ScheduleData: schedule,
		PaymentData:  payment,
		SessionData:  state,
		UserData:     user,
	}, nil
}

func (bs *BookingService) UpdateBooking(ctx context.Context, scheduleID string, in UpdateBookingInput) (booking *models.Booking, err error) {
	defer func() { bs.record("update", err) }()

	current, err := bs.FindBookingByScheduleID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if current.ScheduleData == nil {
		return nil, models.ErrScheduleNotFound
	}

	sg := newSaga("update", bs.cfg.CompensateOnFailure, bs.metrics, bs.logger)

	previous := *current.ScheduleData
	schedule, err := bs.schedules.Update(ctx, scheduleID, in.Schedule)
	if schedule == nil {
		return nil, err
	}
	sg.done("schedule", func(ctx context.Context) error {
		return bs.schedules.restore(ctx, &previous)
	})
	if err != nil {
		return nil, sg.fail(ctx, stepNotification, notificationCause(err))
	}

	if current.PaymentData == nil {
		return nil, sg.fail(ctx, "payment", models.ErrPaymentNotFound)
	}
	previousPayment := *current.PaymentData
	status := models.PaymentStatusFor(schedule.Status)
	payment, err := bs.payments.Update(ctx, previousPayment.ID.Hex(), models.PaymentUpdate{Status: &status}, schedule.UserID)
	if payment == nil {
		return nil, sg.fail(ctx, "payment", err)
	}
	sg.done("payment", func(ctx context.Context) error {
		_, err := bs.payments.paymentRepo.UpdatePayment(ctx, previousPayment.ID.Hex(), models.PaymentUpdate{Status: &previousPayment.Status})
		return err
	})
	if err != nil {
		return nil, sg.fail(ctx, stepNotification, notificationCause(err))
	}

	if payment.Status == models.PaymentPaid {
		date := sessionDate(current.UserData, schedule.StartDate, bs.cfg.Location, true)

		var session *models.Session
		if existing := current.SessionData.Session(); existing != nil {
			previousDate := existing.Date
			session, err = bs.sessions.Update(ctx, existing.ID.Hex(), models.SessionUpdate{Date: &date})
			if err != nil {
				return nil, sg.fail(ctx, "session", err)
			}
			sg.done("session", func(ctx context.Context) error {
				_, err := bs.sessions.Update(ctx, existing.ID.Hex(), models.SessionUpdate{Date: &previousDate})
				return err
			})
		} else {
			session, err = bs.sessions.Create(ctx, &models.Session{
				ScheduleID: scheduleID,
				Date:       date,
				Price:      payment.Price,
			})
			if err != nil {
				return nil, sg.fail(ctx, "session", err)
			}
			created := session.ID.Hex()
			sg.done("session", func(ctx context.Context) error {
				_, err := bs.sessions.Delete(ctx, created)
				return err
			})
		}

		// first confirmation of a booking that was created unpaid
		if schedule.GoogleEventID == "" {
			if _, err := bs.mirrorToCalendar(ctx, sg, schedule, current.UserData, session, in.SessionName); err != nil {
				return nil, err
			}
		}
	}

	booking, err = bs.FindBookingByScheduleID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("booking updated but could not be reloaded: %w", err)
	}
	return booking, nil
}

func (bs *BookingService) FindBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	schedules, err := bs.schedules.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return bs.composeAll(ctx, schedules), nil
}

// FindAllBookingsForAdmin lists every owned booking. Calendar-only rows have no owner
// and are left out.
func (bs *BookingService) FindAllBookingsForAdmin(ctx context.Context) ([]*models.Booking, error) {
	schedules, err := bs.schedules.Read(ctx)
	if err != nil {
		return nil, err
	}
	return bs.composeAll(ctx, schedules), nil
}

// composeAll skips schedules without an owner and logs bookings that fail to resolve
// instead of failing the listing.
func (bs *BookingService) composeAll(ctx context.Context, schedules []*models.Schedule) []*models.Booking {
	users := make(map[string]*models.User)
	bookings := make([]*models.Booking, 0, len(schedules))
	for _, s := range schedules {
		if s.UserID == "" || s.External {
			continue
		}
		b, err := bs.compose(ctx, s, users)
		if err != nil {
			bs.logger.Error("failed to resolve booking",
				slog.String("schedule_id", s.ID.Hex()),
				slog.String("error", err.Error()),
			)
			continue
		}
		bookings = append(bookings, b)
	}
	return bookings
}

// DeleteBooking removes the payment, then the session, then the schedule. An empty
// sessionID means the booking was never confirmed. The payment and session must both
// belong to scheduleID; nothing is deleted otherwise. Deletes that already went
// through are kept when a later one finds nothing, unless compensation is on.
func (bs *BookingService) DeleteBooking(ctx context.Context, paymentID, sessionID, scheduleID string) (err error) {
	defer func() { bs.record("delete", err) }()

	if err := bs.checkBookingParts(ctx, paymentID, sessionID, scheduleID); err != nil {
		return err
	}

	sg := newSaga("delete", bs.cfg.CompensateOnFailure, bs.metrics, bs.logger)
	failed := func(step string, cause error) error {
		if cause == nil {
			cause = errors.New("nothing deleted")
		}
		bs.logger.Warn("failed to delete booking",
			slog.String("step", step),
			slog.Any("completed_steps", sg.completed()),
			slog.String("error", cause.Error()),
		)
		if bs.cfg.CompensateOnFailure {
			_ = sg.rollback(ctx)
		}
		return models.ErrBookingDeleteFailed
	}

	payment, err := bs.payments.Delete(ctx, paymentID)
	if err != nil || payment == nil {
		return failed("payment", err)
	}
	sg.done("payment", func(ctx context.Context) error {
		_, err := bs.payments.paymentRepo.CreatePayment(ctx, payment)
		return err
	})

	if sessionID != "" {
		session, err := bs.sessions.Delete(ctx, sessionID)
		if err != nil || session == nil {
			return failed("session", err)
		}
		sg.done("session", func(ctx context.Context) error {
			_, err := bs.sessions.sessionRepo.CreateSession(ctx, session)
			return err
		})
	}

	if _, err := bs.schedules.Delete(ctx, scheduleID); err != nil {
		return failed("schedule", err)
	}
	return nil
}

// checkBookingParts makes sure the payment and session ids name parts of scheduleID's
// booking. A part that does not exist is left for the delete itself to report.
func (bs *BookingService) checkBookingParts(ctx context.Context, paymentID, sessionID, scheduleID string) error {
	payment, err := bs.payments.ReadOne(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment != nil && payment.ScheduleID != scheduleID {
		return models.NewValidationError("payment does not belong to this booking")
	}
	if sessionID == "" {
		return nil
	}
	session, err := bs.sessions.ReadOne(ctx, sessionID)
	if err != nil {
		return err
	}
	if session != nil && session.ScheduleID != scheduleID {
		return models.NewValidationError("session does not belong to this booking")
	}
	return nil
}
