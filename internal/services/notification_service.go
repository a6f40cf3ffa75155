package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/bookings/internal/events"
	"github.com/joshua-takyi/bookings/internal/metrics"
	"github.com/joshua-takyi/bookings/internal/models"
)

// Notifier is the notification sink the schedule and payment services write to.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) (*models.Notification, error)
}

const stepNotification = "notification"

// notificationFailed reports a write that was stored but whose owner was not told.
// Callers return the stored entity together with it.
func notificationFailed(entity string, err error) error {
	return models.NewPartialFailureError(stepNotification, []string{entity}, err)
}

// notificationCause strips the wrapper added by notificationFailed so a saga can
// report the failure against its own committed steps.
func notificationCause(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Step == stepNotification && appErr.Err != nil {
		return appErr.Err
	}
	return err
}

type NotificationService struct {
	notificationRepo models.NotificationRepo
	publisher        events.Publisher
	metrics          metrics.MetricsCollector
	logger           *slog.Logger
}

func NewNotificationService(notificationRepo models.NotificationRepo, publisher events.Publisher, collector metrics.MetricsCollector, logger *slog.Logger) *NotificationService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &NotificationService{
		notificationRepo: notificationRepo,
		publisher:        publisher,
		metrics:          collector,
		logger:           logger,
	}
}

// Notify stores the notification and then fans it out. Fan-out is at-most-once:
// a publish failure is logged and the stored notification is still returned.
func (ns *NotificationService) Notify(ctx context.Context, userID, message string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Message: message}
	if err := models.Validate.Struct(n); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("invalid notification: %v", err))
	}

	created, err := ns.notificationRepo.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	err = ns.publisher.PublishNotificationCreated(events.NotificationCreatedEvent{
		NotificationID:   created.ID.Hex(),
		UserID:           created.UserID,
		Message:          created.Message,
		NotificationDate: created.NotificationDate,
	})
	ns.metrics.RecordNotificationPublish(err == nil)
	if err != nil {
		ns.logger.Warn("failed to publish notification",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return created, nil
}

func (ns *NotificationService) FindByUserID(ctx context.Context, userID string) ([]*models.Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("user ID cannot be empty")
	}
	return ns.notificationRepo.ListNotifications(ctx, userID)
}

func (ns *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := ns.notificationRepo.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, models.NewNotFoundError("notification not found")
	}
	return n, nil
}
