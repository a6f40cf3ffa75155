package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshua-takyi/bookings/internal/models"
)

type PaymentService struct {
	paymentRepo models.PaymentRepo
	notifier    Notifier
	logger      *slog.Logger
}

func NewPaymentService(paymentRepo models.PaymentRepo, notifier Notifier, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// Create stores the payment. When userID is set the owner is told about its status.
func (ps *PaymentService) Create(ctx context.Context, payment *models.Payment, userID string) (*models.Payment, error) {
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}
	if err := models.Validate.Struct(payment); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("invalid payment data provided: %v", err))
	}

	created, err := ps.paymentRepo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if userID != "" {
		if err := ps.notify(ctx, created, userID); err != nil {
			return created, notificationFailed("payment", err)
		}
	}
	return created, nil
}

func (ps *PaymentService) notify(ctx context.Context, p *models.Payment, userID string) error {
	msg := paymentMessage(p)
	if msg == "" {
		return nil
	}
	if _, err := ps.notifier.Notify(ctx, userID, msg); err != nil {
		ps.logger.Error("failed to notify payment status",
			slog.String("payment_id", p.ID.Hex()),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to notify payment status: %w", err)
	}
	return nil
}

func (ps *PaymentService) ReadOne(ctx context.Context, id string) (*models.Payment, error) {
	return ps.paymentRepo.GetPaymentByID(ctx, id)
}

// FindByScheduleID returns the first payment recorded for the schedule, or nil.
func (ps *PaymentService) FindByScheduleID(ctx context.Context, scheduleID string) (*models.Payment, error) {
	payments, err := ps.paymentRepo.ListPayments(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	if len(payments) == 0 {
		return nil, nil
	}
	return payments[0], nil
}

func (ps *PaymentService) Update(ctx context.Context, id string, update models.PaymentUpdate, userID string) (*models.Payment, error) {
	if err := models.Validate.Struct(update); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("invalid payment update: %v", err))
	}

	updated, err := ps.paymentRepo.UpdatePayment(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	if updated == nil {
		return nil, models.ErrPaymentNotFound
	}

	if userID != "" {
		if err := ps.notify(ctx, updated, userID); err != nil {
			return updated, notificationFailed("payment", err)
		}
	}
	return updated, nil
}

func (ps *PaymentService) Delete(ctx context.Context, id string) (*models.Payment, error) {
	return ps.paymentRepo.DeletePayment(ctx, id)
}
