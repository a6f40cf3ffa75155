package services

import (
	"context"
	"fmt"

	"github.com/joshua-takyi/bookings/internal/models"
)

type SessionService struct {
	sessionRepo models.SessionRepo
}

func NewSessionService(sessionRepo models.SessionRepo) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
	}
}

func (ss *SessionService) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if err := models.Validate.Struct(session); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("invalid session data provided: %v", err))
	}
	created, err := ss.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

func (ss *SessionService) ReadOne(ctx context.Context, id string) (*models.Session, error) {
	return ss.sessionRepo.GetSessionByID(ctx, id)
}

// FindByScheduleID returns the session of a schedule, or nil when it has not been booked yet.
func (ss *SessionService) FindByScheduleID(ctx context.Context, scheduleID string) (*models.Session, error) {
	sessions, err := ss.sessionRepo.ListSessions(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (ss *SessionService) Update(ctx context.Context, id string, update models.SessionUpdate) (*models.Session, error) {
	if err := models.Validate.Struct(update); err != nil {
		return nil, models.NewValidationError(fmt.Sprintf("invalid session update: %v", err))
	}
	updated, err := ss.sessionRepo.UpdateSession(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if updated == nil {
		return nil, models.ErrSessionNotFound
	}
	return updated, nil
}

func (ss *SessionService) Delete(ctx context.Context, id string) (*models.Session, error) {
	return ss.sessionRepo.DeleteSession(ctx, id)
}
