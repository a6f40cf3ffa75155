package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const SessionColName = "sessions"

// Session is the confirmed appointment created once the payment is settled.
// Date is a human-readable description, not a timestamp.
type Session struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitzero"`
	ScheduleID string             `bson:"schedule_id" json:"schedule_id" validate:"required,len=24,hexadecimal"`
	Date       string             `bson:"date" json:"date" validate:"required"`
	Price      float64            `bson:"price" json:"price" validate:"gte=0.01,lte=999999.99"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

func (s *Session) BeforeCreate() {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
}

type SessionUpdate struct {
	Date  *string  `json:"date,omitempty"`
	Price *float64 `json:"price,omitempty" validate:"omitempty,gte=0.01,lte=999999.99"`
}

func (u SessionUpdate) Apply(s *Session) {
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.Price != nil {
		s.Price = *u.Price
	}
}

type SessionRepo interface {
	CreateSession(ctx context.Context, session *Session) (*Session, error)
	GetSessionByID(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, scheduleID string) ([]*Session, error)
	UpdateSession(ctx context.Context, id string, update SessionUpdate) (*Session, error)
	DeleteSession(ctx context.Context, id string) (*Session, error)
}

func (mdb *MongodbRepo) sessions() collection[Session] {
	return newCollection[Session](mdb, SessionColName)
}

func (mdb *MongodbRepo) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	session.BeforeCreate()
	if err := mdb.sessions().insert(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (mdb *MongodbRepo) GetSessionByID(ctx context.Context, id string) (*Session, error) {
	return mdb.sessions().findByID(ctx, id)
}

func (mdb *MongodbRepo) ListSessions(ctx context.Context, scheduleID string) ([]*Session, error) {
	filter := bson.M{}
	if scheduleID != "" {
		filter["schedule_id"] = scheduleID
	}
	return mdb.sessions().find(ctx, filter, byCreatedAt())
}

func (mdb *MongodbRepo) UpdateSession(ctx context.Context, id string, update SessionUpdate) (*Session, error) {
	set := bson.M{"updated_at": time.Now()}
	if update.Date != nil {
		set["date"] = *update.Date
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	return mdb.sessions().updateByID(ctx, id, set)
}

func (mdb *MongodbRepo) DeleteSession(ctx context.Context, id string) (*Session, error) {
	return mdb.sessions().deleteByID(ctx, id)
}
