package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const NotificationColName = "notifications"

type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitzero"`
	UserID           string             `bson:"user_id" json:"user_id" validate:"required"`
	Message          string             `bson:"message" json:"message" validate:"required"`
	NotificationDate time.Time          `bson:"notification_date" json:"notification_date"`
	Read             bool               `bson:"read" json:"read"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

func (n *Notification) BeforeCreate() {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if n.NotificationDate.IsZero() {
		n.NotificationDate = now
	}
	n.CreatedAt = now
	n.UpdatedAt = now
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, notification *Notification) (*Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error)
}

func (mdb *MongodbRepo) notifications() collection[Notification] {
	return newCollection[Notification](mdb, NotificationColName)
}

func (mdb *MongodbRepo) CreateNotification(ctx context.Context, notification *Notification) (*Notification, error) {
	notification.BeforeCreate()
	if err := mdb.notifications().insert(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (mdb *MongodbRepo) ListNotifications(ctx context.Context, userID string) ([]*Notification, error) {
	return mdb.notifications().find(ctx, bson.M{"user_id": userID}, byCreatedAt())
}

// MarkNotificationRead flags one of userID's notifications as read. It returns (nil, nil)
// when the notification does not exist or belongs to someone else.
func (mdb *MongodbRepo) MarkNotificationRead(ctx context.Context, id, userID string) (*Notification, error) {
	existing, err := mdb.notifications().findByID(ctx, id)
	if err != nil || existing == nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, nil
	}
	return mdb.notifications().updateByID(ctx, id, bson.M{"read": true, "updated_at": time.Now()})
}
