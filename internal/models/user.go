package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserColName = "users"

// User is the subset of the account profile the booking flow needs.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// UserDirectory resolves account profiles. FindUserByID returns (nil, nil) for unknown ids.
type UserDirectory interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
}

type mongoUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Phone     string             `bson:"phone"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"date_creation,omitempty"`
}

func (mdb *MongodbRepo) FindUserByID(ctx context.Context, id string) (*User, error) {
	doc, err := newCollection[mongoUser](mdb, UserColName).findByID(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	return &User{
		ID:    doc.ID.Hex(),
		Name:  doc.Name,
		Email: doc.Email,
		Phone: doc.Phone,
		Role:  doc.Role,
	}, nil
}
