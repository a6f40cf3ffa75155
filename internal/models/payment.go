package models

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const PaymentColName = "payments"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

var legacyPaymentStatuses = map[string]PaymentStatus{
	"pendente":    PaymentPending,
	"pago":        PaymentPaid,
	"cancelado":   PaymentCancelled,
	"reembolsado": PaymentRefunded,
}

func NormalizePaymentStatus(raw string) PaymentStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if legacy, ok := legacyPaymentStatuses[s]; ok {
		return legacy
	}
	return PaymentStatus(s)
}

func (s *PaymentStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = NormalizePaymentStatus(raw)
	return nil
}

// PaymentStatusFor derives the payment status owned by a schedule in the given status.
func PaymentStatusFor(status ScheduleStatus) PaymentStatus {
	switch status {
	case ScheduleScheduled, ScheduleCompleted:
		return PaymentPaid
	case SchedulePending:
		return PaymentPending
	case ScheduleRefunded:
		return PaymentRefunded
	default:
		return PaymentCancelled
	}
}

type Payment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitzero"`
	ScheduleID      string             `bson:"schedule_id" json:"schedule_id" validate:"required,len=24,hexadecimal"`
	Price           float64            `bson:"price" json:"price" validate:"gte=0.01,lte=999999.99"`
	Status          PaymentStatus      `bson:"status" json:"status" validate:"required,oneof=pending paid cancelled refunded"`
	PaymentIntentID string             `bson:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

func (p *Payment) BeforeCreate() {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
}

type PaymentUpdate struct {
	Price           *float64       `json:"price,omitempty" validate:"omitempty,gte=0.01,lte=999999.99"`
	Status          *PaymentStatus `json:"status,omitempty" validate:"omitempty,oneof=pending paid cancelled refunded"`
	PaymentIntentID *string        `json:"payment_intent_id,omitempty"`
}

func (u PaymentUpdate) Apply(p *Payment) {
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.PaymentIntentID != nil {
		p.PaymentIntentID = *u.PaymentIntentID
	}
}

type PaymentRepo interface {
	CreatePayment(ctx context.Context, payment *Payment) (*Payment, error)
	GetPaymentByID(ctx context.Context, id string) (*Payment, error)
	ListPayments(ctx context.Context, scheduleID string) ([]*Payment, error)
	UpdatePayment(ctx context.Context, id string, update PaymentUpdate) (*Payment, error)
	DeletePayment(ctx context.Context, id string) (*Payment, error)
}

func (mdb *MongodbRepo) payments() collection[Payment] {
	return newCollection[Payment](mdb, PaymentColName)
}

func (mdb *MongodbRepo) CreatePayment(ctx context.Context, payment *Payment) (*Payment, error) {
	payment.BeforeCreate()
	if err := mdb.payments().insert(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (mdb *MongodbRepo) GetPaymentByID(ctx context.Context, id string) (*Payment, error) {
	return mdb.payments().findByID(ctx, id)
}

// ListPayments returns every payment, or only those of scheduleID when it is set.
func (mdb *MongodbRepo) ListPayments(ctx context.Context, scheduleID string) ([]*Payment, error) {
	filter := bson.M{}
	if scheduleID != "" {
		filter["schedule_id"] = scheduleID
	}
	return mdb.payments().find(ctx, filter, byCreatedAt())
}

func (mdb *MongodbRepo) UpdatePayment(ctx context.Context, id string, update PaymentUpdate) (*Payment, error) {
	set := bson.M{"updated_at": time.Now()}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.PaymentIntentID != nil {
		set["payment_intent_id"] = *update.PaymentIntentID
	}
	return mdb.payments().updateByID(ctx, id, set)
}

func (mdb *MongodbRepo) DeletePayment(ctx context.Context, id string) (*Payment, error) {
	return mdb.payments().deleteByID(ctx, id)
}
