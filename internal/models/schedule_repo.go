package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (mdb *MongodbRepo) schedules() collection[Schedule] {
	return newCollection[Schedule](mdb, ScheduleColName)
}

func (mdb *MongodbRepo) CreateSchedule(ctx context.Context, schedule *Schedule) (*Schedule, error) {
	schedule.BeforeCreate()
	if err := mdb.schedules().insert(ctx, schedule); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, NewConflictError("slot already booked")
		}
		return nil, err
	}
	return schedule, nil
}

func (mdb *MongodbRepo) GetScheduleByID(ctx context.Context, id string) (*Schedule, error) {
	return mdb.schedules().findByID(ctx, id)
}

func (mdb *MongodbRepo) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error) {
	return mdb.schedules().find(ctx, scheduleQuery(filter), byCreatedAt())
}

func (mdb *MongodbRepo) UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) (*Schedule, error) {
	set := bson.M{"updated_at": time.Now()}
	if update.StartDate != nil {
		set["start_date"] = *update.StartDate
	}
	if update.EndDate != nil {
		set["end_date"] = *update.EndDate
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.GoogleEventID != nil {
		set["google_event_id"] = *update.GoogleEventID
	}

	updated, err := mdb.schedules().updateByID(ctx, id, set)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, NewConflictError("slot already booked")
		}
		return nil, err
	}
	return updated, nil
}

func (mdb *MongodbRepo) DeleteSchedule(ctx context.Context, id string) (*Schedule, error) {
	return mdb.schedules().deleteByID(ctx, id)
}

func scheduleQuery(f ScheduleFilter) bson.M {
	query := bson.M{}
	if f.UserID != "" {
		query["user_id"] = f.UserID
	}
	if f.Status != "" {
		query["status"] = f.Status
	}

	start := bson.M{}
	if f.WindowEnd != nil {
		start["$lte"] = *f.WindowEnd
	}
	if f.StartFrom != nil {
		start["$gte"] = *f.StartFrom
	}
	if f.StartTo != nil {
		if prev, ok := start["$lte"].(time.Time); !ok || f.StartTo.Before(prev) {
			start["$lte"] = *f.StartTo
		}
	}
	if len(start) > 0 {
		query["start_date"] = start
	}
	if f.WindowStart != nil {
		query["end_date"] = bson.M{"$gte": *f.WindowStart}
	}

	return query
}
