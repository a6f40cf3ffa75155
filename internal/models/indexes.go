package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the booking collections rely on.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		ScheduleColName: {
			// storage-level guard against two writers booking the exact same window
			{
				Keys: bson.D{
					{Key: "start_date", Value: 1},
					{Key: "end_date", Value: 1},
				},
				Options: options.Index().
					SetUnique(true).
					SetName("schedule_window_unique"),
			},
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "status", Value: 1},
				},
				Options: options.Index().SetName("user_status_idx"),
			},
		},
		PaymentColName: {
			{
				Keys:    bson.D{{Key: "schedule_id", Value: 1}},
				Options: options.Index().SetName("schedule_id_idx"),
			},
		},
		SessionColName: {
			{
				Keys:    bson.D{{Key: "schedule_id", Value: 1}},
				Options: options.Index().SetName("schedule_id_idx"),
			},
		},
		NotificationColName: {
			{
				Keys: bson.D{
					{Key: "user_id", Value: 1},
					{Key: "created_at", Value: 1},
				},
				Options: options.Index().SetName("user_created_at_idx"),
			},
		},
	}

	for colName, indexes := range specs {
		col, err := mdb.GetCollection(ctx, mdb.dbName, colName)
		if err != nil {
			return fmt.Errorf("error getting collection: %v", err)
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes on %s: %v", colName, err)
		}
	}

	return nil
}
