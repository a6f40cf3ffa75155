package models

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ParseID converts a 24-hex identifier into an ObjectID, failing with ErrInvalidID
// before any store access.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// collection is the generic create/read/update/delete surface shared by every
// entity collection. Lookups that match nothing return (nil, nil).
type collection[T any] struct {
	repo *MongodbRepo
	name string
}

func newCollection[T any](repo *MongodbRepo, name string) collection[T] {
	return collection[T]{repo: repo, name: name}
}

func (c collection[T]) get(ctx context.Context) (*mongo.Collection, error) {
	col, err := c.repo.GetCollection(ctx, c.repo.dbName, c.name)
	if err != nil {
		return nil, fmt.Errorf("error getting collection %s: %w", c.name, err)
	}
	return col, nil
}

func (c collection[T]) insert(ctx context.Context, doc *T) error {
	col, err := c.get(ctx)
	if err != nil {
		return err
	}
	if _, err := col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}
	return nil
}

func (c collection[T]) findByID(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	col, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var doc T
	err = col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding %s by ID: %w", c.name, err)
	}
	return &doc, nil
}

func (c collection[T]) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	col, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("error finding %s: %w", c.name, err)
	}
	defer cursor.Close(ctx)

	docs := make([]*T, 0)
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding %s: %w", c.name, err)
		}
		docs = append(docs, &doc)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return docs, nil
}

func (c collection[T]) updateByID(ctx context.Context, id string, set bson.M) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	col, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating %s: %w", c.name, err)
	}
	return &doc, nil
}

func (c collection[T]) deleteByID(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	col, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	var doc T
	err = col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error deleting %s: %w", c.name, err)
	}
	return &doc, nil
}

func byCreatedAt() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
}
