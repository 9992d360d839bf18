package tasks

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrTaskNotFound is returned when a task ID is unknown.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore persists ingestion task records.
type TaskStore interface {
	Create(ctx context.Context, task *TaskRecord) error
	GetByID(ctx context.Context, id string) (*TaskRecord, error)
	Update(ctx context.Context, task *TaskRecord) error
	List(ctx context.Context, limit int64) ([]*TaskRecord, error)
}

// MongoTaskStore is the MongoDB-backed TaskStore.
type MongoTaskStore struct {
	coll *mongo.Collection
}

// NewMongoTaskStore builds a store over the given database and collection.
func NewMongoTaskStore(client *mongo.Client, database, collection string) *MongoTaskStore {
	return &MongoTaskStore{coll: client.Database(database).Collection(collection)}
}

func (s *MongoTaskStore) Create(ctx context.Context, task *TaskRecord) error {
	if _, err := s.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task record: %w", err)
	}
	return nil
}

func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*TaskRecord, error) {
	var task TaskRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	return &task, nil
}

func (s *MongoTaskStore) Update(ctx context.Context, task *TaskRecord) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *MongoTaskStore) List(ctx context.Context, limit int64) ([]*TaskRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "submitted_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*TaskRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode task records: %w", err)
	}
	return records, nil
}
