package main

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "notifications"

// NotificationFilter narrows a listing. Empty strings mean "any".
type NotificationFilter struct {
	Recipient string
	Status    string
	Limit     int64
	Offset    int64
}

func (f NotificationFilter) query() bson.M {
	q := bson.M{}
	if f.Recipient != "" {
		q["recipient"] = f.Recipient
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	return q
}

// Repository define a interface para operações de banco de dados de notificações
type Repository interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]Notification, error)
	Update(ctx context.Context, n *Notification) error
	Stats(ctx context.Context) (*NotificationStats, error)
	// FindRetryable returns failed notifications with attempts left, oldest first.
	FindRetryable(ctx context.Context, limit int64) ([]Notification, error)
}

type MongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) Repository {
	return &MongoNotificationRepository{
		collection: db.Collection(collectionName),
	}
}

func (r *MongoNotificationRepository) Migrate(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "event_type", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepository) Create(ctx context.Context, n *Notification) error {
	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var n Notification
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *MongoNotificationRepository) List(ctx context.Context, filter NotificationFilter) ([]Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(filter.Offset).
		SetLimit(filter.Limit)

	return r.find(ctx, filter.query(), opts)
}

func (r *MongoNotificationRepository) Update(ctx context.Context, n *Notification) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": n.ID}, n)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("notification %s not found", n.ID.Hex())
	}
	return nil
}

func (r *MongoNotificationRepository) Stats(ctx context.Context) (*NotificationStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notification stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode notification stats: %w", err)
	}

	stats := &NotificationStats{}
	for _, row := range rows {
		stats.add(row.Status, row.Count)
	}
	return stats, nil
}

func (r *MongoNotificationRepository) FindRetryable(ctx context.Context, limit int64) ([]Notification, error) {
	query := bson.M{
		"status": StatusFailed,
		"$expr":  bson.M{"$lt": bson.A{"$retry_count", "$max_retries"}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	return r.find(ctx, query, opts)
}

func (r *MongoNotificationRepository) find(ctx context.Context, query any, opts *options.FindOptions) ([]Notification, error) {
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}
