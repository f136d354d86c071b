package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/sessionpulse/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type MongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(collection *mongo.Collection) *MongoSessionRepository {
	return &MongoSessionRepository{collection: collection}
}

// EnsureIndexes creates the unique session_id index backing the one record
// per id invariant and the updated_at index used by the sweep.
func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("session_id_unique"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetName("updated_at"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (r *MongoSessionRepository) Upsert(ctx context.Context, session *models.Session) (bool, error) {
	updatedAt := session.UpdatedAt.UTC()

	filter := bson.M{"session_id": session.SessionID}
	update := bson.M{
		"$set": bson.M{
			"user_agent":  session.UserAgent,
			"device_type": session.DeviceType,
			"updated_at":  updatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": updatedAt,
		},
	}
	// The pre-image is nil exactly when the upsert inserted
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var previous models.Session
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&previous)

	session.UpdatedAt = updatedAt
	if errors.Is(err, mongo.ErrNoDocuments) {
		session.CreatedAt = updatedAt
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert session: %w", err)
	}

	session.CreatedAt = previous.CreatedAt.UTC()
	return false, nil
}

func (r *MongoSessionRepository) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return &session, nil
}

func (r *MongoSessionRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *MongoSessionRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, readpref.Primary())
}
