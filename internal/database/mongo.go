package database

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/sessionpulse/internal/logger"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	MongoMaxPoolSize    = 50
	MongoConnectTimeout = 10 * time.Second
)

func NewMongoClient(ctx context.Context, mongoURL string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(MongoMaxPoolSize).
		SetConnectTimeout(MongoConnectTimeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("error creating mongo client: %w", err)
	}

	// Connect is lazy; Ping forces a round trip so startup fails fast
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongo: %w", err)
	}

	logger.Info("Mongo client created successfully")

	return client, nil
}
