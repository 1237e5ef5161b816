package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Client wraps the driver client together with the application database.
type Client struct {
	*mongo.Client
	DB *mongo.Database
}

// Open connects to MongoDB and pings it to validate the connection.
func Open(ctx context.Context, uri, database string) (*Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("empty mongo uri")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Client{Client: client, DB: client.Database(database)}, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on. Index creation
// is idempotent, so it runs on every startup.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	specs := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "telegram_id", Value: 1}}, Options: unique},
		},
		"channels": {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"requests": {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"campaigns": {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"user_tasks": {
			{Keys: bson.D{{Key: "telegram_id", Value: 1}}, Options: unique},
		},
		"transactions": {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "telegram_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}

	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}
