package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cpgram-backend/internal/features/channel/models"
	"cpgram-backend/internal/features/channel/repository"
)

type channelRepository struct {
	channels *mongo.Collection
}

func NewChannelRepository(db *mongo.Database) repository.ChannelRepository {
	return &channelRepository{
		channels: db.Collection("channels"),
	}
}

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	_, err := r.channels.InsertOne(ctx, channel)
	return err
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *channelRepository) GetByIDAndOwner(ctx context.Context, id string, ownerID int64) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"id": id, "owner_id": ownerID})
}

func (r *channelRepository) findOne(ctx context.Context, filter bson.M) (*models.Channel, error) {
	var channel models.Channel
	err := r.channels.FindOne(ctx, filter).Decode(&channel)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (r *channelRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Channel, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *channelRepository) ListByStatus(ctx context.Context, status models.ChannelStatus) ([]*models.Channel, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *channelRepository) ListApprovedActive(ctx context.Context) ([]*models.Channel, error) {
	return r.find(ctx, bson.M{"status": models.ChannelStatusApproved, "is_paused": false})
}

func (r *channelRepository) find(ctx context.Context, filter bson.M) ([]*models.Channel, error) {
	cursor, err := r.channels.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var channels []*models.Channel
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *channelRepository) Update(ctx context.Context, id string, ownerID int64, fields map[string]interface{}) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for key, value := range fields {
		set[key] = value
	}

	res, err := r.channels.UpdateOne(ctx,
		bson.M{"id": id, "owner_id": ownerID},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrChannelNotFound
	}
	return nil
}

func (r *channelRepository) UpdateStatus(ctx context.Context, id string, status models.ChannelStatus) error {
	res, err := r.channels.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrChannelNotFound
	}
	return nil
}

func (r *channelRepository) SetPaused(ctx context.Context, id string, ownerID int64, paused bool) error {
	// Pending channels cannot toggle pause, so the current status rides in
	// the filter.
	res, err := r.channels.UpdateOne(ctx,
		bson.M{
			"id":       id,
			"owner_id": ownerID,
			"status":   bson.M{"$ne": models.ChannelStatusPending},
		},
		bson.M{"$set": bson.M{"is_paused": paused, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrChannelNotFound
	}
	return nil
}

func (r *channelRepository) Delete(ctx context.Context, id string, ownerID int64) error {
	res, err := r.channels.DeleteOne(ctx, bson.M{"id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrChannelNotFound
	}
	return nil
}

func (r *channelRepository) IncrementExchanges(ctx context.Context, id string) error {
	_, err := r.channels.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{
			"$inc": bson.M{"xExchanges": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

func (r *channelRepository) Count(ctx context.Context) (int64, error) {
	return r.channels.CountDocuments(ctx, bson.M{})
}

func (r *channelRepository) CountByStatus(ctx context.Context, status models.ChannelStatus) (int64, error) {
	return r.channels.CountDocuments(ctx, bson.M{"status": status})
}
