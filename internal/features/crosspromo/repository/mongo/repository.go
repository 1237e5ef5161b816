package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"cpgram-backend/internal/features/crosspromo/models"
	"cpgram-backend/internal/features/crosspromo/repository"
)

type requestRepository struct {
	requests *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) repository.RequestRepository {
	return &requestRepository{
		requests: db.Collection("requests"),
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.CrossPromoRequest) error {
	_, err := r.requests.InsertOne(ctx, request)
	return err
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*models.CrossPromoRequest, error) {
	var request models.CrossPromoRequest
	err := r.requests.FindOne(ctx, bson.M{"id": id}).Decode(&request)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *requestRepository) ListByChannelIDs(ctx context.Context, channelIDs []string) ([]*models.CrossPromoRequest, error) {
	cursor, err := r.requests.Find(ctx, bson.M{
		"$or": bson.A{
			bson.M{"fromChannelId": bson.M{"$in": channelIDs}},
			bson.M{"toChannelId": bson.M{"$in": channelIDs}},
		},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var requests []*models.CrossPromoRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) UpdateStatusAtomic(ctx context.Context, id string, from, to models.RequestStatus, acceptedAt *time.Time) error {
	set := bson.M{"status": to}
	if acceptedAt != nil {
		set["accepted_at"] = *acceptedAt
	}

	res, err := r.requests.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

func (r *requestRepository) CountAcceptedByChannel(ctx context.Context, channelID string) (int64, error) {
	return r.requests.CountDocuments(ctx, bson.M{
		"status": models.RequestAccepted,
		"$or": bson.A{
			bson.M{"fromChannelId": channelID},
			bson.M{"toChannelId": channelID},
		},
	})
}

func (r *requestRepository) Count(ctx context.Context) (int64, error) {
	return r.requests.CountDocuments(ctx, bson.M{})
}
