package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cpgram-backend/internal/features/task/models"
	"cpgram-backend/internal/features/task/repository"
)

type taskRepository struct {
	tasks *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) repository.TaskRepository {
	return &taskRepository{
		tasks: db.Collection("user_tasks"),
	}
}

func (r *taskRepository) Get(ctx context.Context, telegramID int64) (*models.TaskRecord, error) {
	var record models.TaskRecord
	err := r.tasks.FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return &models.TaskRecord{TelegramID: telegramID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// claimOnce performs a guarded upsert: the filter excludes documents where the
// flag is already true, so a second claim either matches nothing (flag set) or
// attempts a duplicate insert. Both cases surface as ErrAlreadyClaimed, which
// makes each flag a one-shot even under concurrent requests.
func (r *taskRepository) claimOnce(ctx context.Context, telegramID int64, set bson.M, guardFlag string) error {
	res, err := r.tasks.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID, guardFlag: bson.M{"$ne": true}},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrAlreadyClaimed
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return repository.ErrAlreadyClaimed
	}
	return nil
}

func (r *taskRepository) MarkClaimed(ctx context.Context, telegramID int64, flag, claimedAtField string) error {
	return r.claimOnce(ctx, telegramID, bson.M{
		flag:           true,
		claimedAtField: time.Now().UTC(),
	}, flag)
}

func (r *taskRepository) MarkInviteStarted(ctx context.Context, telegramID int64, channelID, campaignID string) error {
	flag := "invite_users_" + channelID
	return r.claimOnce(ctx, telegramID, bson.M{
		flag:                           true,
		flag + "_started_at":           time.Now().UTC(),
		"invite_campaign_" + channelID: campaignID,
	}, flag)
}

func (r *taskRepository) MarkInviteCompleted(ctx context.Context, telegramID int64) error {
	_, err := r.tasks.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$set": bson.M{"invite_users": true}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *taskRepository) ResetInviteFlags(ctx context.Context) (int64, error) {
	res, err := r.tasks.UpdateMany(ctx,
		bson.M{},
		bson.M{"$set": bson.M{"invite_users": false}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
