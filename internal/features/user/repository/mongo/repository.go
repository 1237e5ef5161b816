package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cpgram-backend/internal/features/user/models"
	"cpgram-backend/internal/features/user/repository"
)

type userRepository struct {
	users *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &userRepository{
		users: db.Collection("users"),
	}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()

	filter := bson.M{"telegram_id": user.TelegramID}
	update := bson.M{
		"$set": bson.M{
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"photo_url":  user.PhotoURL,
			"isAdmin":    user.IsAdmin,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"telegram_id": user.TelegramID,
			"cpcBalance":  int64(0),
			"created_at":  now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result models.User
	if err := r.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) IncrementBalance(ctx context.Context, telegramID int64, delta int64) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{
			"$inc": bson.M{"cpcBalance": delta},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) DecrementBalanceIfAtLeast(ctx context.Context, telegramID int64, amount int64) error {
	// The balance precondition rides in the filter so the check and the
	// debit are a single atomic document update.
	res, err := r.users.UpdateOne(ctx,
		bson.M{
			"telegram_id": telegramID,
			"cpcBalance":  bson.M{"$gte": amount},
		},
		bson.M{
			"$inc": bson.M{"cpcBalance": -amount},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrInsufficientFunds
	}
	return nil
}

func (r *userRepository) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	opts := options.Find().SetProjection(bson.M{"telegram_id": 1})
	cursor, err := r.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []int64
	for cursor.Next(ctx) {
		var doc struct {
			TelegramID int64 `bson:"telegram_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.TelegramID)
	}
	return ids, cursor.Err()
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	return r.users.CountDocuments(ctx, bson.M{})
}
