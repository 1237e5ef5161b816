package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cpgram-backend/internal/features/payment/models"
	"cpgram-backend/internal/features/payment/repository"
)

type transactionRepository struct {
	transactions *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) repository.TransactionRepository {
	return &transactionRepository{
		transactions: db.Collection("transactions"),
	}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	_, err := r.transactions.InsertOne(ctx, transaction)
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return r.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (r *transactionRepository) GetByIDForUser(ctx context.Context, transactionID string, telegramID int64) (*models.Transaction, error) {
	return r.findOne(ctx, bson.M{"transaction_id": transactionID, "telegram_id": telegramID})
}

func (r *transactionRepository) findOne(ctx context.Context, filter bson.M) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.transactions.FindOne(ctx, filter).Decode(&transaction)
	if err == mongo.ErrNoDocuments {
		return nil, repository.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, telegramID int64, limit int64) ([]*models.Transaction, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cursor, err := r.transactions.Find(ctx, bson.M{"telegram_id": telegramID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *transactionRepository) MarkSuccessIfPending(ctx context.Context, transactionID, telegramChargeID, providerChargeID string) error {
	now := time.Now().UTC()
	res, err := r.transactions.UpdateOne(ctx,
		bson.M{"transaction_id": transactionID, "status": models.TransactionPending},
		bson.M{"$set": bson.M{
			"status":                     models.TransactionSuccess,
			"telegram_payment_charge_id": telegramChargeID,
			"provider_payment_charge_id": providerChargeID,
			"webhook_timestamp":          now,
			"updated_at":                 now,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

func (r *transactionRepository) MarkFailed(ctx context.Context, transactionID, reason string) error {
	_, err := r.transactions.UpdateOne(ctx,
		bson.M{"transaction_id": transactionID},
		bson.M{"$set": bson.M{
			"status":     models.TransactionFailed,
			"error":      reason,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}

func (r *transactionRepository) Count(ctx context.Context) (int64, error) {
	return r.transactions.CountDocuments(ctx, bson.M{})
}

func (r *transactionRepository) CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error) {
	return r.transactions.CountDocuments(ctx, bson.M{"status": status})
}

func (r *transactionRepository) SuccessTotals(ctx context.Context) (int64, int64, error) {
	cursor, err := r.transactions.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"status": models.TransactionSuccess}},
		{"$group": bson.M{
			"_id":         nil,
			"total_cpc":   bson.M{"$sum": "$cpc_amount"},
			"total_stars": bson.M{"$sum": "$stars_cost"},
		}},
	})
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var totals []struct {
		TotalCPC   int64 `bson:"total_cpc"`
		TotalStars int64 `bson:"total_stars"`
	}
	if err := cursor.All(ctx, &totals); err != nil {
		return 0, 0, err
	}
	if len(totals) == 0 {
		return 0, 0, nil
	}
	return totals[0].TotalCPC, totals[0].TotalStars, nil
}
