package repository

import (
	"context"
	"errors"

	"cpgram-backend/internal/features/payment/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrPreconditionFailed means the status filter matched no document.
	ErrPreconditionFailed = errors.New("transaction state precondition failed")
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetByIDForUser(ctx context.Context, transactionID string, telegramID int64) (*models.Transaction, error)
	ListByUser(ctx context.Context, telegramID int64, limit int64) ([]*models.Transaction, error)

	// MarkSuccessIfPending settles the transaction only while it is still
	// pending, which makes webhook redelivery idempotent.
	MarkSuccessIfPending(ctx context.Context, transactionID, telegramChargeID, providerChargeID string) error

	MarkFailed(ctx context.Context, transactionID, reason string) error

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error)

	// SuccessTotals sums the coins sold and stars collected over settled
	// transactions.
	SuccessTotals(ctx context.Context) (totalCPC, totalStars int64, err error)
}
