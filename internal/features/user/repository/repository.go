package repository

import (
	"context"
	"errors"

	"cpgram-backend/internal/features/user/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// UserRepository is the persistence boundary for users. Balance mutations are
// narrow atomic increments, never read-modify-write.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// IncrementBalance applies an unconditional delta to cpcBalance. The
	// delta may be negative and may drive the balance below zero.
	IncrementBalance(ctx context.Context, telegramID int64, delta int64) error

	// DecrementBalanceIfAtLeast debits amount only when the current balance
	// covers it, in a single filtered update. Returns ErrInsufficientFunds
	// without touching the record otherwise.
	DecrementBalanceIfAtLeast(ctx context.Context, telegramID int64, amount int64) error

	ListTelegramIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}
