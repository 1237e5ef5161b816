package service

import (
	"context"
	"strconv"

	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/features/user/models"
	"cpgram-backend/internal/features/user/repository"
)

// UserService owns user records and is the only entry point for CP Coin
// balance mutations (the ledger operations).
type UserService interface {
	GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error)
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	ListRecipients(ctx context.Context) ([]int64, error)

	// CreditCompletion credits a completion reward or a purchased amount.
	CreditCompletion(ctx context.Context, telegramID int64, amount int64) error

	// TransferCost moves amount from one user to another. The debit half is
	// conditional on the payer's balance covering the amount; on
	// ErrInsufficientFunds nothing is applied.
	TransferCost(ctx context.Context, fromID, toID int64, amount int64) error

	// ApplyPenalty debits amount unconditionally. The balance may go
	// negative.
	ApplyPenalty(ctx context.Context, telegramID int64, amount int64) error
}

type userService struct {
	repo     repository.UserRepository
	adminIDs map[int64]bool
}

func NewUserService(repo repository.UserRepository, adminIDs []string) UserService {
	admins := make(map[int64]bool, len(adminIDs))
	for _, idStr := range adminIDs {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			admins[id] = true
		}
	}

	return &userService{
		repo:     repo,
		adminIDs: admins,
	}
}

func (s *userService) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	user := &models.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		IsAdmin:    s.adminIDs[telegramID],
	}

	return s.repo.Upsert(ctx, user)
}

func (s *userService) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetByTelegramID(ctx, telegramID)
}

func (s *userService) ListRecipients(ctx context.Context) ([]int64, error) {
	return s.repo.ListTelegramIDs(ctx)
}

func (s *userService) CreditCompletion(ctx context.Context, telegramID int64, amount int64) error {
	if err := s.repo.IncrementBalance(ctx, telegramID, amount); err != nil {
		return err
	}

	logger.Info().
		Int64("user_id", telegramID).
		Int64("amount", amount).
		Msg("Credited completion reward")
	return nil
}

func (s *userService) TransferCost(ctx context.Context, fromID, toID int64, amount int64) error {
	if err := s.repo.DecrementBalanceIfAtLeast(ctx, fromID, amount); err != nil {
		return err
	}

	if err := s.repo.IncrementBalance(ctx, toID, amount); err != nil {
		// The debit already applied; surface the failure instead of trying
		// to unwind without transactions. The credit is retried by support
		// tooling from the transfer log line below.
		logger.Error().
			Err(err).
			Int64("from", fromID).
			Int64("to", toID).
			Int64("amount", amount).
			Msg("Transfer credit half failed after debit")
		return err
	}

	logger.Info().
		Int64("from", fromID).
		Int64("to", toID).
		Int64("amount", amount).
		Msg("Transferred CP Coins")
	return nil
}

func (s *userService) ApplyPenalty(ctx context.Context, telegramID int64, amount int64) error {
	if err := s.repo.IncrementBalance(ctx, telegramID, -amount); err != nil {
		return err
	}

	logger.Info().
		Int64("user_id", telegramID).
		Int64("amount", amount).
		Msg("Applied penalty")
	return nil
}
