package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpgram-backend/internal/features/user/models"
	"cpgram-backend/internal/features/user/repository"
)

// memUserRepo keeps the filtered-update semantics of the Mongo repository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*models.User{}}
}

func (r *memUserRepo) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.TelegramID]
	if !ok {
		clone := *user
		r.users[user.TelegramID] = &clone
		existing = &clone
	} else {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.IsAdmin = user.IsAdmin
	}
	clone := *existing
	return &clone, nil
}

func (r *memUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[telegramID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) IncrementBalance(ctx context.Context, telegramID int64, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[telegramID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.CPCBalance += delta
	return nil
}

func (r *memUserRepo) DecrementBalanceIfAtLeast(ctx context.Context, telegramID int64, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[telegramID]
	if !ok || user.CPCBalance < amount {
		return repository.ErrInsufficientFunds
	}
	user.CPCBalance -= amount
	return nil
}

func (r *memUserRepo) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *memUserRepo) balance(telegramID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[telegramID].CPCBalance
}

func TestGetOrCreateUserSetsAdminFlag(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, []string{"42", "not-a-number"})
	ctx := context.Background()

	admin, err := svc.GetOrCreateUser(ctx, 42, "admin", "Ada", "")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	regular, err := svc.GetOrCreateUser(ctx, 7, "user", "Bob", "")
	require.NoError(t, err)
	assert.False(t, regular.IsAdmin)
}

func TestGetOrCreateUserKeepsBalance(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreateUser(ctx, 7, "user", "Bob", "")
	require.NoError(t, err)
	require.NoError(t, svc.CreditCompletion(ctx, 7, 500))

	again, err := svc.GetOrCreateUser(ctx, 7, "renamed", "Bob", "")
	require.NoError(t, err)
	assert.Equal(t, int64(500), again.CPCBalance)
	assert.Equal(t, "renamed", again.Username)
}

func TestTransferCostMovesFunds(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreateUser(ctx, 1, "payer", "", "")
	require.NoError(t, err)
	_, err = svc.GetOrCreateUser(ctx, 2, "payee", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.CreditCompletion(ctx, 1, 300))

	require.NoError(t, svc.TransferCost(ctx, 1, 2, 200))

	assert.Equal(t, int64(100), repo.balance(1))
	assert.Equal(t, int64(200), repo.balance(2))
}

func TestTransferCostInsufficientFundsLeavesBalancesUntouched(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreateUser(ctx, 1, "payer", "", "")
	require.NoError(t, err)
	_, err = svc.GetOrCreateUser(ctx, 2, "payee", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.CreditCompletion(ctx, 1, 100))

	err = svc.TransferCost(ctx, 1, 2, 200)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	assert.Equal(t, int64(100), repo.balance(1))
	assert.Equal(t, int64(0), repo.balance(2))
}

func TestApplyPenaltyMayGoNegative(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.GetOrCreateUser(ctx, 1, "user", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.CreditCompletion(ctx, 1, 100))

	require.NoError(t, svc.ApplyPenalty(ctx, 1, 250))

	assert.Equal(t, int64(-150), repo.balance(1))
}
