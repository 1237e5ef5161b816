package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/features/campaign/models"
	"cpgram-backend/internal/features/campaign/repository"
	channelmodels "cpgram-backend/internal/features/channel/models"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	usermodels "cpgram-backend/internal/features/user/models"
	userrepo "cpgram-backend/internal/features/user/repository"
	userservice "cpgram-backend/internal/features/user/service"
)

// memCampaignRepo implements CampaignRepository in memory with the same CAS
// semantics as the Mongo implementation.
type memCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*models.Campaign
}

func newMemCampaignRepo() *memCampaignRepo {
	return &memCampaignRepo{campaigns: map[string]*models.Campaign{}}
}

func (r *memCampaignRepo) party(c *models.Campaign, role models.PartyRole) *models.PartyState {
	if role == models.RoleRequester {
		return &c.Requester
	}
	return &c.Acceptor
}

func (r *memCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *campaign
	r.campaigns[campaign.ID] = &clone
	return nil
}

func (r *memCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, repository.ErrCampaignNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memCampaignRepo) ListByChannelIDs(ctx context.Context, channelIDs []string) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range channelIDs {
		ids[id] = true
	}
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if ids[c.FromChannelID] || ids[c.ToChannelID] {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.campaigns)), nil
}

func (r *memCampaignRepo) SetPartyPosted(ctx context.Context, id string, role models.PartyRole, postLink string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return repository.ErrPreconditionFailed
	}
	p := r.party(c, role)
	if p.Status != models.PartyPendingPosting && p.Status != models.PartyActive {
		return repository.ErrPreconditionFailed
	}
	p.Status = models.PartyActive
	p.PostLink = postLink
	p.PostedAt = &now
	return nil
}

func (r *memCampaignRepo) CompletePartyReward(ctx context.Context, id string, role models.PartyRole, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return repository.ErrPreconditionFailed
	}
	p := r.party(c, role)
	if p.Status != models.PartyActive || p.RewardGiven {
		return repository.ErrPreconditionFailed
	}
	p.Status = models.PartyCompleted
	p.EndedAt = &now
	p.RewardGiven = true
	return nil
}

func (r *memCampaignRepo) IncrementStats(ctx context.Context, id string, impressions, clicks int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil
	}
	c.Impressions += impressions
	c.Clicks += clicks
	return nil
}

func (r *memCampaignRepo) ListCompletedByToChannels(ctx context.Context, channelIDs []string) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range channelIDs {
		ids[id] = true
	}
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.Kind == models.KindManual && ids[c.ToChannelID] && c.Acceptor.Status == models.PartyCompleted {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) CountCompletedByFromChannels(ctx context.Context, channelIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range channelIDs {
		ids[id] = true
	}
	var n int64
	for _, c := range r.campaigns {
		if c.Kind == models.KindManual && ids[c.FromChannelID] && c.Requester.Status == models.PartyCompleted {
			n++
		}
	}
	return n, nil
}

func (r *memCampaignRepo) ListPastPostingDeadline(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.Kind != models.KindManual || c.PostingDeadline.After(now) {
			continue
		}
		req, acc := c.Requester, c.Acceptor
		if (req.Status == models.PartyPendingPosting && !req.DeadlineNotified) ||
			(acc.Status == models.PartyPendingPosting && !acc.DeadlineNotified) {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) ExpireParty(ctx context.Context, id string, role models.PartyRole, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return repository.ErrPreconditionFailed
	}
	p := r.party(c, role)
	if p.Status != models.PartyPendingPosting || p.DeadlineNotified {
		return repository.ErrPreconditionFailed
	}
	p.Status = models.PartyExpired
	p.DeadlineNotified = true
	return nil
}

func (r *memCampaignRepo) ListActivePartiesUnnotified(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.Kind != models.KindManual {
			continue
		}
		req, acc := c.Requester, c.Acceptor
		if (req.Status == models.PartyActive && !req.NotifiedExpiry) ||
			(acc.Status == models.PartyActive && !acc.NotifiedExpiry) {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) MarkPartyExpiryNotified(ctx context.Context, id string, role models.PartyRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return repository.ErrPreconditionFailed
	}
	p := r.party(c, role)
	if p.Status != models.PartyActive || p.NotifiedExpiry {
		return repository.ErrPreconditionFailed
	}
	p.NotifiedExpiry = true
	return nil
}

func (r *memCampaignRepo) ListDueScheduled(ctx context.Context, window time.Time) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.Status == models.LegacyScheduled && c.StartAt != nil && !c.StartAt.After(window) {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) MarkRunning(ctx context.Context, id string, messageID int, postedAt, endAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.Status != models.LegacyScheduled {
		return repository.ErrPreconditionFailed
	}
	c.Status = models.LegacyRunning
	c.MessageID = messageID
	c.PostedAt = &postedAt
	c.EndAt = &endAt
	return nil
}

func (r *memCampaignRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.Status != models.LegacyScheduled {
		return repository.ErrPreconditionFailed
	}
	c.Status = models.LegacyFailed
	c.Error = reason
	return nil
}

func (r *memCampaignRepo) ListFinishedRunning(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.Status == models.LegacyRunning && c.EndAt != nil && !c.EndAt.After(now) {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) MarkEnded(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.Status != models.LegacyRunning {
		return repository.ErrPreconditionFailed
	}
	c.Status = models.LegacyEnded
	return nil
}

func (r *memCampaignRepo) ListRunningUnnotifiedInviteTasks(ctx context.Context) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.Kind == models.KindInviteTask && c.Status == models.LegacyRunning && !c.ExpiryNotified {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCampaignRepo) MarkExpiryNotified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.ExpiryNotified {
		return repository.ErrPreconditionFailed
	}
	c.ExpiryNotified = true
	return nil
}

// memChannelRepo holds channels keyed by ID. Only the methods the campaign
// flows touch are meaningful.
type memChannelRepo struct {
	mu        sync.Mutex
	channels  map[string]*channelmodels.Channel
	exchanges map[string]int
}

func newMemChannelRepo(channels ...*channelmodels.Channel) *memChannelRepo {
	r := &memChannelRepo{channels: map[string]*channelmodels.Channel{}, exchanges: map[string]int{}}
	for _, ch := range channels {
		r.channels[ch.ID] = ch
	}
	return r
}

func (r *memChannelRepo) Create(ctx context.Context, channel *channelmodels.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[channel.ID] = channel
	return nil
}

func (r *memChannelRepo) GetByID(ctx context.Context, id string) (*channelmodels.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, channelrepo.ErrChannelNotFound
	}
	return ch, nil
}

func (r *memChannelRepo) GetByIDAndOwner(ctx context.Context, id string, ownerID int64) (*channelmodels.Channel, error) {
	ch, err := r.GetByID(ctx, id)
	if err != nil || ch.OwnerID != ownerID {
		return nil, channelrepo.ErrChannelNotFound
	}
	return ch, nil
}

func (r *memChannelRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*channelmodels.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*channelmodels.Channel
	for _, ch := range r.channels {
		if ch.OwnerID == ownerID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *memChannelRepo) ListByStatus(ctx context.Context, status channelmodels.ChannelStatus) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memChannelRepo) ListApprovedActive(ctx context.Context) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memChannelRepo) Update(ctx context.Context, id string, ownerID int64, fields map[string]interface{}) error {
	return nil
}

func (r *memChannelRepo) UpdateStatus(ctx context.Context, id string, status channelmodels.ChannelStatus) error {
	return nil
}

func (r *memChannelRepo) SetPaused(ctx context.Context, id string, ownerID int64, paused bool) error {
	return nil
}

func (r *memChannelRepo) Delete(ctx context.Context, id string, ownerID int64) error {
	return nil
}

func (r *memChannelRepo) IncrementExchanges(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges[id]++
	return nil
}

func (r *memChannelRepo) Count(ctx context.Context) (int64, error) { return 0, nil }

func (r *memChannelRepo) CountByStatus(ctx context.Context, status channelmodels.ChannelStatus) (int64, error) {
	return 0, nil
}

// memUserLedger implements the user service over an in-memory balance map
// with the same guarded-debit semantics as the Mongo repository.
type memUserLedger struct {
	mu       sync.Mutex
	balances map[int64]int64
}

func newMemUserLedger(balances map[int64]int64) *memUserLedger {
	if balances == nil {
		balances = map[int64]int64{}
	}
	return &memUserLedger{balances: balances}
}

func (l *memUserLedger) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*usermodels.User, error) {
	return &usermodels.User{TelegramID: telegramID}, nil
}

func (l *memUserLedger) GetUser(ctx context.Context, telegramID int64) (*usermodels.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &usermodels.User{TelegramID: telegramID, CPCBalance: l.balances[telegramID]}, nil
}

func (l *memUserLedger) ListRecipients(ctx context.Context) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []int64
	for id := range l.balances {
		ids = append(ids, id)
	}
	return ids, nil
}

func (l *memUserLedger) CreditCompletion(ctx context.Context, telegramID int64, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[telegramID] += amount
	return nil
}

func (l *memUserLedger) TransferCost(ctx context.Context, fromID, toID int64, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[fromID] < amount {
		return userrepo.ErrInsufficientFunds
	}
	l.balances[fromID] -= amount
	l.balances[toID] += amount
	return nil
}

func (l *memUserLedger) ApplyPenalty(ctx context.Context, telegramID int64, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[telegramID] -= amount
	return nil
}

func (l *memUserLedger) balance(telegramID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[telegramID]
}

var _ userservice.UserService = (*memUserLedger)(nil)

const (
	requesterOwner int64 = 100
	acceptorOwner  int64 = 200
)

func testChannels() (*channelmodels.Channel, *channelmodels.Channel) {
	from := &channelmodels.Channel{
		ID:          "ch_from",
		OwnerID:     requesterOwner,
		Name:        "Requester Channel",
		Status:      channelmodels.ChannelStatusApproved,
		Subscribers: 2000,
	}
	to := &channelmodels.Channel{
		ID:          "ch_to",
		OwnerID:     acceptorOwner,
		Name:        "Acceptor Channel",
		Status:      channelmodels.ChannelStatusApproved,
		Subscribers: 4000,
	}
	return from, to
}

func newTestCampaignService(balances map[int64]int64) (CampaignService, *memCampaignRepo, *memUserLedger) {
	from, to := testChannels()
	repo := newMemCampaignRepo()
	ledger := newMemUserLedger(balances)
	svc := NewCampaignService(repo, newMemChannelRepo(from, to), ledger)
	return svc, repo, ledger
}

func createCampaign(t *testing.T, svc CampaignService, cpcCost int64) *models.Campaign {
	t.Helper()
	campaign, err := svc.CreateTwoParty(context.Background(), "req_1", "ch_from", "ch_to",
		channelmodels.PromoMaterial{Text: "requester promo"},
		channelmodels.PromoMaterial{Text: "acceptor promo"},
		24, cpcCost)
	require.NoError(t, err)
	return campaign
}

func TestCreateTwoPartyStartsBothPending(t *testing.T) {
	svc, repo, ledger := newTestCampaignService(map[int64]int64{requesterOwner: 1000})

	campaign := createCampaign(t, svc, 500)

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyPendingPosting, stored.Requester.Status)
	assert.Equal(t, models.PartyPendingPosting, stored.Acceptor.Status)
	assert.False(t, stored.Requester.RewardGiven)
	assert.False(t, stored.Acceptor.RewardGiven)

	// No coins move at creation time.
	assert.Equal(t, int64(1000), ledger.balance(requesterOwner))
	assert.Equal(t, int64(0), ledger.balance(acceptorOwner))
}

func TestSubmitPostLinkActivatesOnlyOwnSide(t *testing.T) {
	svc, repo, _ := newTestCampaignService(nil)
	campaign := createCampaign(t, svc, 500)

	err := svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/2")
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyActive, stored.Requester.Status)
	assert.Equal(t, "https://t.me/c/1/2", stored.Requester.PostLink)
	assert.NotNil(t, stored.Requester.PostedAt)
	assert.Equal(t, models.PartyPendingPosting, stored.Acceptor.Status)
}

func TestSubmitPostLinkResubmitOverwrites(t *testing.T) {
	svc, repo, _ := newTestCampaignService(nil)
	campaign := createCampaign(t, svc, 500)

	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/2"))
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/3"))

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyActive, stored.Requester.Status)
	assert.Equal(t, "https://t.me/c/1/3", stored.Requester.PostLink)
}

func TestSubmitPostLinkForbiddenForOutsider(t *testing.T) {
	svc, _, _ := newTestCampaignService(nil)
	campaign := createCampaign(t, svc, 500)

	err := svc.SubmitPostLink(context.Background(), campaign.ID, 999, "https://t.me/c/1/2")
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeForbidden, appErr.Code)
}

func TestEndAndRewardRequesterGetsFlatBonus(t *testing.T) {
	svc, repo, ledger := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/2"))

	result, err := svc.EndAndReward(context.Background(), campaign.ID, requesterOwner)
	require.NoError(t, err)
	assert.Equal(t, RequesterCompletionReward, result.Reward)
	assert.Equal(t, models.RoleRequester, result.Role)

	// Flat bonus, not the campaign price.
	assert.Equal(t, int64(1000)+RequesterCompletionReward, ledger.balance(requesterOwner))

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyCompleted, stored.Requester.Status)
	assert.True(t, stored.Requester.RewardGiven)
	assert.Equal(t, models.PartyPendingPosting, stored.Acceptor.Status)
}

func TestEndAndRewardAcceptorTransfersCost(t *testing.T) {
	svc, _, ledger := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, acceptorOwner, "https://t.me/c/2/5"))

	result, err := svc.EndAndReward(context.Background(), campaign.ID, acceptorOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.Reward)
	assert.Equal(t, models.RoleAcceptor, result.Role)

	assert.Equal(t, int64(500), ledger.balance(requesterOwner))
	assert.Equal(t, int64(500), ledger.balance(acceptorOwner))
}

func TestEndAndRewardSecondClaimRejected(t *testing.T) {
	svc, _, ledger := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/2"))

	_, err := svc.EndAndReward(context.Background(), campaign.ID, requesterOwner)
	require.NoError(t, err)

	_, err = svc.EndAndReward(context.Background(), campaign.ID, requesterOwner)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeAlreadyRewarded, appErr.Code)

	// Paid exactly once.
	assert.Equal(t, int64(1000)+RequesterCompletionReward, ledger.balance(requesterOwner))
}

func TestEndAndRewardInsufficientFundsLeavesStateUntouched(t *testing.T) {
	svc, repo, ledger := newTestCampaignService(map[int64]int64{requesterOwner: 100})
	campaign := createCampaign(t, svc, 500)
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, acceptorOwner, "https://t.me/c/2/5"))

	_, err := svc.EndAndReward(context.Background(), campaign.ID, acceptorOwner)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInsufficientFunds, appErr.Code)

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyActive, stored.Acceptor.Status)
	assert.False(t, stored.Acceptor.RewardGiven)
	assert.Equal(t, int64(100), ledger.balance(requesterOwner))
	assert.Equal(t, int64(0), ledger.balance(acceptorOwner))
}

func TestEndAndRewardRequiresActiveSide(t *testing.T) {
	svc, _, _ := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)

	// Still pending_posting, cannot complete.
	_, err := svc.EndAndReward(context.Background(), campaign.ID, requesterOwner)
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConflict, appErr.Code)
}

func TestPartiesCompleteIndependently(t *testing.T) {
	svc, repo, ledger := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)

	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/2"))
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, acceptorOwner, "https://t.me/c/2/5"))

	_, err := svc.EndAndReward(context.Background(), campaign.ID, requesterOwner)
	require.NoError(t, err)
	_, err = svc.EndAndReward(context.Background(), campaign.ID, acceptorOwner)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyCompleted, stored.Requester.Status)
	assert.Equal(t, models.PartyCompleted, stored.Acceptor.Status)

	// 1000 + 150 bonus - 500 transferred out.
	assert.Equal(t, int64(650), ledger.balance(requesterOwner))
	assert.Equal(t, int64(500), ledger.balance(acceptorOwner))
}

func TestGetUserCampaignsReturnsRoleSpecificPromo(t *testing.T) {
	svc, _, _ := newTestCampaignService(nil)
	campaign := createCampaign(t, svc, 500)

	requesterViews, err := svc.GetUserCampaigns(context.Background(), requesterOwner)
	require.NoError(t, err)
	require.Len(t, requesterViews, 1)
	assert.Equal(t, campaign.ID, requesterViews[0].ID)
	assert.Equal(t, models.RoleRequester, requesterViews[0].UserRole)
	// The requester posts the acceptor's material.
	assert.Equal(t, "acceptor promo", requesterViews[0].Promo.Text)
	assert.Equal(t, "Acceptor Channel", requesterViews[0].PartnerChannelName)

	acceptorViews, err := svc.GetUserCampaigns(context.Background(), acceptorOwner)
	require.NoError(t, err)
	require.Len(t, acceptorViews, 1)
	assert.Equal(t, models.RoleAcceptor, acceptorViews[0].UserRole)
	assert.Equal(t, "requester promo", acceptorViews[0].Promo.Text)
	assert.Equal(t, "Requester Channel", acceptorViews[0].PartnerChannelName)
}

func TestGetUserCampaignsEmptyForUserWithoutChannels(t *testing.T) {
	svc, _, _ := newTestCampaignService(nil)
	createCampaign(t, svc, 500)

	views, err := svc.GetUserCampaigns(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestExpirePartyDoesNotSetEndedAt(t *testing.T) {
	svc, repo, _ := newTestCampaignService(nil)
	campaign := createCampaign(t, svc, 500)

	err := repo.ExpireParty(context.Background(), campaign.ID, models.RoleRequester, time.Now().UTC())
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PartyExpired, stored.Requester.Status)
	assert.True(t, stored.Requester.DeadlineNotified)
	// Expiry is not a completion; only EndAndReward records ended_at.
	assert.Nil(t, stored.Requester.EndedAt)
}

func TestEndAndRewardRecordsDeliveryStats(t *testing.T) {
	svc, repo, _ := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, acceptorOwner, "https://t.me/c/2/5"))

	_, err := svc.EndAndReward(context.Background(), campaign.ID, acceptorOwner)
	require.NoError(t, err)

	// 15% of the acceptor channel's 4000 subscribers, 8% of those click.
	stored, err := repo.GetByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), stored.Impressions)
	assert.Equal(t, int64(48), stored.Clicks)
}

func TestGetUserAnalyticsZeroWithoutChannels(t *testing.T) {
	svc, _, _ := newTestCampaignService(nil)
	createCampaign(t, svc, 500)

	analytics, err := svc.GetUserAnalytics(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), analytics.TotalImpressions)
	assert.Equal(t, float64(0), analytics.EngagementRate)
	assert.Equal(t, int64(0), analytics.NewSubscribers)
}

func TestGetUserAnalyticsEstimatesFromCompletedCampaigns(t *testing.T) {
	svc, _, _ := newTestCampaignService(map[int64]int64{requesterOwner: 1000})
	campaign := createCampaign(t, svc, 500)

	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, requesterOwner, "https://t.me/c/1/2"))
	require.NoError(t, svc.SubmitPostLink(context.Background(), campaign.ID, acceptorOwner, "https://t.me/c/2/5"))
	_, err := svc.EndAndReward(context.Background(), campaign.ID, requesterOwner)
	require.NoError(t, err)
	_, err = svc.EndAndReward(context.Background(), campaign.ID, acceptorOwner)
	require.NoError(t, err)

	// The acceptor owns the target channel: 15% of 4000 subscribers saw the
	// promo and 8% of those clicked.
	acceptorStats, err := svc.GetUserAnalytics(context.Background(), acceptorOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(600), acceptorStats.TotalImpressions)
	assert.Equal(t, 8.0, acceptorStats.EngagementRate)
	assert.Equal(t, int64(0), acceptorStats.NewSubscribers)

	// The requester's channel originated one completed exchange.
	requesterStats, err := svc.GetUserAnalytics(context.Background(), requesterOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), requesterStats.TotalImpressions)
	assert.Equal(t, float64(0), requesterStats.EngagementRate)
	assert.Equal(t, int64(subscribersPerExchange), requesterStats.NewSubscribers)
}
