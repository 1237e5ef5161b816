package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cpgram-backend/internal/common/errors"
	campaignmodels "cpgram-backend/internal/features/campaign/models"
	channelmodels "cpgram-backend/internal/features/channel/models"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	"cpgram-backend/internal/features/task/models"
	"cpgram-backend/internal/features/task/repository"
	usermodels "cpgram-backend/internal/features/user/models"
)

const testOwner int64 = 100

// memTaskRepo mirrors the guarded-upsert semantics of the Mongo repository.
type memTaskRepo struct {
	mu      sync.Mutex
	records map[int64]*models.TaskRecord
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{records: map[int64]*models.TaskRecord{}}
}

func (r *memTaskRepo) record(telegramID int64) *models.TaskRecord {
	rec, ok := r.records[telegramID]
	if !ok {
		rec = &models.TaskRecord{TelegramID: telegramID, Extra: map[string]interface{}{}}
		r.records[telegramID] = rec
	}
	return rec
}

func (r *memTaskRepo) Get(ctx context.Context, telegramID int64) (*models.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(telegramID)
	clone := *rec
	return &clone, nil
}

func (r *memTaskRepo) MarkClaimed(ctx context.Context, telegramID int64, flag, claimedAtField string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(telegramID)
	switch flag {
	case "welcome_bonus":
		if rec.WelcomeBonus {
			return repository.ErrAlreadyClaimed
		}
		rec.WelcomeBonus = true
	case "join_channel":
		if rec.JoinChannel {
			return repository.ErrAlreadyClaimed
		}
		rec.JoinChannel = true
	}
	return nil
}

func (r *memTaskRepo) MarkInviteStarted(ctx context.Context, telegramID int64, channelID, campaignID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(telegramID)
	key := "invite_users_" + channelID
	if started, _ := rec.Extra[key].(bool); started {
		return repository.ErrAlreadyClaimed
	}
	rec.Extra[key] = true
	rec.Extra["invite_campaign_"+channelID] = campaignID
	return nil
}

func (r *memTaskRepo) MarkInviteCompleted(ctx context.Context, telegramID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(telegramID).InviteUsers = true
	return nil
}

func (r *memTaskRepo) ResetInviteFlags(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reset int64
	for _, rec := range r.records {
		if rec.InviteUsers {
			rec.InviteUsers = false
			reset++
		}
	}
	return reset, nil
}

type memTaskChannels struct {
	channels map[string]*channelmodels.Channel
}

func (r *memTaskChannels) Create(ctx context.Context, channel *channelmodels.Channel) error {
	return nil
}

func (r *memTaskChannels) GetByID(ctx context.Context, id string) (*channelmodels.Channel, error) {
	ch, ok := r.channels[id]
	if !ok {
		return nil, channelrepo.ErrChannelNotFound
	}
	return ch, nil
}

func (r *memTaskChannels) GetByIDAndOwner(ctx context.Context, id string, ownerID int64) (*channelmodels.Channel, error) {
	ch, err := r.GetByID(ctx, id)
	if err != nil || ch.OwnerID != ownerID {
		return nil, channelrepo.ErrChannelNotFound
	}
	return ch, nil
}

func (r *memTaskChannels) ListByOwner(ctx context.Context, ownerID int64) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memTaskChannels) ListByStatus(ctx context.Context, status channelmodels.ChannelStatus) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memTaskChannels) ListApprovedActive(ctx context.Context) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memTaskChannels) Update(ctx context.Context, id string, ownerID int64, fields map[string]interface{}) error {
	return nil
}

func (r *memTaskChannels) UpdateStatus(ctx context.Context, id string, status channelmodels.ChannelStatus) error {
	return nil
}

func (r *memTaskChannels) SetPaused(ctx context.Context, id string, ownerID int64, paused bool) error {
	return nil
}

func (r *memTaskChannels) Delete(ctx context.Context, id string, ownerID int64) error { return nil }

func (r *memTaskChannels) IncrementExchanges(ctx context.Context, id string) error { return nil }

func (r *memTaskChannels) Count(ctx context.Context) (int64, error) { return 0, nil }

func (r *memTaskChannels) CountByStatus(ctx context.Context, status channelmodels.ChannelStatus) (int64, error) {
	return 0, nil
}

type memTaskLedger struct {
	mu       sync.Mutex
	balances map[int64]int64
}

func (l *memTaskLedger) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*usermodels.User, error) {
	return &usermodels.User{TelegramID: telegramID}, nil
}

func (l *memTaskLedger) GetUser(ctx context.Context, telegramID int64) (*usermodels.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &usermodels.User{TelegramID: telegramID, CPCBalance: l.balances[telegramID]}, nil
}

func (l *memTaskLedger) ListRecipients(ctx context.Context) ([]int64, error) { return nil, nil }

func (l *memTaskLedger) CreditCompletion(ctx context.Context, telegramID int64, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[telegramID] += amount
	return nil
}

func (l *memTaskLedger) TransferCost(ctx context.Context, fromID, toID int64, amount int64) error {
	return nil
}

func (l *memTaskLedger) ApplyPenalty(ctx context.Context, telegramID int64, amount int64) error {
	return nil
}

func (l *memTaskLedger) balance(telegramID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[telegramID]
}

type fakeCampaigns struct {
	created []*campaignmodels.Campaign
}

func (c *fakeCampaigns) CreateTwoParty(ctx context.Context, requestID, fromChannelID, toChannelID string,
	requesterPromo, acceptorPromo channelmodels.PromoMaterial, durationHours int, cpcCost int64) (*campaignmodels.Campaign, error) {
	return nil, nil
}

func (c *fakeCampaigns) CreateScheduled(ctx context.Context, kind campaignmodels.CampaignKind, userID, chatID int64,
	promoText string, promo *channelmodels.PromoMaterial, startAt time.Time, durationHours int) (*campaignmodels.Campaign, error) {
	campaign := &campaignmodels.Campaign{
		ID:            "camp_test",
		Kind:          kind,
		Status:        campaignmodels.LegacyScheduled,
		UserID:        userID,
		ChatID:        chatID,
		PromoText:     promoText,
		Promo:         promo,
		StartAt:       &startAt,
		DurationHours: durationHours,
	}
	c.created = append(c.created, campaign)
	return campaign, nil
}

func (c *fakeCampaigns) SubmitPostLink(ctx context.Context, campaignID string, userID int64, postLink string) error {
	return nil
}

func (c *fakeCampaigns) EndAndReward(ctx context.Context, campaignID string, userID int64) (*campaignmodels.RewardResult, error) {
	return nil, nil
}

func (c *fakeCampaigns) GetUserCampaigns(ctx context.Context, userID int64) ([]campaignmodels.CampaignView, error) {
	return nil, nil
}

func (c *fakeCampaigns) GetUserAnalytics(ctx context.Context, userID int64) (*campaignmodels.UserAnalytics, error) {
	return &campaignmodels.UserAnalytics{}, nil
}

type fakeTaskGateway struct {
	member      bool
	memberErr   error
	sentToAdmin []string
}

func (g *fakeTaskGateway) IsChannelMember(identifier string, userID int64) (bool, error) {
	return g.member, g.memberErr
}

func (g *fakeTaskGateway) SendText(chatID int64, text string) (int, error) {
	g.sentToAdmin = append(g.sentToAdmin, text)
	return 1, nil
}

func newTestTaskService() (TaskService, *memTaskRepo, *memTaskLedger, *fakeCampaigns, *fakeTaskGateway) {
	repo := newMemTaskRepo()
	ledger := &memTaskLedger{balances: map[int64]int64{}}
	campaigns := &fakeCampaigns{}
	gateway := &fakeTaskGateway{}
	channels := &memTaskChannels{channels: map[string]*channelmodels.Channel{
		"ch_1": {
			ID:           "ch_1",
			OwnerID:      testOwner,
			Name:         "My Channel",
			TelegramID:   -100200,
			Status:       channelmodels.ChannelStatusApproved,
			SelectedDays: []string{"Monday"},
			TimeSlots:    []string{"14:00 - 15:00 UTC"},
		},
		"ch_pending": {
			ID:           "ch_pending",
			OwnerID:      testOwner,
			Status:       channelmodels.ChannelStatusPending,
			SelectedDays: []string{"Monday"},
			TimeSlots:    []string{"14:00 - 15:00 UTC"},
		},
	}}
	svc := NewTaskService(repo, channels, ledger, campaigns, gateway, 777, "https://t.me/app")
	return svc, repo, ledger, campaigns, gateway
}

func assertErrCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, code, appErr.Code)
}

func TestGetTasksReflectsCompletion(t *testing.T) {
	svc, _, _, _, _ := newTestTaskService()
	ctx := context.Background()

	tasks, err := svc.GetTasks(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.False(t, task.Completed, task.ID)
	}

	_, err = svc.ClaimWelcome(ctx, testOwner)
	require.NoError(t, err)

	tasks, err = svc.GetTasks(ctx, testOwner)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)
	assert.False(t, tasks[1].Completed)
}

func TestClaimWelcomeOnce(t *testing.T) {
	svc, _, ledger, _, _ := newTestTaskService()
	ctx := context.Background()

	reward, err := svc.ClaimWelcome(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, WelcomeBonusReward, reward)
	assert.Equal(t, WelcomeBonusReward, ledger.balance(testOwner))

	_, err = svc.ClaimWelcome(ctx, testOwner)
	assertErrCode(t, err, apperrors.ErrCodeConflict)
	assert.Equal(t, WelcomeBonusReward, ledger.balance(testOwner))
}

func TestVerifyChannelJoinRequiresMembership(t *testing.T) {
	svc, _, ledger, _, gateway := newTestTaskService()
	ctx := context.Background()

	gateway.member = false
	_, err := svc.VerifyChannelJoin(ctx, testOwner)
	assertErrCode(t, err, apperrors.ErrCodeValidation)
	assert.Zero(t, ledger.balance(testOwner))

	gateway.member = true
	reward, err := svc.VerifyChannelJoin(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, JoinChannelReward, reward)
	assert.Equal(t, JoinChannelReward, ledger.balance(testOwner))

	_, err = svc.VerifyChannelJoin(ctx, testOwner)
	assertErrCode(t, err, apperrors.ErrCodeConflict)
	assert.Equal(t, JoinChannelReward, ledger.balance(testOwner))
}

func TestCreateInviteTaskSchedulesCampaign(t *testing.T) {
	svc, repo, ledger, campaigns, gateway := newTestTaskService()
	ctx := context.Background()

	campaignID, err := svc.CreateInviteTask(ctx, testOwner, "ch_1")
	require.NoError(t, err)
	assert.Equal(t, "camp_test", campaignID)

	require.Len(t, campaigns.created, 1)
	created := campaigns.created[0]
	assert.Equal(t, campaignmodels.KindInviteTask, created.Kind)
	assert.Equal(t, int64(-100200), created.ChatID)
	assert.Equal(t, InviteTaskDurationHours, created.DurationHours)
	assert.Contains(t, created.PromoText, "https://t.me/app")

	// Creating the task does not pay the reward.
	assert.Zero(t, ledger.balance(testOwner))

	record, err := repo.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.True(t, record.InviteStarted("ch_1"))
	assert.NotEmpty(t, gateway.sentToAdmin)

	_, err = svc.CreateInviteTask(ctx, testOwner, "ch_1")
	assertErrCode(t, err, apperrors.ErrCodeConflict)
	assert.Len(t, campaigns.created, 1)
}

func TestCreateInviteTaskRejectsUnapprovedChannel(t *testing.T) {
	svc, _, _, _, _ := newTestTaskService()

	_, err := svc.CreateInviteTask(context.Background(), testOwner, "ch_pending")
	assertErrCode(t, err, apperrors.ErrCodeValidation)
}

func TestCreateInviteTaskRejectsForeignChannel(t *testing.T) {
	svc, _, _, _, _ := newTestTaskService()

	_, err := svc.CreateInviteTask(context.Background(), 999, "ch_1")
	assertErrCode(t, err, apperrors.ErrCodeChannelNotFound)
}

func TestCompleteInviteTaskPaysReward(t *testing.T) {
	svc, repo, ledger, _, _ := newTestTaskService()
	ctx := context.Background()

	require.NoError(t, svc.CompleteInviteTask(ctx, "camp_test", testOwner))

	assert.Equal(t, InviteTaskReward, ledger.balance(testOwner))
	record, err := repo.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.True(t, record.InviteUsers)
}

func TestResetInviteTasksClearsCompletionFlags(t *testing.T) {
	svc, repo, _, _, _ := newTestTaskService()
	ctx := context.Background()

	require.NoError(t, svc.CompleteInviteTask(ctx, "camp_test", testOwner))
	require.NoError(t, svc.CompleteInviteTask(ctx, "camp_test2", 200))

	reset, err := svc.ResetInviteTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reset)

	record, err := repo.Get(ctx, testOwner)
	require.NoError(t, err)
	assert.False(t, record.InviteUsers)

	tasks, err := svc.GetTasks(ctx, testOwner)
	require.NoError(t, err)
	assert.False(t, tasks[2].Completed)
}
