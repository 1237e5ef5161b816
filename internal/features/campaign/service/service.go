package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/features/campaign/models"
	"cpgram-backend/internal/features/campaign/repository"
	channelmodels "cpgram-backend/internal/features/channel/models"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	userrepo "cpgram-backend/internal/features/user/repository"
	userservice "cpgram-backend/internal/features/user/service"
	"cpgram-backend/internal/platform/metrics"
)

const (
	// RequesterCompletionReward is the flat bonus the requester earns for
	// completing their side.
	RequesterCompletionReward int64 = 150

	// PostingDeadlineHours is how long each party has to post after the
	// campaign is created.
	PostingDeadlineHours = 48

	// Estimation factors for analytics: a promo post reaches ~15% of the
	// audience, ~8% of those click, and each completed exchange brings ~35
	// subscribers.
	impressionRatePct      = 15
	clickRatePct           = 8
	subscribersPerExchange = 35
)

type CampaignService interface {
	// CreateTwoParty starts a manual campaign with both parties in
	// pending_posting. No coins move at creation time.
	CreateTwoParty(ctx context.Context, requestID, fromChannelID, toChannelID string,
		requesterPromo, acceptorPromo channelmodels.PromoMaterial, durationHours int, cpcCost int64) (*models.Campaign, error)

	// CreateScheduled inserts a legacy bot-posted campaign picked up by the
	// scheduler.
	CreateScheduled(ctx context.Context, kind models.CampaignKind, userID, chatID int64,
		promoText string, promo *channelmodels.PromoMaterial, startAt time.Time, durationHours int) (*models.Campaign, error)

	// SubmitPostLink activates the caller's side of the campaign.
	SubmitPostLink(ctx context.Context, campaignID string, userID int64, postLink string) error

	// EndAndReward completes the caller's side and pays out exactly once.
	EndAndReward(ctx context.Context, campaignID string, userID int64) (*models.RewardResult, error)

	// GetUserCampaigns returns campaigns touching the user's channels,
	// annotated with the caller's role.
	GetUserCampaigns(ctx context.Context, userID int64) ([]models.CampaignView, error)

	// GetUserAnalytics estimates reach and growth across the user's channels
	// from completed campaigns.
	GetUserAnalytics(ctx context.Context, userID int64) (*models.UserAnalytics, error)
}

type campaignService struct {
	repo     repository.CampaignRepository
	channels channelrepo.ChannelRepository
	users    userservice.UserService
}

func NewCampaignService(repo repository.CampaignRepository, channels channelrepo.ChannelRepository, users userservice.UserService) CampaignService {
	return &campaignService{
		repo:     repo,
		channels: channels,
		users:    users,
	}
}

func (s *campaignService) CreateTwoParty(ctx context.Context, requestID, fromChannelID, toChannelID string,
	requesterPromo, acceptorPromo channelmodels.PromoMaterial, durationHours int, cpcCost int64) (*models.Campaign, error) {

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:              "camp_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		Kind:            models.KindManual,
		RequestID:       requestID,
		FromChannelID:   fromChannelID,
		ToChannelID:     toChannelID,
		RequesterPromo:  requesterPromo,
		AcceptorPromo:   acceptorPromo,
		DurationHours:   durationHours,
		CPCCost:         cpcCost,
		PostingDeadline: now.Add(PostingDeadlineHours * time.Hour),
		Requester:       models.PartyState{Status: models.PartyPendingPosting},
		Acceptor:        models.PartyState{Status: models.PartyPendingPosting},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, apperrors.NewDatabaseError("create campaign", err)
	}

	metrics.RecordCampaignTransition(string(models.KindManual), "created")
	logger.Info().
		Str("campaign_id", campaign.ID).
		Str("request_id", requestID).
		Int64("cpc_cost", cpcCost).
		Msg("Created two-party campaign")

	return campaign, nil
}

func (s *campaignService) CreateScheduled(ctx context.Context, kind models.CampaignKind, userID, chatID int64,
	promoText string, promo *channelmodels.PromoMaterial, startAt time.Time, durationHours int) (*models.Campaign, error) {

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:            "camp_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		Kind:          kind,
		Status:        models.LegacyScheduled,
		UserID:        userID,
		ChatID:        chatID,
		PromoText:     promoText,
		Promo:         promo,
		StartAt:       &startAt,
		DurationHours: durationHours,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, apperrors.NewDatabaseError("create scheduled campaign", err)
	}

	metrics.RecordCampaignTransition(string(kind), "scheduled")
	return campaign, nil
}

// resolveRole determines which side of the campaign the user owns.
func (s *campaignService) resolveRole(ctx context.Context, campaign *models.Campaign, userID int64) (models.PartyRole, *channelmodels.Channel, *channelmodels.Channel, error) {
	fromChannel, err := s.channels.GetByID(ctx, campaign.FromChannelID)
	if err != nil {
		return "", nil, nil, apperrors.NewChannelNotFoundError(campaign.FromChannelID)
	}
	toChannel, err := s.channels.GetByID(ctx, campaign.ToChannelID)
	if err != nil {
		return "", nil, nil, apperrors.NewChannelNotFoundError(campaign.ToChannelID)
	}

	switch userID {
	case fromChannel.OwnerID:
		return models.RoleRequester, fromChannel, toChannel, nil
	case toChannel.OwnerID:
		return models.RoleAcceptor, fromChannel, toChannel, nil
	}
	return "", nil, nil, apperrors.NewForbiddenError("user owns neither side of this campaign")
}

func (s *campaignService) SubmitPostLink(ctx context.Context, campaignID string, userID int64, postLink string) error {
	if strings.TrimSpace(postLink) == "" {
		return apperrors.NewValidationError("post_link", "post link is required")
	}

	campaign, err := s.repo.GetByID(ctx, campaignID)
	if err == repository.ErrCampaignNotFound {
		return apperrors.NewCampaignNotFoundError(campaignID)
	}
	if err != nil {
		return apperrors.NewDatabaseError("get campaign", err)
	}
	if campaign.Kind != models.KindManual {
		return apperrors.NewValidationError("campaign_id", "campaign does not support manual posting")
	}

	role, _, _, err := s.resolveRole(ctx, campaign, userID)
	if err != nil {
		return err
	}

	err = s.repo.SetPartyPosted(ctx, campaignID, role, postLink, time.Now().UTC())
	if err == repository.ErrPreconditionFailed {
		return apperrors.NewConflictError("campaign", "this side is no longer awaiting posting")
	}
	if err != nil {
		return apperrors.NewDatabaseError("submit post link", err)
	}

	metrics.RecordCampaignTransition(string(models.KindManual), string(models.PartyActive))
	logger.Info().
		Str("campaign_id", campaignID).
		Str("role", string(role)).
		Int64("user_id", userID).
		Msg("Post link submitted, party active")
	return nil
}

func (s *campaignService) EndAndReward(ctx context.Context, campaignID string, userID int64) (*models.RewardResult, error) {
	campaign, err := s.repo.GetByID(ctx, campaignID)
	if err == repository.ErrCampaignNotFound {
		return nil, apperrors.NewCampaignNotFoundError(campaignID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get campaign", err)
	}
	if campaign.Kind != models.KindManual {
		return nil, apperrors.NewValidationError("campaign_id", "campaign does not support manual completion")
	}

	role, fromChannel, toChannel, err := s.resolveRole(ctx, campaign, userID)
	if err != nil {
		return nil, err
	}

	party := campaign.Party(role)
	if party.RewardGiven {
		return nil, apperrors.NewAlreadyRewardedError(campaignID)
	}
	if party.Status != models.PartyActive {
		return nil, apperrors.NewConflictError("campaign", "this side is not active")
	}

	now := time.Now().UTC()

	var reward int64
	var channelID string
	if role == models.RoleRequester {
		// Flat completion bonus for the requester.
		reward = RequesterCompletionReward
		channelID = campaign.FromChannelID
		if err := s.users.CreditCompletion(ctx, fromChannel.OwnerID, reward); err != nil {
			return nil, apperrors.NewDatabaseError("credit requester reward", err)
		}
		metrics.RecordReward("requester_completion", reward)
	} else {
		// The acceptor earns the agreed price, moved from the requester.
		// An uncovered requester balance surfaces as InsufficientFunds and
		// leaves the campaign untouched.
		reward = campaign.CPCCost
		channelID = campaign.ToChannelID
		if err := s.users.TransferCost(ctx, fromChannel.OwnerID, toChannel.OwnerID, reward); err != nil {
			if err == userrepo.ErrInsufficientFunds {
				return nil, apperrors.NewInsufficientFundsError(fromChannel.OwnerID, reward)
			}
			return nil, apperrors.NewDatabaseError("transfer acceptor reward", err)
		}
		metrics.RecordReward("acceptor_completion", reward)
	}

	err = s.repo.CompletePartyReward(ctx, campaignID, role, now)
	if err == repository.ErrPreconditionFailed {
		// A concurrent claim won the flag. The payout above still happened,
		// which mirrors the read-then-write window this flow always had.
		logger.Error().
			Str("campaign_id", campaignID).
			Str("role", string(role)).
			Msg("Reward paid but completion flag lost the race")
		return nil, apperrors.NewAlreadyRewardedError(campaignID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("complete campaign party", err)
	}

	if err := s.channels.IncrementExchanges(ctx, channelID); err != nil {
		logger.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to increment exchange counter")
	}

	// Record estimated delivery counters for the completed side. Best effort,
	// analytics never blocks the payout.
	audience := int64(toChannel.Subscribers)
	if role == models.RoleRequester {
		audience = int64(fromChannel.Subscribers)
	}
	impressions := audience * impressionRatePct / 100
	if err := s.repo.IncrementStats(ctx, campaignID, impressions, impressions*clickRatePct/100); err != nil {
		logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("Failed to record campaign stats")
	}

	metrics.RecordCampaignTransition(string(models.KindManual), string(models.PartyCompleted))
	logger.Info().
		Str("campaign_id", campaignID).
		Str("role", string(role)).
		Int64("reward", reward).
		Msg("Campaign side completed and rewarded")

	return &models.RewardResult{Reward: reward, Role: role}, nil
}

func (s *campaignService) GetUserAnalytics(ctx context.Context, userID int64) (*models.UserAnalytics, error) {
	userChannels, err := s.channels.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list user channels", err)
	}
	if len(userChannels) == 0 {
		return &models.UserAnalytics{}, nil
	}

	channelIDs := make([]string, 0, len(userChannels))
	audience := make(map[string]int64, len(userChannels))
	for _, ch := range userChannels {
		channelIDs = append(channelIDs, ch.ID)
		audience[ch.ID] = int64(ch.Subscribers)
	}

	completed, err := s.repo.ListCompletedByToChannels(ctx, channelIDs)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list completed campaigns", err)
	}

	var impressions, clicks int64
	for _, campaign := range completed {
		imp := audience[campaign.ToChannelID] * impressionRatePct / 100
		impressions += imp
		clicks += imp * clickRatePct / 100
	}

	var engagement float64
	if impressions > 0 {
		engagement = math.Round(float64(clicks)/float64(impressions)*1000) / 10
	}

	exchanges, err := s.repo.CountCompletedByFromChannels(ctx, channelIDs)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count completed campaigns", err)
	}

	return &models.UserAnalytics{
		TotalImpressions: impressions,
		EngagementRate:   engagement,
		NewSubscribers:   exchanges * subscribersPerExchange,
	}, nil
}

func (s *campaignService) GetUserCampaigns(ctx context.Context, userID int64) ([]models.CampaignView, error) {
	userChannels, err := s.channels.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list user channels", err)
	}
	if len(userChannels) == 0 {
		return []models.CampaignView{}, nil
	}

	channelIDs := make([]string, 0, len(userChannels))
	mine := make(map[string]bool, len(userChannels))
	for _, ch := range userChannels {
		channelIDs = append(channelIDs, ch.ID)
		mine[ch.ID] = true
	}

	campaigns, err := s.repo.ListByChannelIDs(ctx, channelIDs)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list campaigns", err)
	}

	partnerNames := map[string]string{}
	views := make([]models.CampaignView, 0, len(campaigns))
	for _, campaign := range campaigns {
		if campaign.Kind != models.KindManual {
			continue
		}

		role := models.RoleAcceptor
		partnerChannelID := campaign.FromChannelID
		if mine[campaign.FromChannelID] {
			role = models.RoleRequester
			partnerChannelID = campaign.ToChannelID
		}

		partnerName, ok := partnerNames[partnerChannelID]
		if !ok {
			if partner, err := s.channels.GetByID(ctx, partnerChannelID); err == nil {
				partnerName = partner.Name
			}
			partnerNames[partnerChannelID] = partnerName
		}

		party := campaign.Party(role)

		// The caller posts the other party's material.
		promo := campaign.AcceptorPromo
		if role == models.RoleAcceptor {
			promo = campaign.RequesterPromo
		}

		views = append(views, models.CampaignView{
			ID:                 campaign.ID,
			RequestID:          campaign.RequestID,
			FromChannelID:      campaign.FromChannelID,
			ToChannelID:        campaign.ToChannelID,
			DurationHours:      campaign.DurationHours,
			CPCCost:            campaign.CPCCost,
			PostingDeadline:    campaign.PostingDeadline,
			UserRole:           role,
			Status:             party.Status,
			Promo:              promo,
			PostLink:           party.PostLink,
			ActualStartAt:      party.PostedAt,
			ActualEndAt:        party.EndedAt,
			PartnerChannelName: partnerName,
			CreatedAt:          campaign.CreatedAt,
		})
	}

	return views, nil
}
