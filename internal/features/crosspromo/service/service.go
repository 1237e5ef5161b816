package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/common/logger"
	campaignservice "cpgram-backend/internal/features/campaign/service"
	channelmodels "cpgram-backend/internal/features/channel/models"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	"cpgram-backend/internal/features/crosspromo/models"
	"cpgram-backend/internal/features/crosspromo/repository"
	userservice "cpgram-backend/internal/features/user/service"
)

// RequestGateway notifies channel owners about request lifecycle events.
type RequestGateway interface {
	SendText(chatID int64, text string) (int, error)
}

type RequestService interface {
	CreateRequest(ctx context.Context, userID int64, payload *models.CreateRequestPayload) (*models.CrossPromoRequest, error)
	ListMyRequests(ctx context.Context, userID int64) ([]*models.CrossPromoRequest, error)
	AcceptRequest(ctx context.Context, requestID string, userID int64) (string, error)
	DeclineRequest(ctx context.Context, requestID string, userID int64) error
}

type requestService struct {
	repo      repository.RequestRepository
	channels  channelrepo.ChannelRepository
	users     userservice.UserService
	campaigns campaignservice.CampaignService
	gateway   RequestGateway
}

func NewRequestService(repo repository.RequestRepository, channels channelrepo.ChannelRepository,
	users userservice.UserService, campaigns campaignservice.CampaignService, gateway RequestGateway) RequestService {
	return &requestService{
		repo:      repo,
		channels:  channels,
		users:     users,
		campaigns: campaigns,
		gateway:   gateway,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, userID int64, payload *models.CreateRequestPayload) (*models.CrossPromoRequest, error) {
	fromChannel, err := s.channels.GetByIDAndOwner(ctx, payload.FromChannelID, userID)
	if err == channelrepo.ErrChannelNotFound {
		return nil, apperrors.NewForbiddenError("you do not own the requesting channel")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get channel", err)
	}

	toChannel, err := s.channels.GetByID(ctx, payload.ToChannelID)
	if err == channelrepo.ErrChannelNotFound {
		return nil, apperrors.NewChannelNotFoundError(payload.ToChannelID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get channel", err)
	}
	if toChannel.Status != channelmodels.ChannelStatusApproved {
		return nil, apperrors.NewValidationError("toChannelId", "target channel is not approved")
	}
	if payload.CPCCost <= 0 {
		return nil, apperrors.NewValidationError("cpcCost", "cost must be positive")
	}

	// The cost is only transferred at completion time, but an offer the
	// requester cannot cover today is rejected up front.
	requester, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewUserNotFoundError(userID)
	}
	if requester.CPCBalance < payload.CPCCost {
		return nil, apperrors.NewInsufficientFundsError(userID, payload.CPCCost)
	}

	promo := payload.Promo
	if promo.Text == "" && len(fromChannel.PromoMaterials) > 0 {
		promo = fromChannel.PromoMaterials[0]
	}

	request := &models.CrossPromoRequest{
		ID:            "req_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12],
		FromChannel:   fromChannel.Name,
		FromChannelID: fromChannel.ID,
		ToChannel:     toChannel.Name,
		ToChannelID:   toChannel.ID,
		DaySelected:   payload.DaySelected,
		TimeSelected:  payload.TimeSelected,
		DurationHours: payload.DurationHours,
		CPCCost:       payload.CPCCost,
		Promo:         promo,
		Status:        models.RequestPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, apperrors.NewDatabaseError("create request", err)
	}

	text := fmt.Sprintf(
		"📨 New cross-promo request!\n\n<b>%s</b> wants to exchange promos with <b>%s</b> for %d CP Coins.",
		fromChannel.Name, toChannel.Name, payload.CPCCost,
	)
	if _, err := s.gateway.SendText(toChannel.OwnerID, text); err != nil {
		logger.Warn().Err(err).Str("request_id", request.ID).Msg("Failed to notify target owner")
	}

	return request, nil
}

func (s *requestService) ListMyRequests(ctx context.Context, userID int64) ([]*models.CrossPromoRequest, error) {
	userChannels, err := s.channels.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list channels", err)
	}
	if len(userChannels) == 0 {
		return []*models.CrossPromoRequest{}, nil
	}

	channelIDs := make([]string, 0, len(userChannels))
	for _, ch := range userChannels {
		channelIDs = append(channelIDs, ch.ID)
	}

	requests, err := s.repo.ListByChannelIDs(ctx, channelIDs)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list requests", err)
	}
	return requests, nil
}

// AcceptRequest marks the request accepted and starts the two-party campaign.
// Returns the created campaign ID.
func (s *requestService) AcceptRequest(ctx context.Context, requestID string, userID int64) (string, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err == repository.ErrRequestNotFound {
		return "", apperrors.New(apperrors.ErrCodeRequestNotFound, "Request not found").WithDetail("request_id", requestID)
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("get request", err)
	}

	toChannel, err := s.channels.GetByIDAndOwner(ctx, request.ToChannelID, userID)
	if err == channelrepo.ErrChannelNotFound {
		return "", apperrors.NewForbiddenError("only the target channel owner can accept")
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("get channel", err)
	}

	fromChannel, err := s.channels.GetByID(ctx, request.FromChannelID)
	if err != nil {
		return "", apperrors.NewChannelNotFoundError(request.FromChannelID)
	}

	now := time.Now().UTC()
	err = s.repo.UpdateStatusAtomic(ctx, requestID, models.RequestPending, models.RequestAccepted, &now)
	if err == repository.ErrPreconditionFailed {
		return "", apperrors.NewConflictError("request", "request is no longer pending")
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("accept request", err)
	}

	// Promo snapshots: the acceptor will post the requester's material and
	// vice versa. Later edits to either channel must not affect the running
	// campaign.
	acceptorPromo := channelmodels.PromoMaterial{}
	if len(toChannel.PromoMaterials) > 0 {
		acceptorPromo = toChannel.PromoMaterials[0]
	}

	campaign, err := s.campaigns.CreateTwoParty(ctx, requestID,
		request.FromChannelID, request.ToChannelID,
		request.Promo, acceptorPromo,
		request.DurationHours, request.CPCCost)
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf(
		"✅ Your cross-promo request to <b>%s</b> was accepted!\n\nBoth of you now have %d hours to post each other's promo.",
		toChannel.Name, campaignservice.PostingDeadlineHours,
	)
	if _, err := s.gateway.SendText(fromChannel.OwnerID, text); err != nil {
		logger.Warn().Err(err).Str("request_id", requestID).Msg("Failed to notify requester")
	}

	return campaign.ID, nil
}

func (s *requestService) DeclineRequest(ctx context.Context, requestID string, userID int64) error {
	request, err := s.repo.GetByID(ctx, requestID)
	if err == repository.ErrRequestNotFound {
		return apperrors.New(apperrors.ErrCodeRequestNotFound, "Request not found").WithDetail("request_id", requestID)
	}
	if err != nil {
		return apperrors.NewDatabaseError("get request", err)
	}

	if _, err := s.channels.GetByIDAndOwner(ctx, request.ToChannelID, userID); err != nil {
		return apperrors.NewForbiddenError("only the target channel owner can decline")
	}

	err = s.repo.UpdateStatusAtomic(ctx, requestID, models.RequestPending, models.RequestDeclined, nil)
	if err == repository.ErrPreconditionFailed {
		return apperrors.NewConflictError("request", "request is no longer pending")
	}
	if err != nil {
		return apperrors.NewDatabaseError("decline request", err)
	}
	return nil
}
