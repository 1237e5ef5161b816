package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cpgram-backend/internal/common/cache"
	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/features/channel/models"
	"cpgram-backend/internal/features/channel/repository"
	"cpgram-backend/internal/platform/telegram"
)

const channelInfoCacheTTL = 10 * time.Minute

// ChannelGateway is the slice of the Telegram gateway the channel service
// needs.
type ChannelGateway interface {
	GetChannelInfo(identifier string) (*telegram.ChannelInfo, error)
	SendText(chatID int64, text string) (int, error)
}

// ValidatedChannel is the gateway-verified channel info returned to the
// registration flow.
type ValidatedChannel struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	TelegramID  int64  `json:"telegram_id"`
	Subscribers int    `json:"subscribers"`
	AvgViews24h int    `json:"avgViews24h"`
}

type ChannelService interface {
	ValidateChannel(ctx context.Context, channelInput string) (*ValidatedChannel, error)
	CreateChannel(ctx context.Context, ownerID int64, req *models.CreateChannelRequest) (*models.Channel, error)
	GetChannel(ctx context.Context, id string, ownerID int64) (*models.Channel, error)
	ListMyChannels(ctx context.Context, ownerID int64) ([]*models.Channel, error)
	ListPublicChannels(ctx context.Context) ([]models.PublicChannel, error)
	UpdateChannel(ctx context.Context, id string, ownerID int64, req *models.UpdateChannelRequest) error
	DeleteChannel(ctx context.Context, id string, ownerID int64) error
	SetPaused(ctx context.Context, id string, ownerID int64, paused bool) error

	ListPendingChannels(ctx context.Context) ([]*models.Channel, error)
	ModerateChannel(ctx context.Context, id string, approve bool, reason string) error
}

type channelService struct {
	repo        repository.ChannelRepository
	gateway     ChannelGateway
	cache       *cache.CacheService
	adminChatID int64
}

func NewChannelService(repo repository.ChannelRepository, gateway ChannelGateway, cacheService *cache.CacheService, adminChatID int64) ChannelService {
	return &channelService{
		repo:        repo,
		gateway:     gateway,
		cache:       cacheService,
		adminChatID: adminChatID,
	}
}

func (s *channelService) ValidateChannel(ctx context.Context, channelInput string) (*ValidatedChannel, error) {
	username := normalizeChannelInput(channelInput)
	if username == "" {
		return nil, apperrors.NewValidationError("channel_input", "channel link or username is required")
	}

	var validated ValidatedChannel
	cacheKey := fmt.Sprintf("channel_info:%s", username)
	err := s.cache.GetOrSet(ctx, cacheKey, &validated, channelInfoCacheTTL, func() (interface{}, error) {
		info, err := s.gateway.GetChannelInfo("@" + username)
		if err != nil {
			return nil, apperrors.NewTelegramAPIError("getChat", err)
		}

		return &ValidatedChannel{
			Name:        info.Title,
			Username:    info.Username,
			TelegramID:  info.ID,
			Subscribers: info.MemberCount,
			// Rough engagement estimate until real view stats exist.
			AvgViews24h: info.MemberCount * 15 / 100,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &validated, nil
}

func (s *channelService) CreateChannel(ctx context.Context, ownerID int64, req *models.CreateChannelRequest) (*models.Channel, error) {
	if !req.BotConnected {
		return nil, apperrors.NewValidationError("bot_connected", "bot must be connected to the channel")
	}
	if len(req.PromoMaterials) == 0 {
		return nil, apperrors.NewValidationError("promo_materials", "at least one promo material is required")
	}
	if len(req.PromoMaterials) > 3 {
		return nil, apperrors.NewValidationError("promo_materials", "maximum 3 promo materials allowed")
	}
	if len(req.TimeSlots) != req.PromosPerDay {
		return nil, apperrors.NewValidationError("time_slots", fmt.Sprintf("must select exactly %d time slot(s)", req.PromosPerDay))
	}

	anyEnabled := false
	for _, setting := range req.PriceSettings {
		if setting.Enabled {
			anyEnabled = true
			break
		}
	}
	if !anyEnabled {
		return nil, apperrors.NewValidationError("price_settings", "at least one duration price must be enabled")
	}

	validated, err := s.ValidateChannel(ctx, req.ChannelInput)
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = "English"
	}

	now := time.Now().UTC()
	channel := &models.Channel{
		ID:             "ch_" + uuid.New().String()[:12],
		OwnerID:        ownerID,
		Name:           validated.Name,
		Username:       validated.Username,
		TelegramID:     validated.TelegramID,
		Subscribers:    validated.Subscribers,
		AvgViews24h:    validated.AvgViews24h,
		Language:       language,
		Topic:          req.Topic,
		SelectedDays:   req.SelectedDays,
		PromosPerDay:   req.PromosPerDay,
		PriceSettings:  req.PriceSettings,
		TimeSlots:      req.TimeSlots,
		PromoMaterials: req.PromoMaterials,
		Status:         models.ChannelStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, channel); err != nil {
		return nil, apperrors.NewDatabaseError("create channel", err)
	}

	if s.adminChatID != 0 {
		text := fmt.Sprintf(
			"🆕 New channel submitted for moderation:\nChannel: %s\nOwner: %d\nTopic: %s",
			channel.Name, ownerID, channel.Topic,
		)
		if _, err := s.gateway.SendText(s.adminChatID, text); err != nil {
			logger.Warn().Err(err).Str("channel_id", channel.ID).Msg("Failed to notify admin about new channel")
		}
	}

	return channel, nil
}

func (s *channelService) GetChannel(ctx context.Context, id string, ownerID int64) (*models.Channel, error) {
	channel, err := s.repo.GetByIDAndOwner(ctx, id, ownerID)
	if err == repository.ErrChannelNotFound {
		return nil, apperrors.NewChannelNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get channel", err)
	}
	return channel, nil
}

func (s *channelService) ListMyChannels(ctx context.Context, ownerID int64) ([]*models.Channel, error) {
	channels, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list channels", err)
	}
	return channels, nil
}

func (s *channelService) ListPublicChannels(ctx context.Context) ([]models.PublicChannel, error) {
	channels, err := s.repo.ListApprovedActive(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list public channels", err)
	}

	public := make([]models.PublicChannel, 0, len(channels))
	for _, channel := range channels {
		public = append(public, channel.ToPublic())
	}
	return public, nil
}

func (s *channelService) UpdateChannel(ctx context.Context, id string, ownerID int64, req *models.UpdateChannelRequest) error {
	fields := map[string]interface{}{}
	if req.Topic != nil {
		fields["topic"] = *req.Topic
	}
	if req.SelectedDays != nil {
		fields["selected_days"] = *req.SelectedDays
	}
	if req.PromosPerDay != nil {
		fields["promos_per_day"] = *req.PromosPerDay
	}
	if req.PriceSettings != nil {
		fields["price_settings"] = *req.PriceSettings
	}
	if req.TimeSlots != nil {
		fields["time_slots"] = *req.TimeSlots
	}
	if req.PromoMaterials != nil {
		fields["promo_materials"] = *req.PromoMaterials
	}

	if len(fields) == 0 {
		return nil
	}

	err := s.repo.Update(ctx, id, ownerID, fields)
	if err == repository.ErrChannelNotFound {
		return apperrors.NewChannelNotFoundError(id)
	}
	if err != nil {
		return apperrors.NewDatabaseError("update channel", err)
	}
	return nil
}

func (s *channelService) DeleteChannel(ctx context.Context, id string, ownerID int64) error {
	err := s.repo.Delete(ctx, id, ownerID)
	if err == repository.ErrChannelNotFound {
		return apperrors.NewChannelNotFoundError(id)
	}
	if err != nil {
		return apperrors.NewDatabaseError("delete channel", err)
	}
	return nil
}

func (s *channelService) SetPaused(ctx context.Context, id string, ownerID int64, paused bool) error {
	err := s.repo.SetPaused(ctx, id, ownerID, paused)
	if err == repository.ErrChannelNotFound {
		return apperrors.NewChannelNotFoundError(id)
	}
	if err != nil {
		return apperrors.NewDatabaseError("pause channel", err)
	}
	return nil
}

func (s *channelService) ListPendingChannels(ctx context.Context) ([]*models.Channel, error) {
	channels, err := s.repo.ListByStatus(ctx, models.ChannelStatusPending)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list pending channels", err)
	}
	return channels, nil
}

func (s *channelService) ModerateChannel(ctx context.Context, id string, approve bool, reason string) error {
	channel, err := s.repo.GetByID(ctx, id)
	if err == repository.ErrChannelNotFound {
		return apperrors.NewChannelNotFoundError(id)
	}
	if err != nil {
		return apperrors.NewDatabaseError("get channel", err)
	}

	status := models.ChannelStatusRejected
	if approve {
		status = models.ChannelStatusApproved
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return apperrors.NewDatabaseError("update channel status", err)
	}

	var text string
	if approve {
		text = fmt.Sprintf("✅ Your channel <b>%s</b> was approved! It is now visible to partners.", channel.Name)
	} else {
		text = fmt.Sprintf("❌ Your channel <b>%s</b> was rejected.", channel.Name)
		if reason != "" {
			text += "\nReason: " + reason
		}
	}
	if _, err := s.gateway.SendText(channel.OwnerID, text); err != nil {
		logger.Warn().Err(err).Str("channel_id", id).Msg("Failed to notify owner about moderation")
	}

	return nil
}

func normalizeChannelInput(input string) string {
	username := strings.TrimSpace(input)
	username = strings.TrimPrefix(username, "https://t.me/")
	username = strings.TrimPrefix(username, "http://t.me/")
	username = strings.TrimPrefix(username, "t.me/")
	username = strings.TrimPrefix(username, "@")
	return username
}
