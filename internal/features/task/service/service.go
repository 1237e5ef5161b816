package service

import (
	"context"
	"fmt"
	"time"

	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/common/logger"
	campaignmodels "cpgram-backend/internal/features/campaign/models"
	campaignservice "cpgram-backend/internal/features/campaign/service"
	channelmodels "cpgram-backend/internal/features/channel/models"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	"cpgram-backend/internal/features/task/models"
	"cpgram-backend/internal/features/task/repository"
	userservice "cpgram-backend/internal/features/user/service"
	"cpgram-backend/internal/platform/metrics"
)

const (
	WelcomeBonusReward int64 = 500
	JoinChannelReward  int64 = 250
	InviteTaskReward   int64 = 5000

	// InviteTaskDurationHours is how long the invite post stays up before the
	// scheduler takes it down and pays the reward.
	InviteTaskDurationHours = 12

	// NewsChannel is the channel users must join for the join task.
	NewsChannel = "@cpgram_news"
)

// TaskGateway covers the Telegram calls the task flows need.
type TaskGateway interface {
	IsChannelMember(identifier string, userID int64) (bool, error)
	SendText(chatID int64, text string) (int, error)
}

type TaskService interface {
	GetTasks(ctx context.Context, userID int64) ([]models.Task, error)

	// ClaimWelcome credits the one-time welcome bonus. Returns the reward
	// amount.
	ClaimWelcome(ctx context.Context, userID int64) (int64, error)

	// VerifyChannelJoin checks membership in the news channel and credits
	// the join reward once.
	VerifyChannelJoin(ctx context.Context, userID int64) (int64, error)

	// CreateInviteTask schedules a promotional post on the user's channel.
	// The reward is paid when the post's run finishes, not at creation.
	CreateInviteTask(ctx context.Context, userID int64, channelID string) (string, error)

	// CompleteInviteTask pays out a finished invite campaign. Called by the
	// scheduler after the post is taken down.
	CompleteInviteTask(ctx context.Context, campaignID string, userID int64) error

	// ResetInviteTasks clears every user's invite completion flag so the task
	// can be offered again. Admin only.
	ResetInviteTasks(ctx context.Context) (int64, error)
}

type taskService struct {
	repo        repository.TaskRepository
	channels    channelrepo.ChannelRepository
	users       userservice.UserService
	campaigns   campaignservice.CampaignService
	gateway     TaskGateway
	adminChatID int64
	appURL      string
}

func NewTaskService(repo repository.TaskRepository, channels channelrepo.ChannelRepository,
	users userservice.UserService, campaigns campaignservice.CampaignService,
	gateway TaskGateway, adminChatID int64, appURL string) TaskService {
	return &taskService{
		repo:        repo,
		channels:    channels,
		users:       users,
		campaigns:   campaigns,
		gateway:     gateway,
		adminChatID: adminChatID,
		appURL:      appURL,
	}
}

func (s *taskService) GetTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get task record", err)
	}

	return []models.Task{
		{
			ID:          "welcome_bonus",
			Title:       "Welcome Bonus",
			Description: "Get started with a special one-time bonus for new users!",
			Reward:      WelcomeBonusReward,
			Type:        "welcome",
			Completed:   record.WelcomeBonus,
			ActionText:  "Claim",
		},
		{
			ID:          "join_channel",
			Title:       "Join the News Channel",
			Description: "Stay updated with the latest news and announcements from CP Gram!",
			Reward:      JoinChannelReward,
			Type:        "join_channel",
			Completed:   record.JoinChannel,
			ActionText:  "Join",
		},
		{
			ID:          "invite_users",
			Title:       "Invite Users",
			Description: "Share a promotional post on your channel to invite new users.",
			Reward:      InviteTaskReward,
			Type:        "invite_users",
			Completed:   record.InviteUsers,
			ActionText:  "Invite",
		},
	}, nil
}

func (s *taskService) ClaimWelcome(ctx context.Context, userID int64) (int64, error) {
	// Flag first, credit second. The guarded flag makes the credit
	// exactly-once even if two claims race.
	err := s.repo.MarkClaimed(ctx, userID, "welcome_bonus", "welcome_bonus_claimed_at")
	if err == repository.ErrAlreadyClaimed {
		return 0, apperrors.NewConflictError("task", "welcome bonus already claimed")
	}
	if err != nil {
		return 0, apperrors.NewDatabaseError("claim welcome bonus", err)
	}

	if err := s.users.CreditCompletion(ctx, userID, WelcomeBonusReward); err != nil {
		return 0, apperrors.NewDatabaseError("credit welcome bonus", err)
	}

	metrics.RecordReward("welcome_bonus", WelcomeBonusReward)
	logger.Info().Int64("user_id", userID).Msg("Welcome bonus claimed")
	return WelcomeBonusReward, nil
}

func (s *taskService) VerifyChannelJoin(ctx context.Context, userID int64) (int64, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		return 0, apperrors.NewDatabaseError("get task record", err)
	}
	if record.JoinChannel {
		return 0, apperrors.NewConflictError("task", "channel join already verified")
	}

	member, err := s.gateway.IsChannelMember(NewsChannel, userID)
	if err != nil {
		return 0, apperrors.NewTelegramAPIError("verify channel membership", err)
	}
	if !member {
		return 0, apperrors.NewValidationError("membership", "please join the channel first")
	}

	err = s.repo.MarkClaimed(ctx, userID, "join_channel", "join_channel_verified_at")
	if err == repository.ErrAlreadyClaimed {
		return 0, apperrors.NewConflictError("task", "channel join already verified")
	}
	if err != nil {
		return 0, apperrors.NewDatabaseError("claim join reward", err)
	}

	if err := s.users.CreditCompletion(ctx, userID, JoinChannelReward); err != nil {
		return 0, apperrors.NewDatabaseError("credit join reward", err)
	}

	metrics.RecordReward("join_channel", JoinChannelReward)
	logger.Info().Int64("user_id", userID).Msg("Channel join verified")
	return JoinChannelReward, nil
}

func (s *taskService) CreateInviteTask(ctx context.Context, userID int64, channelID string) (string, error) {
	record, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", apperrors.NewDatabaseError("get task record", err)
	}
	if record.InviteStarted(channelID) {
		return "", apperrors.NewConflictError("task", "invite task already created for this channel")
	}

	channel, err := s.channels.GetByIDAndOwner(ctx, channelID, userID)
	if err == channelrepo.ErrChannelNotFound {
		return "", apperrors.NewChannelNotFoundError(channelID)
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("get channel", err)
	}
	if channel.Status != channelmodels.ChannelStatusApproved {
		return "", apperrors.NewValidationError("channel_id", "channel must be approved to complete this task")
	}
	if len(channel.TimeSlots) == 0 || len(channel.SelectedDays) == 0 {
		return "", apperrors.NewValidationError("channel_id", "channel needs configured time slots and days")
	}

	// Schedule the post for the channel's first configured day and slot.
	startAt, err := nextSlotOccurrence(time.Now(), channel.SelectedDays[0], channel.TimeSlots[0])
	if err != nil {
		return "", apperrors.NewValidationError("time_slot", err.Error())
	}

	promoText := fmt.Sprintf(
		"🚀 Join CP Gram - The Ultimate Cross-Promotion Platform!\n\n"+
			"Grow your Telegram channel with strategic cross-promotions.\n\n"+
			"✅ Connect with similar channels\n"+
			"✅ Automated posting\n"+
			"✅ Fair pricing system\n"+
			"✅ Earn rewards\n\n"+
			"Start growing today: %s", s.appURL)

	campaign, err := s.campaigns.CreateScheduled(ctx, campaignmodels.KindInviteTask,
		userID, channel.TelegramID, promoText, nil, startAt, InviteTaskDurationHours)
	if err != nil {
		return "", err
	}

	err = s.repo.MarkInviteStarted(ctx, userID, channelID, campaign.ID)
	if err == repository.ErrAlreadyClaimed {
		return "", apperrors.NewConflictError("task", "invite task already created for this channel")
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("mark invite task started", err)
	}

	if s.adminChatID != 0 {
		text := fmt.Sprintf(
			"📢 Invite task created\nUser: %d\nChannel: %s\nScheduled: %s",
			userID, channel.Name, startAt.Format("2006-01-02 15:04 UTC"),
		)
		if _, err := s.gateway.SendText(s.adminChatID, text); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify admin about invite task")
		}
	}

	logger.Info().
		Int64("user_id", userID).
		Str("channel_id", channelID).
		Str("campaign_id", campaign.ID).
		Time("start_at", startAt).
		Msg("Invite task scheduled")
	return campaign.ID, nil
}

func (s *taskService) CompleteInviteTask(ctx context.Context, campaignID string, userID int64) error {
	if err := s.users.CreditCompletion(ctx, userID, InviteTaskReward); err != nil {
		return apperrors.NewDatabaseError("credit invite reward", err)
	}
	if err := s.repo.MarkInviteCompleted(ctx, userID); err != nil {
		return apperrors.NewDatabaseError("mark invite task completed", err)
	}

	metrics.RecordReward("invite_task", InviteTaskReward)
	logger.Info().
		Int64("user_id", userID).
		Str("campaign_id", campaignID).
		Int64("reward", InviteTaskReward).
		Msg("Invite task completed")

	if s.adminChatID != 0 {
		text := fmt.Sprintf("✅ Invite task completed!\nUser %d earned %d CP Coins", userID, InviteTaskReward)
		if _, err := s.gateway.SendText(s.adminChatID, text); err != nil {
			logger.Warn().Err(err).Msg("Failed to notify admin about invite completion")
		}
	}
	return nil
}

func (s *taskService) ResetInviteTasks(ctx context.Context) (int64, error) {
	reset, err := s.repo.ResetInviteFlags(ctx)
	if err != nil {
		return 0, apperrors.NewDatabaseError("reset invite tasks", err)
	}

	logger.Info().Int64("reset", reset).Msg("Invite tasks reset for all users")
	return reset, nil
}
