package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"cpgram-backend/internal/features/campaign/models"
	"cpgram-backend/internal/features/campaign/repository"
	channelrepo "cpgram-backend/internal/features/channel/repository"
	userservice "cpgram-backend/internal/features/user/service"
	"cpgram-backend/internal/platform/bugsink"
	"cpgram-backend/internal/platform/metrics"
)

const (
	// DeadlinePenalty is deducted from a party that misses the posting
	// deadline. The balance may go negative.
	DeadlinePenalty int64 = 250

	// postingWindow is how far ahead the posting sweep looks for due
	// scheduled campaigns.
	postingWindow = 2 * time.Minute

	// earlySkipBuffer keeps the sweep from posting more than 30s early.
	earlySkipBuffer = 30 * time.Second

	defaultLegacyDurationHours = 12
)

// SchedulerGateway is the slice of the Telegram gateway the deadline service
// needs.
type SchedulerGateway interface {
	SendText(chatID int64, text string) (int, error)
	SendTextWithButton(chatID int64, text, buttonText, buttonURL string) (int, error)
	SendPhoto(chatID int64, photoURL, caption string) (int, error)
	DeleteMessage(chatID int64, messageID int) error
}

// InviteTaskCompleter finalizes an invite task once its campaign ends.
// Implemented by the task service.
type InviteTaskCompleter interface {
	CompleteInviteTask(ctx context.Context, campaignID string, userID int64) error
}

// DeadlineService runs the periodic sweeps that drive campaign lifecycles:
// posting due legacy campaigns, cleaning up finished ones, penalizing missed
// posting deadlines and sending duration reminders.
type DeadlineService struct {
	repo     repository.CampaignRepository
	channels channelrepo.ChannelRepository
	users    userservice.UserService
	gateway  SchedulerGateway
	tasks    InviteTaskCompleter
	appURL   string

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
}

func NewDeadlineService(repo repository.CampaignRepository, channels channelrepo.ChannelRepository,
	users userservice.UserService, gateway SchedulerGateway, tasks InviteTaskCompleter, appURL string) *DeadlineService {

	ctx, cancel := context.WithCancel(context.Background())
	return &DeadlineService{
		repo:     repo,
		channels: channels,
		users:    users,
		gateway:  gateway,
		tasks:    tasks,
		appURL:   appURL,
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
		logger:   log.New(os.Stdout, "[DeadlineService] ", log.LstdFlags),
	}
}

// Start registers the sweeps and starts the cron loop.
func (s *DeadlineService) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{"@every 20s", "post_due", s.postDueCampaigns},
		{"@every 30s", "cleanup", s.cleanupFinishedCampaigns},
		{"@every 1m", "deadlines", s.checkDeadlinesAndExpiry},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			defer bugsink.Recover()
			job.run(s.ctx)
		})
		if err != nil {
			return fmt.Errorf("register %s sweep: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.logger.Printf("Started with post/cleanup/deadline sweeps")
	return nil
}

// Stop halts the cron loop and waits for running sweeps.
func (s *DeadlineService) Stop() {
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Printf("Stopped")
}

// postDueCampaigns posts legacy scheduled campaigns whose start time is due.
// A campaign more than 30s in the future is left for a later sweep; a gateway
// failure marks it failed and it is not retried.
func (s *DeadlineService) postDueCampaigns(ctx context.Context) {
	now := time.Now().UTC()
	due, err := s.repo.ListDueScheduled(ctx, now.Add(postingWindow))
	if err != nil {
		s.logger.Printf("Failed to list due campaigns: %v", err)
		bugsink.CaptureError(err, map[string]interface{}{"sweep": "post_due"})
		return
	}

	processed := 0
	for _, camp := range due {
		if camp.StartAt != nil && camp.StartAt.After(now.Add(earlySkipBuffer)) {
			continue
		}

		if camp.ChatID == 0 {
			s.logger.Printf("Campaign %s has no chat_id, marking failed", camp.ID)
			if err := s.repo.MarkFailed(ctx, camp.ID, "no chat_id"); err != nil {
				s.logger.Printf("Failed to mark campaign %s failed: %v", camp.ID, err)
			}
			continue
		}

		messageID, postErr := s.postCampaign(camp)
		if postErr != nil {
			s.logger.Printf("Failed to post campaign %s: %v", camp.ID, postErr)
			metrics.RecordTelegramMessage("campaign_post", "failed")
			if err := s.repo.MarkFailed(ctx, camp.ID, postErr.Error()); err != nil {
				s.logger.Printf("Failed to mark campaign %s failed: %v", camp.ID, err)
			}
			continue
		}

		postedAt := time.Now().UTC()
		endAt := postedAt.Add(time.Duration(legacyDuration(camp)) * time.Hour)
		if camp.EndAt != nil {
			endAt = *camp.EndAt
		}

		if err := s.repo.MarkRunning(ctx, camp.ID, messageID, postedAt, endAt); err != nil {
			s.logger.Printf("Failed to mark campaign %s running: %v", camp.ID, err)
			continue
		}

		metrics.RecordTelegramMessage("campaign_post", "sent")
		s.logger.Printf("Posted campaign %s, message_id=%d", camp.ID, messageID)
		processed++
	}

	metrics.RecordSchedulerSweep("post_due", processed)
}

func (s *DeadlineService) postCampaign(camp *models.Campaign) (int, error) {
	if camp.Kind == models.KindInviteTask {
		if camp.PromoText == "" {
			return 0, fmt.Errorf("no promo_text")
		}
		return s.gateway.SendTextWithButton(camp.ChatID, camp.PromoText, "Open App", s.appURL)
	}

	if camp.Promo == nil {
		return 0, fmt.Errorf("no promo data")
	}
	if camp.Promo.Image != "" {
		return s.gateway.SendPhoto(camp.ChatID, camp.Promo.Image, camp.Promo.Text)
	}
	return s.gateway.SendText(camp.ChatID, camp.Promo.Text)
}

// cleanupFinishedCampaigns deletes the posted message of legacy campaigns
// past their end time and marks them ended. Invite task campaigns also reward
// the user, one time only via the task flag.
func (s *DeadlineService) cleanupFinishedCampaigns(ctx context.Context) {
	now := time.Now().UTC()
	finished, err := s.repo.ListFinishedRunning(ctx, now)
	if err != nil {
		s.logger.Printf("Failed to list finished campaigns: %v", err)
		bugsink.CaptureError(err, map[string]interface{}{"sweep": "cleanup"})
		return
	}

	processed := 0
	for _, camp := range finished {
		if camp.ChatID != 0 && camp.MessageID != 0 {
			// Best effort: the ending transition must not depend on the
			// message still existing.
			if err := s.gateway.DeleteMessage(camp.ChatID, camp.MessageID); err != nil {
				s.logger.Printf("Failed to delete message %d for campaign %s: %v", camp.MessageID, camp.ID, err)
			}
		}

		if err := s.repo.MarkEnded(ctx, camp.ID, time.Now().UTC()); err != nil {
			s.logger.Printf("Failed to mark campaign %s ended: %v", camp.ID, err)
			continue
		}

		if camp.Kind == models.KindInviteTask && camp.UserID != 0 && s.tasks != nil {
			if err := s.tasks.CompleteInviteTask(ctx, camp.ID, camp.UserID); err != nil {
				s.logger.Printf("Failed to complete invite task for campaign %s: %v", camp.ID, err)
				bugsink.CaptureError(err, map[string]interface{}{"campaign_id": camp.ID})
			}
		}

		processed++
	}

	metrics.RecordSchedulerSweep("cleanup", processed)
}

// checkDeadlinesAndExpiry penalizes missed posting deadlines and sends
// one-time duration reminders. Runs every minute.
func (s *DeadlineService) checkDeadlinesAndExpiry(ctx context.Context) {
	now := time.Now().UTC()

	s.checkPostingDeadlines(ctx, now)
	s.checkDurationReminders(ctx, now)
	s.checkInviteTaskReminders(ctx, now)
}

// checkPostingDeadlines expires and penalizes each party that is still
// pending_posting past the deadline. Only the lagging party is touched; the
// other side keeps its state and its reward eligibility.
func (s *DeadlineService) checkPostingDeadlines(ctx context.Context, now time.Time) {
	overdue, err := s.repo.ListPastPostingDeadline(ctx, now)
	if err != nil {
		s.logger.Printf("Failed to list overdue campaigns: %v", err)
		bugsink.CaptureError(err, map[string]interface{}{"sweep": "deadlines"})
		return
	}

	processed := 0
	for _, camp := range overdue {
		for _, role := range []models.PartyRole{models.RoleRequester, models.RoleAcceptor} {
			party := camp.Party(role)
			if party.Status != models.PartyPendingPosting || party.DeadlineNotified {
				continue
			}

			ownerID, partnerName := s.partyOwnerAndPartner(ctx, camp, role)
			if ownerID == 0 {
				continue
			}

			// The expiry transition and its notified flag land in one
			// update; a concurrent sweep loses the filter and skips the
			// penalty.
			if err := s.repo.ExpireParty(ctx, camp.ID, role, now); err != nil {
				if err != repository.ErrPreconditionFailed {
					s.logger.Printf("Failed to expire %s of campaign %s: %v", role, camp.ID, err)
				}
				continue
			}

			if err := s.users.ApplyPenalty(ctx, ownerID, DeadlinePenalty); err != nil {
				s.logger.Printf("Failed to penalize user %d for campaign %s: %v", ownerID, camp.ID, err)
				bugsink.CaptureError(err, map[string]interface{}{"campaign_id": camp.ID, "user_id": ownerID})
			}
			metrics.RecordPenalty(DeadlinePenalty)
			metrics.RecordCampaignTransition(string(models.KindManual), string(models.PartyExpired))

			message := fmt.Sprintf(
				"⚠️ <b>Campaign Posting Deadline Missed</b>\n\n"+
					"Your campaign with <b>%s</b> has expired.\n\n"+
					"You had %d hours to post the promotional material but did not complete it.\n\n"+
					"<b>Penalty:</b> -%d CP Coins\n\n"+
					"The other user will still receive their reward if they completed their side.",
				partnerName, PostingDeadlineHours, DeadlinePenalty,
			)
			s.notify(ownerID, message, "View Campaigns")

			s.logger.Printf("Penalized %s of campaign %s (user %d)", role, camp.ID, ownerID)
			processed++
		}
	}

	metrics.RecordSchedulerSweep("posting_deadlines", processed)
}

// checkDurationReminders sends a one-time reminder once an active party's
// posting duration has elapsed. The party status is untouched: the user must
// end the campaign explicitly to claim the reward.
func (s *DeadlineService) checkDurationReminders(ctx context.Context, now time.Time) {
	active, err := s.repo.ListActivePartiesUnnotified(ctx)
	if err != nil {
		s.logger.Printf("Failed to list active campaigns: %v", err)
		bugsink.CaptureError(err, map[string]interface{}{"sweep": "reminders"})
		return
	}

	processed := 0
	for _, camp := range active {
		for _, role := range []models.PartyRole{models.RoleRequester, models.RoleAcceptor} {
			party := camp.Party(role)
			if party.Status != models.PartyActive || party.NotifiedExpiry || party.PostedAt == nil {
				continue
			}
			if now.Before(party.PostedAt.Add(time.Duration(camp.DurationHours) * time.Hour)) {
				continue
			}

			ownerID, partnerName := s.partyOwnerAndPartner(ctx, camp, role)
			if ownerID == 0 {
				continue
			}

			if err := s.repo.MarkPartyExpiryNotified(ctx, camp.ID, role); err != nil {
				if err != repository.ErrPreconditionFailed {
					s.logger.Printf("Failed to mark %s of campaign %s notified: %v", role, camp.ID, err)
				}
				continue
			}

			message := fmt.Sprintf(
				"⏰ <b>Campaign Timer Complete!</b>\n\n"+
					"Your campaign with <b>%s</b> has ended.\n\n"+
					"✅ Next steps:\n"+
					"1. Delete the promotional post from your channel\n"+
					"2. Open the app and click 'End Campaign'\n"+
					"3. Claim your reward!",
				partnerName,
			)
			s.notify(ownerID, message, "Open App")

			s.logger.Printf("Sent duration reminder for %s of campaign %s (user %d)", role, camp.ID, ownerID)
			processed++
		}
	}

	metrics.RecordSchedulerSweep("duration_reminders", processed)
}

// checkInviteTaskReminders reminds invite task owners whose posting period
// elapsed while the campaign is still running.
func (s *DeadlineService) checkInviteTaskReminders(ctx context.Context, now time.Time) {
	tasks, err := s.repo.ListRunningUnnotifiedInviteTasks(ctx)
	if err != nil {
		s.logger.Printf("Failed to list running invite tasks: %v", err)
		return
	}

	for _, camp := range tasks {
		if camp.PostedAt == nil || camp.UserID == 0 {
			continue
		}
		if now.Before(camp.PostedAt.Add(time.Duration(legacyDuration(camp)) * time.Hour)) {
			continue
		}

		if err := s.repo.MarkExpiryNotified(ctx, camp.ID); err != nil {
			if err != repository.ErrPreconditionFailed {
				s.logger.Printf("Failed to mark invite task %s notified: %v", camp.ID, err)
			}
			continue
		}

		message := "⏰ <b>Invite Task Timer Complete!</b>\n\n" +
			"Your promotional post period has ended.\n\n" +
			"✅ Next steps:\n" +
			"1. Delete the promotional post from your channel\n" +
			"2. Open the app and claim your CP Coins!"
		s.notify(camp.UserID, message, "Claim Reward")
	}
}

// partyOwnerAndPartner resolves the owner of a party's channel and the name
// of the opposite channel for notification text.
func (s *DeadlineService) partyOwnerAndPartner(ctx context.Context, camp *models.Campaign, role models.PartyRole) (int64, string) {
	ownChannelID, partnerChannelID := camp.FromChannelID, camp.ToChannelID
	if role == models.RoleAcceptor {
		ownChannelID, partnerChannelID = camp.ToChannelID, camp.FromChannelID
	}

	own, err := s.channels.GetByID(ctx, ownChannelID)
	if err != nil {
		s.logger.Printf("Failed to resolve channel %s for campaign %s: %v", ownChannelID, camp.ID, err)
		return 0, ""
	}

	partnerName := "Partner"
	if partner, err := s.channels.GetByID(ctx, partnerChannelID); err == nil {
		partnerName = partner.Name
	}

	return own.OwnerID, partnerName
}

// notify sends an open-button message with a plain-text fallback.
func (s *DeadlineService) notify(userID int64, message, buttonText string) {
	if _, err := s.gateway.SendTextWithButton(userID, message, buttonText, s.appURL); err != nil {
		if _, err := s.gateway.SendText(userID, message); err != nil {
			s.logger.Printf("Failed to notify user %d: %v", userID, err)
			metrics.RecordTelegramMessage("scheduler_notify", "failed")
			return
		}
	}
	metrics.RecordTelegramMessage("scheduler_notify", "sent")
}

func legacyDuration(camp *models.Campaign) int {
	if camp.DurationHours > 0 {
		return camp.DurationHours
	}
	return defaultLegacyDurationHours
}
