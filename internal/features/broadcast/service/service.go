package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	apperrors "cpgram-backend/internal/common/errors"
	"cpgram-backend/internal/common/logger"
	"cpgram-backend/internal/features/broadcast/models"
	"cpgram-backend/internal/features/broadcast/repository"
	userservice "cpgram-backend/internal/features/user/service"
	"cpgram-backend/internal/platform/metrics"
	"cpgram-backend/internal/platform/rabbit"
)

// Bot API allows roughly 30 messages per second; 20 leaves headroom for the
// scheduler's own sends.
const senderMessagesPerSecond = 20

// BroadcastGateway covers the Telegram sends a broadcast can produce.
type BroadcastGateway interface {
	SendText(chatID int64, text string) (int, error)
	SendTextWithButton(chatID int64, text, buttonText, buttonURL string) (int, error)
	SendPhoto(chatID int64, photoURL, caption string) (int, error)
}

type BroadcastService interface {
	// Start enqueues one message per user and returns the broadcast ID.
	Start(ctx context.Context, payload *models.BroadcastPayload) (*models.BroadcastProgress, error)

	GetProgress(ctx context.Context, id string) (*models.BroadcastProgress, error)

	// StartWorker registers the queue consumer that delivers broadcast
	// messages. Call once at startup.
	StartWorker()
}

type broadcastService struct {
	progress    repository.ProgressRepository
	users       userservice.UserService
	queue       *rabbit.Client
	gateway     BroadcastGateway
	adminChatID int64
}

func NewBroadcastService(progress repository.ProgressRepository, users userservice.UserService,
	queue *rabbit.Client, gateway BroadcastGateway, adminChatID int64) BroadcastService {
	return &broadcastService{
		progress:    progress,
		users:       users,
		queue:       queue,
		gateway:     gateway,
		adminChatID: adminChatID,
	}
}

func (s *broadcastService) Start(ctx context.Context, payload *models.BroadcastPayload) (*models.BroadcastProgress, error) {
	recipients, err := s.users.ListRecipients(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list recipients", err)
	}
	if len(recipients) == 0 {
		return nil, apperrors.NewValidationError("recipients", "no users to broadcast to")
	}

	id := "bcast_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	if err := s.progress.Init(ctx, id, int64(len(recipients))); err != nil {
		return nil, apperrors.NewCacheError("init broadcast progress", err)
	}

	enqueued := 0
	for _, chatID := range recipients {
		bag := rabbit.MessageBag{
			BroadcastID: id,
			ChatID:      chatID,
			Text:        payload.Text,
			PhotoURL:    payload.Image,
			ButtonText:  payload.CTA,
			ButtonURL:   payload.Link,
			Priority:    1,
		}
		if err := s.queue.PublishMessage(bag); err != nil {
			logger.Error().Err(err).Str("broadcast_id", id).Int64("chat_id", chatID).Msg("Failed to enqueue broadcast message")
			if err := s.progress.IncrFailed(ctx, id); err != nil {
				logger.Warn().Err(err).Str("broadcast_id", id).Msg("Failed to count enqueue failure")
			}
			continue
		}
		enqueued++
	}

	if err := s.progress.SetStatus(ctx, id, models.StatusProcessing); err != nil {
		logger.Warn().Err(err).Str("broadcast_id", id).Msg("Failed to mark broadcast processing")
	}

	logger.Info().
		Str("broadcast_id", id).
		Int("recipients", len(recipients)).
		Int("enqueued", enqueued).
		Msg("Broadcast started")

	return &models.BroadcastProgress{
		ID:     id,
		Status: models.StatusProcessing,
		Total:  int64(len(recipients)),
	}, nil
}

func (s *broadcastService) GetProgress(ctx context.Context, id string) (*models.BroadcastProgress, error) {
	progress, err := s.progress.Get(ctx, id)
	if err == repository.ErrBroadcastNotFound {
		return nil, apperrors.NewNotFoundError("Broadcast", id)
	}
	if err != nil {
		return nil, apperrors.NewCacheError("get broadcast progress", err)
	}
	return progress, nil
}

func (s *broadcastService) StartWorker() {
	s.queue.RegisterHandler(senderMessagesPerSecond, s.handleMessage)
}

func (s *broadcastService) handleMessage(data []byte, headers amqp.Table) {
	ctx := context.Background()

	var bag rabbit.MessageBag
	if err := json.Unmarshal(data, &bag); err != nil {
		logger.Error().Err(err).Msg("Malformed broadcast message, dropping")
		return
	}

	if err := s.deliver(&bag); err != nil {
		logger.Warn().Err(err).Str("broadcast_id", bag.BroadcastID).Int64("chat_id", bag.ChatID).Msg("Broadcast delivery failed")
		metrics.RecordTelegramMessage("broadcast", "failed")
		if err := s.progress.IncrFailed(ctx, bag.BroadcastID); err != nil {
			logger.Warn().Err(err).Str("broadcast_id", bag.BroadcastID).Msg("Failed to count delivery failure")
		}
	} else {
		metrics.RecordTelegramMessage("broadcast", "sent")
		if err := s.progress.IncrSent(ctx, bag.BroadcastID); err != nil {
			logger.Warn().Err(err).Str("broadcast_id", bag.BroadcastID).Msg("Failed to count delivery")
		}
	}

	s.maybeComplete(ctx, bag.BroadcastID)
}

func (s *broadcastService) deliver(bag *rabbit.MessageBag) error {
	var err error
	switch {
	case bag.PhotoURL != "":
		_, err = s.gateway.SendPhoto(bag.ChatID, bag.PhotoURL, bag.Text)
	case bag.ButtonURL != "" && bag.ButtonText != "":
		_, err = s.gateway.SendTextWithButton(bag.ChatID, bag.Text, bag.ButtonText, bag.ButtonURL)
	default:
		_, err = s.gateway.SendText(bag.ChatID, bag.Text)
	}
	return err
}

// maybeComplete closes out the broadcast once every message is accounted for.
// The consumer is a single goroutine, so the check-then-set here does not race
// with other deliveries of the same broadcast.
func (s *broadcastService) maybeComplete(ctx context.Context, id string) {
	progress, err := s.progress.Get(ctx, id)
	if err != nil {
		logger.Warn().Err(err).Str("broadcast_id", id).Msg("Failed to read broadcast progress")
		return
	}
	if progress.Status == models.StatusCompleted || progress.Sent+progress.Failed < progress.Total {
		return
	}

	if err := s.progress.SetStatus(ctx, id, models.StatusCompleted); err != nil {
		logger.Warn().Err(err).Str("broadcast_id", id).Msg("Failed to mark broadcast completed")
		return
	}

	logger.Info().
		Str("broadcast_id", id).
		Int64("sent", progress.Sent).
		Int64("failed", progress.Failed).
		Msg("Broadcast completed")

	if s.adminChatID != 0 {
		text := fmt.Sprintf(
			"📣 Broadcast Complete\n\nSent: %d\nFailed: %d\nBroadcast ID: %s",
			progress.Sent, progress.Failed, id,
		)
		if _, err := s.gateway.SendText(s.adminChatID, text); err != nil {
			logger.Warn().Err(err).Str("broadcast_id", id).Msg("Failed to notify admin about broadcast completion")
		}
	}
}
