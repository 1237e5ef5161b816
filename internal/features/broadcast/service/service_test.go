package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpgram-backend/internal/features/broadcast/models"
	"cpgram-backend/internal/features/broadcast/repository"
	"cpgram-backend/internal/platform/rabbit"
)

type memProgressRepo struct {
	mu       sync.Mutex
	progress map[string]*models.BroadcastProgress
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{progress: map[string]*models.BroadcastProgress{}}
}

func (r *memProgressRepo) Init(ctx context.Context, id string, total int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[id] = &models.BroadcastProgress{ID: id, Status: models.StatusQueued, Total: total}
	return nil
}

func (r *memProgressRepo) SetStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.progress[id]
	if !ok {
		return repository.ErrBroadcastNotFound
	}
	progress.Status = status
	return nil
}

func (r *memProgressRepo) IncrSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.progress[id]
	if !ok {
		return repository.ErrBroadcastNotFound
	}
	progress.Sent++
	return nil
}

func (r *memProgressRepo) IncrFailed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.progress[id]
	if !ok {
		return repository.ErrBroadcastNotFound
	}
	progress.Failed++
	return nil
}

func (r *memProgressRepo) Get(ctx context.Context, id string) (*models.BroadcastProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.progress[id]
	if !ok {
		return nil, repository.ErrBroadcastNotFound
	}
	clone := *progress
	return &clone, nil
}

type broadcastSend struct {
	chatID int64
	kind   string
}

type fakeBroadcastGateway struct {
	failChats map[int64]bool
	sends     []broadcastSend
}

func (g *fakeBroadcastGateway) SendText(chatID int64, text string) (int, error) {
	if g.failChats[chatID] {
		return 0, errors.New("blocked by user")
	}
	g.sends = append(g.sends, broadcastSend{chatID, "text"})
	return 1, nil
}

func (g *fakeBroadcastGateway) SendTextWithButton(chatID int64, text, buttonText, buttonURL string) (int, error) {
	if g.failChats[chatID] {
		return 0, errors.New("blocked by user")
	}
	g.sends = append(g.sends, broadcastSend{chatID, "button"})
	return 1, nil
}

func (g *fakeBroadcastGateway) SendPhoto(chatID int64, photoURL, caption string) (int, error) {
	if g.failChats[chatID] {
		return 0, errors.New("blocked by user")
	}
	g.sends = append(g.sends, broadcastSend{chatID, "photo"})
	return 1, nil
}

// The consumer paths are driven directly; the queue is only touched by Start
// and StartWorker.
func newConsumerService(progress repository.ProgressRepository, gateway BroadcastGateway) *broadcastService {
	return &broadcastService{
		progress:    progress,
		gateway:     gateway,
		adminChatID: 777,
	}
}

func marshalBag(t *testing.T, bag rabbit.MessageBag) []byte {
	t.Helper()
	data, err := json.Marshal(bag)
	require.NoError(t, err)
	return data
}

func TestHandleMessagePicksDeliveryKind(t *testing.T) {
	repo := newMemProgressRepo()
	gateway := &fakeBroadcastGateway{}
	svc := newConsumerService(repo, gateway)
	require.NoError(t, repo.Init(context.Background(), "bcast_1", 3))

	svc.handleMessage(marshalBag(t, rabbit.MessageBag{BroadcastID: "bcast_1", ChatID: 1, Text: "hi"}), nil)
	svc.handleMessage(marshalBag(t, rabbit.MessageBag{BroadcastID: "bcast_1", ChatID: 2, Text: "hi", ButtonText: "Open", ButtonURL: "https://t.me/app"}), nil)
	svc.handleMessage(marshalBag(t, rabbit.MessageBag{BroadcastID: "bcast_1", ChatID: 3, Text: "hi", PhotoURL: "https://example.com/a.png"}), nil)

	require.Len(t, gateway.sends, 3)
	assert.Equal(t, "text", gateway.sends[0].kind)
	assert.Equal(t, "button", gateway.sends[1].kind)
	assert.Equal(t, "photo", gateway.sends[2].kind)
}

func TestHandleMessageCountsAndCompletes(t *testing.T) {
	repo := newMemProgressRepo()
	gateway := &fakeBroadcastGateway{failChats: map[int64]bool{2: true}}
	svc := newConsumerService(repo, gateway)
	ctx := context.Background()
	require.NoError(t, repo.Init(ctx, "bcast_1", 2))

	svc.handleMessage(marshalBag(t, rabbit.MessageBag{BroadcastID: "bcast_1", ChatID: 1, Text: "hi"}), nil)

	progress, err := repo.Get(ctx, "bcast_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), progress.Sent)
	assert.NotEqual(t, models.StatusCompleted, progress.Status)

	svc.handleMessage(marshalBag(t, rabbit.MessageBag{BroadcastID: "bcast_1", ChatID: 2, Text: "hi"}), nil)

	progress, err = repo.Get(ctx, "bcast_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), progress.Sent)
	assert.Equal(t, int64(1), progress.Failed)
	assert.Equal(t, models.StatusCompleted, progress.Status)

	// Completion notifies the admin chat.
	require.NotEmpty(t, gateway.sends)
	assert.Equal(t, int64(777), gateway.sends[len(gateway.sends)-1].chatID)
}

func TestHandleMessageDropsMalformedPayload(t *testing.T) {
	repo := newMemProgressRepo()
	gateway := &fakeBroadcastGateway{}
	svc := newConsumerService(repo, gateway)
	require.NoError(t, repo.Init(context.Background(), "bcast_1", 1))

	svc.handleMessage([]byte("{not json"), nil)

	progress, err := repo.Get(context.Background(), "bcast_1")
	require.NoError(t, err)
	assert.Zero(t, progress.Sent)
	assert.Zero(t, progress.Failed)
	assert.Empty(t, gateway.sends)
}

func TestGetProgressNotFound(t *testing.T) {
	svc := newConsumerService(newMemProgressRepo(), &fakeBroadcastGateway{})

	_, err := svc.GetProgress(context.Background(), "bcast_missing")
	assert.Error(t, err)
}
