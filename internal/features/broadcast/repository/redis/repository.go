package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cpgram-backend/internal/features/broadcast/models"
	"cpgram-backend/internal/features/broadcast/repository"
)

// Progress hashes stay around for a week so admins can check old broadcasts.
const progressTTL = 7 * 24 * time.Hour

type progressRepository struct {
	client *redis.Client
}

func NewProgressRepository(client *redis.Client) repository.ProgressRepository {
	return &progressRepository{
		client: client,
	}
}

func progressKey(id string) string {
	return "broadcast:" + id
}

func (r *progressRepository) Init(ctx context.Context, id string, total int64) error {
	key := progressKey(id)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status": models.StatusQueued,
		"total":  total,
		"sent":   0,
		"failed": 0,
	})
	pipe.Expire(ctx, key, progressTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *progressRepository) SetStatus(ctx context.Context, id, status string) error {
	return r.client.HSet(ctx, progressKey(id), "status", status).Err()
}

func (r *progressRepository) IncrSent(ctx context.Context, id string) error {
	return r.client.HIncrBy(ctx, progressKey(id), "sent", 1).Err()
}

func (r *progressRepository) IncrFailed(ctx context.Context, id string) error {
	return r.client.HIncrBy(ctx, progressKey(id), "failed", 1).Err()
}

func (r *progressRepository) Get(ctx context.Context, id string) (*models.BroadcastProgress, error) {
	fields, err := r.client.HGetAll(ctx, progressKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, repository.ErrBroadcastNotFound
	}

	progress := &models.BroadcastProgress{
		ID:     id,
		Status: fields["status"],
	}
	progress.Total, _ = strconv.ParseInt(fields["total"], 10, 64)
	progress.Sent, _ = strconv.ParseInt(fields["sent"], 10, 64)
	progress.Failed, _ = strconv.ParseInt(fields["failed"], 10, 64)
	return progress, nil
}
