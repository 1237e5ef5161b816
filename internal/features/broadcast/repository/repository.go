package repository

import (
	"context"
	"errors"

	"cpgram-backend/internal/features/broadcast/models"
)

var ErrBroadcastNotFound = errors.New("broadcast not found")

// ProgressRepository tracks per-broadcast delivery counters.
type ProgressRepository interface {
	Init(ctx context.Context, id string, total int64) error
	SetStatus(ctx context.Context, id, status string) error
	IncrSent(ctx context.Context, id string) error
	IncrFailed(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.BroadcastProgress, error)
}
