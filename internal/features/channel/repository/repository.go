package repository

import (
	"context"
	"errors"

	"cpgram-backend/internal/features/channel/models"
)

var ErrChannelNotFound = errors.New("channel not found")

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	GetByIDAndOwner(ctx context.Context, id string, ownerID int64) (*models.Channel, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Channel, error)
	ListByStatus(ctx context.Context, status models.ChannelStatus) ([]*models.Channel, error)
	ListApprovedActive(ctx context.Context) ([]*models.Channel, error)
	Update(ctx context.Context, id string, ownerID int64, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, id string, status models.ChannelStatus) error
	SetPaused(ctx context.Context, id string, ownerID int64, paused bool) error
	Delete(ctx context.Context, id string, ownerID int64) error

	// IncrementExchanges bumps the completed exchange counter.
	IncrementExchanges(ctx context.Context, id string) error

	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.ChannelStatus) (int64, error)
}
