package repository

import (
	"context"
	"errors"
	"time"

	"cpgram-backend/internal/features/crosspromo/models"
)

var (
	ErrRequestNotFound = errors.New("request not found")

	// ErrPreconditionFailed means the status filter matched no document.
	ErrPreconditionFailed = errors.New("request state precondition failed")
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.CrossPromoRequest) error
	GetByID(ctx context.Context, id string) (*models.CrossPromoRequest, error)
	ListByChannelIDs(ctx context.Context, channelIDs []string) ([]*models.CrossPromoRequest, error)

	// UpdateStatusAtomic transitions the request only when its current
	// status matches from.
	UpdateStatusAtomic(ctx context.Context, id string, from, to models.RequestStatus, acceptedAt *time.Time) error

	CountAcceptedByChannel(ctx context.Context, channelID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}
