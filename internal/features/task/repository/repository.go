package repository

import (
	"context"
	"errors"

	"cpgram-backend/internal/features/task/models"
)

// ErrAlreadyClaimed means the one-time flag was already set for this user.
var ErrAlreadyClaimed = errors.New("task already claimed")

type TaskRepository interface {
	// Get returns the user's task record, or an empty record when the user
	// has not completed any task yet.
	Get(ctx context.Context, telegramID int64) (*models.TaskRecord, error)

	// MarkClaimed sets a one-time flag together with its claimed-at
	// timestamp field. Returns ErrAlreadyClaimed when the flag is already
	// true.
	MarkClaimed(ctx context.Context, telegramID int64, flag, claimedAtField string) error

	// MarkInviteStarted records that an invite campaign was created for the
	// channel. Returns ErrAlreadyClaimed when one already exists.
	MarkInviteStarted(ctx context.Context, telegramID int64, channelID, campaignID string) error

	// MarkInviteCompleted sets the global invite completion flag.
	MarkInviteCompleted(ctx context.Context, telegramID int64) error

	// ResetInviteFlags clears the invite completion flag for every user and
	// returns how many records changed.
	ResetInviteFlags(ctx context.Context) (int64, error)
}
