package repository

import (
	"context"
	"errors"
	"time"

	"cpgram-backend/internal/features/campaign/models"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrPreconditionFailed means the compare-and-set filter matched no
	// document: the record moved on since it was read.
	ErrPreconditionFailed = errors.New("campaign state precondition failed")
)

// CampaignRepository is the persistence boundary for campaigns. Every state
// transition is a single filtered update carrying its pre-state in the filter,
// and idempotence flags are set in the same update as the transition they
// guard.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	ListByChannelIDs(ctx context.Context, channelIDs []string) ([]*models.Campaign, error)
	Count(ctx context.Context) (int64, error)

	// SetPartyPosted moves one party to active and records the post link.
	// The filter admits pending_posting and active, so re-submitting while
	// active overwrites the link.
	SetPartyPosted(ctx context.Context, id string, role models.PartyRole, postLink string, now time.Time) error

	// CompletePartyReward moves one party active -> completed and flips
	// reward_given, guarded on reward_given=false in the filter.
	CompletePartyReward(ctx context.Context, id string, role models.PartyRole, now time.Time) error

	// IncrementStats adds delivery counters to a campaign. Unconditional, no
	// pre-state filter.
	IncrementStats(ctx context.Context, id string, impressions, clicks int64) error

	// ListCompletedByToChannels returns manual campaigns targeting one of the
	// given channels whose acceptor side completed.
	ListCompletedByToChannels(ctx context.Context, channelIDs []string) ([]*models.Campaign, error)

	// CountCompletedByFromChannels counts manual campaigns originating from
	// one of the given channels whose requester side completed.
	CountCompletedByFromChannels(ctx context.Context, channelIDs []string) (int64, error)

	// ListPastPostingDeadline returns manual campaigns whose deadline passed
	// with at least one party still pending_posting and not yet penalized.
	ListPastPostingDeadline(ctx context.Context, now time.Time) ([]*models.Campaign, error)

	// ExpireParty moves one party pending_posting -> expired and sets
	// deadline_notified in the same update.
	ExpireParty(ctx context.Context, id string, role models.PartyRole, now time.Time) error

	// ListActivePartiesUnnotified returns manual campaigns with at least one
	// active party whose duration reminder has not been sent. The duration
	// cutoff is evaluated by the caller.
	ListActivePartiesUnnotified(ctx context.Context) ([]*models.Campaign, error)

	// MarkPartyExpiryNotified flips notified_expiry for an active party.
	MarkPartyExpiryNotified(ctx context.Context, id string, role models.PartyRole) error

	// Legacy bot-posted campaigns.
	ListDueScheduled(ctx context.Context, window time.Time) ([]*models.Campaign, error)
	MarkRunning(ctx context.Context, id string, messageID int, postedAt, endAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
	ListFinishedRunning(ctx context.Context, now time.Time) ([]*models.Campaign, error)
	MarkEnded(ctx context.Context, id string, now time.Time) error
	ListRunningUnnotifiedInviteTasks(ctx context.Context) ([]*models.Campaign, error)
	MarkExpiryNotified(ctx context.Context, id string) error
}
