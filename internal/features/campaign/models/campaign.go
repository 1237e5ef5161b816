package models

import (
	"time"

	channelmodels "cpgram-backend/internal/features/channel/models"
)

// CampaignKind distinguishes the two-party manual workflow from the legacy
// bot-posted campaigns.
type CampaignKind string

const (
	KindManual     CampaignKind = "manual"
	KindScheduled  CampaignKind = "scheduled_post"
	KindInviteTask CampaignKind = "invite_task"
)

// PartyRole identifies a side of a two-party campaign.
type PartyRole string

const (
	RoleRequester PartyRole = "requester"
	RoleAcceptor  PartyRole = "acceptor"
)

// PartyStatus is the per-party sub-state. Transitions are strictly forward:
// pending_posting -> active | expired, active -> completed.
type PartyStatus string

const (
	PartyPendingPosting PartyStatus = "pending_posting"
	PartyActive         PartyStatus = "active"
	PartyCompleted      PartyStatus = "completed"
	PartyExpired        PartyStatus = "expired"
)

// LegacyStatus is the single status of bot-posted campaigns.
type LegacyStatus string

const (
	LegacyScheduled LegacyStatus = "scheduled"
	LegacyRunning   LegacyStatus = "running"
	LegacyEnded     LegacyStatus = "ended"
	LegacyFailed    LegacyStatus = "failed"
)

// PartyState tracks one side of a two-party campaign independently of the
// other.
type PartyState struct {
	Status           PartyStatus `bson:"status" json:"status"`
	PostLink         string      `bson:"post_link,omitempty" json:"post_link,omitempty"`
	PostedAt         *time.Time  `bson:"posted_at,omitempty" json:"posted_at,omitempty"`
	EndedAt          *time.Time  `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	RewardGiven      bool        `bson:"reward_given" json:"reward_given"`
	DeadlineNotified bool        `bson:"deadline_notified" json:"deadline_notified"`
	NotifiedExpiry   bool        `bson:"notified_expiry" json:"notified_expiry"`
}

// Campaign is a single campaigns-collection document. Manual campaigns use
// the two-party fields; scheduled_post and invite_task campaigns use the
// legacy fields.
type Campaign struct {
	ID   string       `bson:"id" json:"id"`
	Kind CampaignKind `bson:"kind" json:"kind"`

	// Two-party fields (kind == manual)
	RequestID       string                      `bson:"request_id,omitempty" json:"request_id,omitempty"`
	FromChannelID   string                      `bson:"fromChannelId,omitempty" json:"fromChannelId,omitempty"`
	ToChannelID     string                      `bson:"toChannelId,omitempty" json:"toChannelId,omitempty"`
	RequesterPromo  channelmodels.PromoMaterial `bson:"requester_promo,omitempty" json:"requester_promo,omitempty"`
	AcceptorPromo   channelmodels.PromoMaterial `bson:"acceptor_promo,omitempty" json:"acceptor_promo,omitempty"`
	DurationHours   int                         `bson:"duration_hours" json:"duration_hours"`
	CPCCost         int64                       `bson:"cpc_cost,omitempty" json:"cpc_cost,omitempty"`
	PostingDeadline time.Time                   `bson:"posting_deadline,omitempty" json:"posting_deadline,omitempty"`
	Requester       PartyState                  `bson:"requester,omitempty" json:"requester,omitempty"`
	Acceptor        PartyState                  `bson:"acceptor,omitempty" json:"acceptor,omitempty"`

	// Legacy fields (kind == scheduled_post | invite_task)
	Status         LegacyStatus                 `bson:"status,omitempty" json:"status,omitempty"`
	ChatID         int64                        `bson:"chat_id,omitempty" json:"chat_id,omitempty"`
	Promo          *channelmodels.PromoMaterial `bson:"promo,omitempty" json:"promo,omitempty"`
	PromoText      string                       `bson:"promo_text,omitempty" json:"promo_text,omitempty"`
	UserID         int64                        `bson:"user_id,omitempty" json:"user_id,omitempty"`
	StartAt        *time.Time                   `bson:"start_at,omitempty" json:"start_at,omitempty"`
	EndAt          *time.Time                   `bson:"end_at,omitempty" json:"end_at,omitempty"`
	MessageID      int                          `bson:"message_id,omitempty" json:"message_id,omitempty"`
	PostedAt       *time.Time                   `bson:"posted_at,omitempty" json:"posted_at,omitempty"`
	ExpiryNotified bool                         `bson:"expiry_notified,omitempty" json:"expiry_notified,omitempty"`
	Error          string                       `bson:"error,omitempty" json:"error,omitempty"`

	// Delivery counters accumulated while the campaign runs.
	Impressions int64 `bson:"impressions,omitempty" json:"impressions,omitempty"`
	Clicks      int64 `bson:"clicks,omitempty" json:"clicks,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Party returns the state of the given side.
func (c *Campaign) Party(role PartyRole) PartyState {
	if role == RoleRequester {
		return c.Requester
	}
	return c.Acceptor
}

// CampaignView is a campaign annotated with the caller's role. Status, link
// and times are the caller's own; Promo is the material the caller must post
// (the other party's).
type CampaignView struct {
	ID                 string                      `json:"id"`
	RequestID          string                      `json:"request_id,omitempty"`
	FromChannelID      string                      `json:"fromChannelId"`
	ToChannelID        string                      `json:"toChannelId"`
	DurationHours      int                         `json:"duration_hours"`
	CPCCost            int64                       `json:"cpc_cost"`
	PostingDeadline    time.Time                   `json:"posting_deadline"`
	UserRole           PartyRole                   `json:"user_role"`
	Status             PartyStatus                 `json:"status"`
	Promo              channelmodels.PromoMaterial `json:"promo"`
	PostLink           string                      `json:"post_verification_link,omitempty"`
	ActualStartAt      *time.Time                  `json:"actual_start_at,omitempty"`
	ActualEndAt        *time.Time                  `json:"actual_end_at,omitempty"`
	PartnerChannelName string                      `json:"partner_channel_name,omitempty"`
	CreatedAt          time.Time                   `json:"created_at"`
}

// RewardResult is the outcome of ending one side of a campaign.
type RewardResult struct {
	Reward int64     `json:"reward"`
	Role   PartyRole `json:"role"`
}

// UserAnalytics aggregates cross-promotion outcomes over the caller's
// channels.
type UserAnalytics struct {
	TotalImpressions int64   `json:"totalImpressions"`
	EngagementRate   float64 `json:"engagementRate"`
	NewSubscribers   int64   `json:"newSubscribers"`
}
