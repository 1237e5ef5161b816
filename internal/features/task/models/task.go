package models

import "time"

// Task is a one-time earning opportunity shown in the tasks tab.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Reward      int64  `json:"reward"`
	Type        string `json:"type"`
	Completed   bool   `json:"completed"`
	ActionText  string `json:"actionText"`
}

// TaskRecord tracks which tasks a user has completed. Per-channel invite
// flags use dynamic keys (invite_users_<channelID>) and land in Extra.
type TaskRecord struct {
	TelegramID            int64                  `bson:"telegram_id"`
	WelcomeBonus          bool                   `bson:"welcome_bonus"`
	WelcomeBonusClaimedAt *time.Time             `bson:"welcome_bonus_claimed_at,omitempty"`
	JoinChannel           bool                   `bson:"join_channel"`
	JoinChannelVerifiedAt *time.Time             `bson:"join_channel_verified_at,omitempty"`
	InviteUsers           bool                   `bson:"invite_users"`
	Extra                 map[string]interface{} `bson:",inline"`
}

// InviteStarted reports whether an invite task was already created for the
// given channel.
func (r *TaskRecord) InviteStarted(channelID string) bool {
	if r.Extra == nil {
		return false
	}
	started, _ := r.Extra["invite_users_"+channelID].(bool)
	return started
}

// CreateInviteTaskPayload is the body of POST /tasks/create-invite.
type CreateInviteTaskPayload struct {
	ChannelID string `json:"channel_id" binding:"required"`
}
