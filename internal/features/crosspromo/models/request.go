package models

import (
	"time"

	channelmodels "cpgram-backend/internal/features/channel/models"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestAccepted RequestStatus = "Accepted"
	RequestDeclined RequestStatus = "Declined"
)

// CrossPromoRequest is an offer from one channel owner to another to run a
// mutual promotion.
type CrossPromoRequest struct {
	ID            string                      `bson:"id" json:"id"`
	FromChannel   string                      `bson:"fromChannel" json:"fromChannel"`
	FromChannelID string                      `bson:"fromChannelId" json:"fromChannelId"`
	ToChannel     string                      `bson:"toChannel" json:"toChannel"`
	ToChannelID   string                      `bson:"toChannelId" json:"toChannelId"`
	DaySelected   string                      `bson:"daySelected" json:"daySelected"`
	TimeSelected  string                      `bson:"timeSelected" json:"timeSelected"`
	DurationHours int                         `bson:"duration" json:"duration"`
	CPCCost       int64                       `bson:"cpcCost" json:"cpcCost"`
	Promo         channelmodels.PromoMaterial `bson:"promo" json:"promo"`
	Status        RequestStatus               `bson:"status" json:"status"`
	CreatedAt     time.Time                   `bson:"created_at" json:"created_at"`
	AcceptedAt    *time.Time                  `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
}

// CreateRequestPayload is the body of POST /request.
type CreateRequestPayload struct {
	FromChannelID string                      `json:"fromChannelId" binding:"required"`
	ToChannelID   string                      `json:"toChannelId" binding:"required"`
	DaySelected   string                      `json:"daySelected"`
	TimeSelected  string                      `json:"timeSelected"`
	DurationHours int                         `json:"duration" binding:"required"`
	CPCCost       int64                       `json:"cpcCost" binding:"required"`
	Promo         channelmodels.PromoMaterial `json:"promo"`
}
