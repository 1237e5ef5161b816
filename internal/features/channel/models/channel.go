package models

import "time"

type ChannelStatus string

const (
	ChannelStatusPending  ChannelStatus = "pending"
	ChannelStatusApproved ChannelStatus = "approved"
	ChannelStatusRejected ChannelStatus = "rejected"
)

// PriceSetting is one duration price option keyed by hours ("2", "4", ...).
type PriceSetting struct {
	Enabled bool  `bson:"enabled" json:"enabled"`
	Price   int64 `bson:"price" json:"price"`
}

// PromoMaterial is one prepared promo post a partner can run.
type PromoMaterial struct {
	Text  string `bson:"text" json:"text"`
	Link  string `bson:"link,omitempty" json:"link,omitempty"`
	Image string `bson:"image,omitempty" json:"image,omitempty"`
	CTA   string `bson:"cta,omitempty" json:"cta,omitempty"`
}

// Channel is a registered Telegram channel offering promo slots.
type Channel struct {
	ID             string                  `bson:"id" json:"id"`
	OwnerID        int64                   `bson:"owner_id" json:"owner_id"`
	Name           string                  `bson:"name" json:"name"`
	Username       string                  `bson:"username" json:"username"`
	TelegramID     int64                   `bson:"telegram_id" json:"telegram_id"`
	Avatar         string                  `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Subscribers    int                     `bson:"subscribers" json:"subscribers"`
	AvgViews24h    int                     `bson:"avgViews24h" json:"avgViews24h"`
	Language       string                  `bson:"language" json:"language"`
	Topic          string                  `bson:"topic" json:"topic"`
	SelectedDays   []string                `bson:"selected_days" json:"selected_days"`
	PromosPerDay   int                     `bson:"promos_per_day" json:"promos_per_day"`
	PriceSettings  map[string]PriceSetting `bson:"price_settings" json:"price_settings"`
	TimeSlots      []string                `bson:"time_slots" json:"time_slots"`
	PromoMaterials []PromoMaterial         `bson:"promo_materials" json:"promo_materials"`
	Status         ChannelStatus           `bson:"status" json:"status"`
	IsPaused       bool                    `bson:"is_paused" json:"is_paused"`
	Exchanges      int                     `bson:"xExchanges" json:"xExchanges"`
	CreatedAt      time.Time               `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time               `bson:"updated_at" json:"updated_at"`
}

// PublicChannel is the discovery view exposed to other users.
type PublicChannel struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Topic          string           `json:"topic"`
	Subscribers    int              `json:"subs"`
	Language       string           `json:"lang"`
	Avatar         string           `json:"avatar"`
	AcceptedDays   []string         `json:"acceptedDays"`
	TimeSlots      []string         `json:"availableTimeSlots"`
	DurationPrices map[string]int64 `json:"durationPrices"`
	TelegramChat   string           `json:"telegram_chat"`
	Exchanges      int              `json:"xExchanges"`
}

// CreateChannelRequest is the payload for channel registration.
type CreateChannelRequest struct {
	ChannelInput   string                  `json:"channel_input" binding:"required"`
	Topic          string                  `json:"topic" binding:"required"`
	Language       string                  `json:"language"`
	SelectedDays   []string                `json:"selected_days" binding:"required"`
	PromosPerDay   int                     `json:"promos_per_day" binding:"required"`
	PriceSettings  map[string]PriceSetting `json:"price_settings" binding:"required"`
	TimeSlots      []string                `json:"time_slots" binding:"required"`
	PromoMaterials []PromoMaterial         `json:"promo_materials" binding:"required"`
	BotConnected   bool                    `json:"bot_connected"`
}

// UpdateChannelRequest carries the owner-editable fields. Pointers distinguish
// absent fields from zero values.
type UpdateChannelRequest struct {
	Topic          *string                  `json:"topic,omitempty"`
	SelectedDays   *[]string                `json:"selected_days,omitempty"`
	PromosPerDay   *int                     `json:"promos_per_day,omitempty"`
	PriceSettings  *map[string]PriceSetting `json:"price_settings,omitempty"`
	TimeSlots      *[]string                `json:"time_slots,omitempty"`
	PromoMaterials *[]PromoMaterial         `json:"promo_materials,omitempty"`
}

// ToPublic converts a channel to its discovery view, keeping only enabled
// duration prices.
func (c *Channel) ToPublic() PublicChannel {
	durationPrices := make(map[string]int64)
	for hours, setting := range c.PriceSettings {
		if setting.Enabled {
			durationPrices[hours] = setting.Price
		}
	}

	avatar := c.Avatar
	if avatar == "" {
		avatar = "https://placehold.co/60x60"
	}

	return PublicChannel{
		ID:             c.ID,
		Name:           c.Name,
		Topic:          c.Topic,
		Subscribers:    c.Subscribers,
		Language:       c.Language,
		Avatar:         avatar,
		AcceptedDays:   c.SelectedDays,
		TimeSlots:      c.TimeSlots,
		DurationPrices: durationPrices,
		TelegramChat:   c.Username,
		Exchanges:      c.Exchanges,
	}
}
