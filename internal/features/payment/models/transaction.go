package models

import "time"

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "PENDING"
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// Transaction records a CP Coin purchase paid with Telegram Stars. The
// transaction ID doubles as the invoice payload, which is how the payment
// webhook finds its way back to the record.
type Transaction struct {
	TransactionID           string            `bson:"transaction_id" json:"transaction_id"`
	TelegramID              int64             `bson:"telegram_id" json:"telegram_id"`
	CPCAmount               int64             `bson:"cpc_amount" json:"cpc_amount"`
	StarsCost               int               `bson:"stars_cost" json:"stars_cost"`
	Status                  TransactionStatus `bson:"status" json:"status"`
	TelegramPaymentChargeID string            `bson:"telegram_payment_charge_id,omitempty" json:"telegram_payment_charge_id,omitempty"`
	ProviderPaymentChargeID string            `bson:"provider_payment_charge_id,omitempty" json:"provider_payment_charge_id,omitempty"`
	Error                   string            `bson:"error,omitempty" json:"error,omitempty"`
	WebhookAt               *time.Time        `bson:"webhook_timestamp,omitempty" json:"webhook_timestamp,omitempty"`
	CreatedAt               time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt               time.Time         `bson:"updated_at" json:"updated_at"`
}

// Rates describes the Stars-to-coins exchange terms.
type Rates struct {
	StarsPerCPC     int   `json:"stars_per_cpc"`
	CPCPerStar      int   `json:"cpc_per_star"`
	MinimumPurchase int64 `json:"minimum_purchase"`
}

// InitiatePurchasePayload is the body of POST /purchase/stars.
type InitiatePurchasePayload struct {
	CPCAmount int64 `json:"cpc_amount" binding:"required"`
}
