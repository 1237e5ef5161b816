package models

import "time"

// User is a Mini App user. CPCBalance is the CP Coin balance and is mutated
// only through the ledger operations on the user service.
type User struct {
	TelegramID int64     `bson:"telegram_id" json:"telegram_id"`
	Username   string    `bson:"username" json:"username"`
	FirstName  string    `bson:"first_name" json:"first_name"`
	LastName   string    `bson:"last_name" json:"last_name"`
	PhotoURL   string    `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	IsAdmin    bool      `bson:"isAdmin" json:"isAdmin"`
	CPCBalance int64     `bson:"cpcBalance" json:"cpcBalance"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
