package models

import (
	"time"
)

type Channel string

const (
	HTTPChannel     Channel = "http"
	TelegramChannel Channel = "telegram"
)

// Exchange is the metadata of one answered message. The user's text is never kept.
type Exchange struct {
	ID           string    `json:"id"`
	Channel      Channel   `json:"channel"`
	UserID       int64     `json:"user_id"`
	LanguageCode string    `json:"language_code"`
	Tag          string    `json:"tag"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
}
