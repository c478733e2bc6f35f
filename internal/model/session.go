package model

import "time"

// Session is a kiosk operator login session.
type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
