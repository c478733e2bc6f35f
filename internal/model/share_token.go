package model

import "time"

// ShareToken is a one-time link exposing a family's checkout code for a
// bounded time. It covers a set of check-in rows that share one code and
// becomes inert once all of them are closed or the expiry passes.
type ShareToken struct {
	ID         int64     `json:"id"`
	Token      string    `json:"token"`
	FamilyID   int64     `json:"family_id"`
	EventID    int64     `json:"event_id"`
	CheckinIDs []int64   `json:"checkin_ids"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Used       bool      `json:"used"`
}
