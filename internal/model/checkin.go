package model

import "time"

// Checkin is one ledger row: a kid checked into an event by an adult.
// Rows are never deleted; checkout sets CheckoutTime exactly once.
type Checkin struct {
	ID           int64      `json:"id"`
	KidID        int64      `json:"kid_id"`
	AdultID      int64      `json:"adult_id"`
	EventID      int64      `json:"event_id"`
	CheckinTime  time.Time  `json:"checkin_time"`
	CheckoutTime *time.Time `json:"checkout_time,omitempty"`
	CheckoutCode *string    `json:"checkout_code,omitempty"`
}

// Open reports whether the kid is still checked in on this row.
func (c *Checkin) Open() bool {
	return c.CheckoutTime == nil
}
