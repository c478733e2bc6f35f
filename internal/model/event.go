package model

import "time"

type Event struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	CreatedAt time.Time `json:"created_at"`
}
