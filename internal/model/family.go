package model

import "time"

type Family struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	AuthorizedAdults string    `json:"authorized_adults"`
	CreatedAt        time.Time `json:"created_at"`
}

type Kid struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type Adult struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
