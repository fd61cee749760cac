package model

import "time"

// Shelter is an evacuation shelter that owns one warehouse.
type Shelter struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	District    string    `json:"district"`
	Subdistrict string    `json:"subdistrict,omitempty"`
	Type        string    `json:"shelter_type"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Shelter statuses.
const (
	ShelterStatusActive = "active"
	ShelterStatusClosed = "closed"
)
