package model

import (
	"errors"
	"time"
)

// User is an account acting on the ledger. Staff accounts are bound to the
// shelter whose warehouse they operate.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	ShelterID    *int64     `json:"shelter_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ErrNoHomeShelter is returned for staff accounts not bound to a shelter.
var ErrNoHomeShelter = errors.New("account is not bound to a shelter")

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleStaff: 1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}

// HomeWarehouse resolves the warehouse a user operates on: admins act on
// the central warehouse, staff on their shelter's.
func HomeWarehouse(role string, shelterID *int64) (WarehouseRef, error) {
	if role == RoleAdmin {
		return Central(), nil
	}
	if shelterID == nil || *shelterID <= 0 {
		return WarehouseRef{}, ErrNoHomeShelter
	}
	return ShelterWarehouse(*shelterID), nil
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword checks a new password against the length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
