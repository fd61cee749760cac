package model

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyResolved   = errors.New("request already resolved")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	// ErrStorageUnavailable marks infrastructure faults; callers may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InsufficientStockError reports that an adjustment would drive quantity negative.
type InsufficientStockError struct {
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.ItemName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// AlreadyResolvedError reports a resolution attempt on a terminal request.
type AlreadyResolvedError struct {
	RequestID int64
	Status    RequestStatus
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request %d already resolved as %s", e.RequestID, e.Status)
}

func (e *AlreadyResolvedError) Is(target error) bool { return target == ErrAlreadyResolved }

// NotFoundError reports a reference to a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFound builds a NotFoundError for a numeric id.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
