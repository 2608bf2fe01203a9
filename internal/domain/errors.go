package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation error")
	// ErrConflict marks a request that collides with current state (asset held elsewhere, stale edit, duplicates).
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition marks a status or stage change the transition table does not allow.
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
)

// ConflictError carries the asset ids that caused the conflict, if any. Code
// refines the HTTP error code (e.g. UNAVAILABLE); empty means CONFLICT.
type ConflictError struct {
	Code     string
	Reason   string
	AssetIDs []int64
}

func NewConflict(reason string, assetIDs ...int64) *ConflictError {
	ids := append([]int64(nil), assetIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &ConflictError{Reason: reason, AssetIDs: ids}
}

// NewUnavailable reports that a request would overbook an equipment type.
func NewUnavailable(reason string) *ConflictError {
	return &ConflictError{Code: "UNAVAILABLE", Reason: reason}
}

func (e *ConflictError) Error() string {
	if len(e.AssetIDs) == 0 {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict: %s (assets %v)", e.Reason, e.AssetIDs)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func InvalidTransitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
