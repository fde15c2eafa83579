// Package errors defines the error taxonomy shared by services and the
// HTTP layer. Sentinels classify; typed errors carry the detail the client
// needs to render actionable text.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAuthRequired = errors.New("authentication required")

	ErrBanned          = errors.New("user is banned")
	ErrNotOwner        = errors.New("not the owner")
	ErrNotParticipant  = errors.New("not a participant")
	ErrSelfInteraction = errors.New("cannot interact with own offer")

	ErrNotFound             = errors.New("not found")
	ErrInactive             = errors.New("not active")
	ErrExpired              = errors.New("expired")
	ErrAlreadyParticipating = errors.New("already participating")
	ErrNoChannel            = errors.New("no active channel")

	ErrNotVerified = errors.New("action not verified")

	ErrDailyLimit = errors.New("daily post limit reached")

	ErrInvalidInput = errors.New("invalid input")
)

// RatingTooLowError reports which threshold was missed so the client can
// tell the user exactly what is required.
type RatingTooLowError struct {
	Required int
	Actual   int
}

func (e *RatingTooLowError) Error() string {
	return fmt.Sprintf("rating too low: %d, need at least %d", e.Actual, e.Required)
}

// CooldownError reports the minutes remaining until the next post is allowed.
type CooldownError struct {
	MinutesLeft int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("re-post cooldown: wait %d minutes", e.MinutesLeft)
}
