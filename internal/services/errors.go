// Package services defines the business logic of the interview core: session
// lifecycle, streamed AI replies, assessment scoring and score merging.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Every specific error wraps exactly one kind (ErrNotFound, ErrAccessDenied,
// ErrConflict, ErrUpstream, ErrValidation). Handlers translate kinds into
// HTTP status codes with errors.Is; they never match on messages.
package services

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
	ErrValidation   = errors.New("validation failed")
)

// kindError is a specific error that reports its own message and unwraps to
// its kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error { return &kindError{msg: msg, kind: kind} }

// Session and application errors.
var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = newError(ErrNotFound, "session not found")

	// ErrApplicationNotFound indicates that the application does not exist.
	ErrApplicationNotFound = newError(ErrNotFound, "application not found")

	// ErrAssessmentNotFound is returned when no score has been recorded yet.
	ErrAssessmentNotFound = newError(ErrNotFound, "assessment not found")

	// ErrJobNotFound is returned when the application's job posting is gone.
	ErrJobNotFound = newError(ErrNotFound, "job not found")

	// ErrSessionBusy is returned while another reply is streaming for the
	// same session. Callers may retry after a short delay.
	ErrSessionBusy = newError(ErrConflict, "another reply is in progress for this session")
)

// Validation errors.
var (
	// ErrEmptyContent is returned when a candidate message is blank.
	ErrEmptyContent = newError(ErrValidation, "content is empty")

	// ErrContentTooLong is returned when a candidate message exceeds the
	// configured rune limit.
	ErrContentTooLong = newError(ErrValidation, "content too long")

	// ErrScoreOutOfRange is returned for scores outside [0,100].
	ErrScoreOutOfRange = newError(ErrValidation, "score must be between 0 and 100")

	// ErrInvalidRecommendation is returned for verdicts outside the known set.
	ErrInvalidRecommendation = newError(ErrValidation, "invalid recommendation")
)

// upstreamError marks err as an ErrUpstream failure of op while keeping the
// original cause reachable through errors.Is / errors.As.
func upstreamError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
