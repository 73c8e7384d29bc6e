package service

import (
	"errors"
	"fmt"
)

// Check-in outcomes the scanning operator must act on. None are retried.
var (
	ErrInvalidCode         = errors.New("invalid check-in code")
	ErrWrongEvent          = errors.New("code belongs to a different event")
	ErrNotFound            = errors.New("no matching rsvp")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrStoreConflict       = errors.New("concurrent update lost")
)

// Admin action outcomes.
var (
	ErrInvalidAction    = errors.New("invalid admin action")
	ErrAlreadyCheckedIn = errors.New("rsvp already checked in")
)

// ScanError is a check-in failure with enough context for manual remediation.
// Kind is one of the sentinel errors above; errors.Is matches against it.
type ScanError struct {
	Kind            error
	EventID         string
	UserID          string
	ExpectedEventID string
	Email           string
	Cause           error
}

func (e *ScanError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrWrongEvent):
		return fmt.Sprintf("%s: code is for event %s, scanning for event %s", e.Kind, e.EventID, e.ExpectedEventID)
	case e.Email != "":
		return fmt.Sprintf("%s: email %s", e.Kind, e.Email)
	case e.EventID != "" || e.UserID != "":
		return fmt.Sprintf("%s: event %s, user %s", e.Kind, e.EventID, e.UserID)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ScanError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Outcome is the metrics/log label for a check-in error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrWrongEvent):
		return "wrong_event"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPaymentNotConfirmed):
		return "payment_not_confirmed"
	case errors.Is(err, ErrStoreConflict):
		return "store_conflict"
	case errors.Is(err, ErrAlreadyCheckedIn):
		return "already_checked_in"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	default:
		return "error"
	}
}
