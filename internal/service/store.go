// Package service implements check-in business logic: resolving scans to
// RSVPs, the one-time check-in transition, admin actions and reports.
package service

import (
	"context"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
)

// EventCatalog looks up events.
type EventCatalog interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// RegistrantDirectory looks up registrants.
type RegistrantDirectory interface {
	GetRegistrant(ctx context.Context, id string) (*model.Registrant, error)
	FindRegistrantByEmail(ctx context.Context, email string) (*model.Registrant, error)
	ListRegistrants(ctx context.Context, ids []string) ([]model.Registrant, error)
}

// AttendanceStore is the authoritative RSVP record. MarkCheckedIn must be a
// compare-and-set: it returns repository.ErrConflict unless the RSVP was not
// yet checked in (and, with requirePayment, has confirmed payment).
type AttendanceStore interface {
	GetRSVP(ctx context.Context, id string) (*model.RSVP, error)
	FindRSVP(ctx context.Context, eventID, userID string) (*model.RSVP, error)
	ListRSVPs(ctx context.Context, eventID string) ([]model.RSVP, error)
	MarkCheckedIn(ctx context.Context, id string, patch model.CheckInPatch, requirePayment bool) (*model.RSVP, error)
	ApprovePayment(ctx context.Context, id string) (*model.RSVP, error)
	RejectPayment(ctx context.Context, id, reason string) (*model.RSVP, error)
}

// Publisher emits domain events. Failures never fail the caller.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}
