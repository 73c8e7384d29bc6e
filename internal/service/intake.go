package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
)

// Candidate is an RSVP resolved from a scan or lookup, not yet checked in.
type Candidate struct {
	RSVP       *model.RSVP
	Event      *model.Event
	Registrant *model.Registrant
}

// Intake resolves raw scans and manual entries to candidates. It never writes.
type Intake struct {
	events      EventCatalog
	registrants RegistrantDirectory
	rsvps       AttendanceStore
	codec       token.Codec
}

// NewIntake constructs an Intake.
func NewIntake(events EventCatalog, registrants RegistrantDirectory, rsvps AttendanceStore, codec token.Codec) *Intake {
	return &Intake{events: events, registrants: registrants, rsvps: rsvps, codec: codec}
}

// ResolveByToken decodes a scanned token and finds its RSVP. When
// expectedEventID is non-empty the token must belong to that event.
func (in *Intake) ResolveByToken(ctx context.Context, raw, expectedEventID string) (*Candidate, error) {
	ref, err := in.codec.Parse(raw)
	if err != nil {
		return nil, &ScanError{Kind: ErrInvalidCode, Cause: err}
	}
	if expectedEventID != "" && ref.EventID != expectedEventID {
		return nil, &ScanError{Kind: ErrWrongEvent, EventID: ref.EventID, UserID: ref.UserID, ExpectedEventID: expectedEventID}
	}

	rsvp, err := in.rsvps.FindRSVP(ctx, ref.EventID, ref.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ScanError{Kind: ErrNotFound, EventID: ref.EventID, UserID: ref.UserID}
		}
		return nil, fmt.Errorf("find rsvp: %w", err)
	}
	return in.complete(ctx, rsvp, nil)
}

// ResolveByEmail is the manual fallback for codes the camera cannot read.
func (in *Intake) ResolveByEmail(ctx context.Context, eventID, email string) (*Candidate, error) {
	email = repository.NormalizeEmail(email)
	notFound := &ScanError{Kind: ErrNotFound, Email: email}
	if email == "" {
		return nil, notFound
	}

	reg, err := in.registrants.FindRegistrantByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find registrant: %w", err)
	}

	rsvp, err := in.rsvps.FindRSVP(ctx, eventID, reg.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find rsvp: %w", err)
	}
	return in.complete(ctx, rsvp, reg)
}

// ResolveByID loads a candidate for an admin action on a known RSVP.
func (in *Intake) ResolveByID(ctx context.Context, rsvpID string) (*Candidate, error) {
	rsvp, err := in.rsvps.GetRSVP(ctx, rsvpID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ScanError{Kind: ErrNotFound, Cause: fmt.Errorf("rsvp %s", rsvpID)}
		}
		return nil, fmt.Errorf("get rsvp: %w", err)
	}
	return in.complete(ctx, rsvp, nil)
}

// IssueToken mints a check-in token for a registrant who has an RSVP for the event.
func (in *Intake) IssueToken(ctx context.Context, eventID, userID string) (string, error) {
	if !token.ValidID(eventID) || !token.ValidID(userID) {
		return "", &ScanError{Kind: ErrInvalidCode, EventID: eventID, UserID: userID}
	}
	if _, err := in.rsvps.FindRSVP(ctx, eventID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", &ScanError{Kind: ErrNotFound, EventID: eventID, UserID: userID}
		}
		return "", fmt.Errorf("find rsvp: %w", err)
	}
	return in.codec.Issue(eventID, userID)
}

// complete attaches event and registrant display info to an RSVP.
func (in *Intake) complete(ctx context.Context, rsvp *model.RSVP, reg *model.Registrant) (*Candidate, error) {
	event, err := in.events.GetEvent(ctx, rsvp.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", rsvp.EventID, err)
	}
	if reg == nil {
		reg, err = in.registrants.GetRegistrant(ctx, rsvp.UserID)
		if err != nil {
			return nil, fmt.Errorf("load registrant %s: %w", rsvp.UserID, err)
		}
	}
	return &Candidate{RSVP: rsvp, Event: event, Registrant: reg}, nil
}

func displayName(reg *model.Registrant) string {
	if reg == nil {
		return ""
	}
	if name := strings.TrimSpace(reg.Name); name != "" {
		return name
	}
	return reg.Email
}
