package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/events"
	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
)

// CheckInOptions carries what the staff member recorded at the door.
type CheckInOptions struct {
	FoodTokenGiven bool
	Notes          string
}

// Reconciler is the only writer of the checked-in transition.
//
// Per RSVP it is a two-state machine, NOT_CHECKED_IN → CHECKED_IN. A second
// check-in is reported as AlreadyCheckedIn and changes nothing.
type Reconciler struct {
	rsvps  AttendanceStore
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewReconciler constructs a Reconciler. pub and logger may be nil.
func NewReconciler(rsvps AttendanceStore, pub Publisher, logger *slog.Logger) *Reconciler {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{rsvps: rsvps, pub: pub, logger: logger, now: time.Now}
}

// CheckIn checks a candidate in. Unconfirmed payment is refused outright.
func (r *Reconciler) CheckIn(ctx context.Context, cand *Candidate, opts CheckInOptions) (*model.ScanResult, error) {
	if !cand.RSVP.PaymentConfirmed {
		return nil, &ScanError{Kind: ErrPaymentNotConfirmed, EventID: cand.RSVP.EventID, UserID: cand.RSVP.UserID}
	}
	return r.transition(ctx, cand, opts, true)
}

// ManualCheckIn is the admin override: same transition, no payment gate.
func (r *Reconciler) ManualCheckIn(ctx context.Context, cand *Candidate, opts CheckInOptions) (*model.ScanResult, error) {
	return r.transition(ctx, cand, opts, false)
}

func (r *Reconciler) transition(ctx context.Context, cand *Candidate, opts CheckInOptions, requirePayment bool) (*model.ScanResult, error) {
	if cand.RSVP.CheckedIn {
		return NewResult(cand, cand.RSVP, true), nil
	}

	patch := model.CheckInPatch{At: r.now().UTC(), FoodTokenGiven: opts.FoodTokenGiven, Notes: opts.Notes}
	updated, err := r.rsvps.MarkCheckedIn(ctx, cand.RSVP.ID, patch, requirePayment)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrConflict):
		return r.afterConflict(ctx, cand)
	case errors.Is(err, repository.ErrNotFound):
		return nil, &ScanError{Kind: ErrNotFound, EventID: cand.RSVP.EventID, UserID: cand.RSVP.UserID}
	default:
		return nil, fmt.Errorf("mark checked in: %w", err)
	}

	res := NewResult(cand, updated, false)
	r.logger.InfoContext(ctx, "rsvp checked in",
		slog.String("rsvp_id", updated.ID),
		slog.String("event_id", updated.EventID),
		slog.String("user_id", updated.UserID),
		slog.Int("coupons_owed", res.CouponsOwed),
		slog.Bool("food_token_given", updated.FoodTokenGiven),
		slog.Bool("manual", !requirePayment),
	)
	msg := events.CheckedIn{
		RSVPID:         updated.ID,
		EventID:        updated.EventID,
		UserID:         updated.UserID,
		CheckedInAt:    patch.At,
		FoodTokenGiven: updated.FoodTokenGiven,
		CouponsOwed:    res.CouponsOwed,
		Manual:         !requirePayment,
	}
	if err := r.pub.PublishJSON(ctx, events.RKCheckedIn, msg); err != nil {
		r.logger.WarnContext(ctx, "publish check-in event failed", slog.String("rsvp_id", updated.ID), slog.String("error", err.Error()))
	}
	return res, nil
}

// afterConflict re-reads the RSVP after a lost compare-and-set. Losing to
// another check-in is an idempotent AlreadyCheckedIn result carrying the
// winner's values.
func (r *Reconciler) afterConflict(ctx context.Context, cand *Candidate) (*model.ScanResult, error) {
	current, err := r.rsvps.GetRSVP(ctx, cand.RSVP.ID)
	if err != nil {
		return nil, &ScanError{Kind: ErrStoreConflict, EventID: cand.RSVP.EventID, UserID: cand.RSVP.UserID, Cause: err}
	}
	switch {
	case current.CheckedIn:
		return NewResult(cand, current, true), nil
	case !current.PaymentConfirmed:
		return nil, &ScanError{Kind: ErrPaymentNotConfirmed, EventID: current.EventID, UserID: current.UserID}
	default:
		return nil, &ScanError{Kind: ErrStoreConflict, EventID: current.EventID, UserID: current.UserID}
	}
}

// NewResult builds a successful ScanResult from the candidate's display info
// and the RSVP's attendance state.
func NewResult(cand *Candidate, rsvp *model.RSVP, already bool) *model.ScanResult {
	res := &model.ScanResult{
		Success:          true,
		AlreadyCheckedIn: already,
		CouponsOwed:      rsvp.CouponsOwed(),
		FoodTokenGiven:   rsvp.FoodTokenGiven,
		CheckedInAt:      rsvp.CheckedInAt,
		RSVPID:           rsvp.ID,
	}
	fillDisplay(res, cand)
	return res
}

// FailureResult builds the ScanResult returned alongside an error. cand may be nil.
func FailureResult(cand *Candidate, err error) *model.ScanResult {
	res := &model.ScanResult{Error: err.Error()}
	if cand != nil && cand.RSVP != nil {
		res.RSVPID = cand.RSVP.ID
		res.CouponsOwed = cand.RSVP.CouponsOwed()
	}
	fillDisplay(res, cand)
	return res
}

func fillDisplay(res *model.ScanResult, cand *Candidate) {
	if cand == nil {
		return
	}
	if cand.Registrant != nil {
		res.Registrant = model.RegistrantInfo{Name: displayName(cand.Registrant), Email: cand.Registrant.Email}
	}
	if cand.Event != nil {
		res.Event = model.EventInfo{Title: cand.Event.Title, Date: cand.Event.Date, Location: cand.Event.Location}
	}
}
