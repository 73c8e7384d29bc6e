package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/event-checkin/internal/events"
	"github.com/Shivanand-hulikatti/event-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/go-playground/validator/v10"
)

// ActionType names an admin action variant on the wire.
type ActionType string

const (
	ActionApprovePayment ActionType = "approve_payment"
	ActionRejectPayment  ActionType = "reject_payment"
	ActionCheckIn        ActionType = "check_in"
	ActionManualCheckIn  ActionType = "manual_check_in"
)

// Action is one of ApprovePayment, RejectPayment, CheckIn or ManualCheckIn.
// The set is closed: the unexported method keeps other packages out.
type Action interface {
	Type() ActionType
	Target() string
	action()
}

// ApprovePayment confirms an RSVP's payment after review.
type ApprovePayment struct {
	RSVPID string `json:"-" validate:"required"`
}

// RejectPayment withdraws an RSVP's payment so the registrant must resubmit.
type RejectPayment struct {
	RSVPID string `json:"-" validate:"required"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// CheckIn checks an RSVP in by id, subject to the payment gate.
type CheckIn struct {
	RSVPID         string `json:"-" validate:"required"`
	FoodTokenGiven bool   `json:"food_token_given"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// ManualCheckIn checks an RSVP in regardless of payment. Notes are mandatory
// so every override leaves a trace.
type ManualCheckIn struct {
	RSVPID         string `json:"-" validate:"required"`
	FoodTokenGiven bool   `json:"food_token_given"`
	Notes          string `json:"notes" validate:"required,max=2000"`
}

func (ApprovePayment) Type() ActionType { return ActionApprovePayment }
func (RejectPayment) Type() ActionType  { return ActionRejectPayment }
func (CheckIn) Type() ActionType        { return ActionCheckIn }
func (ManualCheckIn) Type() ActionType  { return ActionManualCheckIn }

func (a ApprovePayment) Target() string { return a.RSVPID }
func (a RejectPayment) Target() string  { return a.RSVPID }
func (a CheckIn) Target() string        { return a.RSVPID }
func (a ManualCheckIn) Target() string  { return a.RSVPID }

func (ApprovePayment) action() {}
func (RejectPayment) action()  {}
func (CheckIn) action()        {}
func (ManualCheckIn) action()  {}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeAction parses {"type": ..., ...} into the matching variant for rsvpID
// and validates it. Unknown types and unknown fields are rejected.
func DecodeAction(rsvpID string, body []byte) (Action, error) {
	var head struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	var act Action
	switch head.Type {
	case ActionApprovePayment:
		a := ApprovePayment{}
		if err := decodeStrict(body, &a); err != nil {
			return nil, err
		}
		a.RSVPID = rsvpID
		act = a
	case ActionRejectPayment:
		a := RejectPayment{}
		if err := decodeStrict(body, &a); err != nil {
			return nil, err
		}
		a.RSVPID, a.Reason = rsvpID, strings.TrimSpace(a.Reason)
		act = a
	case ActionCheckIn:
		a := CheckIn{}
		if err := decodeStrict(body, &a); err != nil {
			return nil, err
		}
		a.RSVPID, a.Notes = rsvpID, strings.TrimSpace(a.Notes)
		act = a
	case ActionManualCheckIn:
		a := ManualCheckIn{}
		if err := decodeStrict(body, &a); err != nil {
			return nil, err
		}
		a.RSVPID, a.Notes = rsvpID, strings.TrimSpace(a.Notes)
		act = a
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, head.Type)
	}

	if err := ValidateAction(act); err != nil {
		return nil, err
	}
	return act, nil
}

// decodeStrict decodes body into dst, tolerating only the "type" discriminator
// as an extra key.
func decodeStrict(body []byte, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	delete(fields, "type")
	stripped, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	dec := json.NewDecoder(strings.NewReader(string(stripped)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return nil
}

// ValidateAction checks an action's fields.
func ValidateAction(act Action) error {
	if err := validate.Struct(act); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAction, act.Type(), err)
	}
	return nil
}

// ActionResult is the outcome of an admin action.
type ActionResult struct {
	Type ActionType        `json:"type"`
	RSVP *model.RSVP       `json:"rsvp"`
	Scan *model.ScanResult `json:"scan,omitempty"`
}

// Admin applies staff-initiated actions to RSVPs.
type Admin struct {
	intake     *Intake
	reconciler *Reconciler
	rsvps      AttendanceStore
	pub        Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewAdmin constructs an Admin. pub, m and logger may be nil.
func NewAdmin(intake *Intake, reconciler *Reconciler, rsvps AttendanceStore, pub Publisher, m *metrics.Metrics, logger *slog.Logger) *Admin {
	if pub == nil {
		pub = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{intake: intake, reconciler: reconciler, rsvps: rsvps, pub: pub, metrics: m, logger: logger}
}

// Apply validates and executes act.
func (a *Admin) Apply(ctx context.Context, act Action) (*ActionResult, error) {
	res, err := a.apply(ctx, act)
	a.metrics.ObserveAdminAction(string(act.Type()), Outcome(err))
	if err != nil {
		a.logger.InfoContext(ctx, "admin action refused",
			slog.String("type", string(act.Type())),
			slog.String("rsvp_id", act.Target()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	a.logger.InfoContext(ctx, "admin action applied",
		slog.String("type", string(act.Type())),
		slog.String("rsvp_id", act.Target()),
	)
	return res, nil
}

func (a *Admin) apply(ctx context.Context, act Action) (*ActionResult, error) {
	if err := ValidateAction(act); err != nil {
		return nil, err
	}
	cand, err := a.intake.ResolveByID(ctx, act.Target())
	if err != nil {
		return nil, err
	}

	switch v := act.(type) {
	case ApprovePayment:
		rsvp, err := a.rsvps.ApprovePayment(ctx, v.RSVPID)
		if err != nil {
			return nil, storeErr(err, cand)
		}
		a.publish(ctx, events.RKPaymentApproved, events.PaymentReviewed{
			RSVPID: rsvp.ID, EventID: rsvp.EventID, UserID: rsvp.UserID, Approved: true,
		})
		return &ActionResult{Type: v.Type(), RSVP: rsvp}, nil

	case RejectPayment:
		rsvp, err := a.rsvps.RejectPayment(ctx, v.RSVPID, v.Reason)
		if err != nil {
			return nil, storeErr(err, cand)
		}
		a.publish(ctx, events.RKPaymentRejected, events.PaymentReviewed{
			RSVPID: rsvp.ID, EventID: rsvp.EventID, UserID: rsvp.UserID, Reason: v.Reason,
		})
		return &ActionResult{Type: v.Type(), RSVP: rsvp}, nil

	case CheckIn:
		scan, err := a.reconciler.CheckIn(ctx, cand, CheckInOptions{FoodTokenGiven: v.FoodTokenGiven, Notes: v.Notes})
		if err != nil {
			return nil, err
		}
		return a.withRSVP(ctx, v.Type(), scan)

	case ManualCheckIn:
		scan, err := a.reconciler.ManualCheckIn(ctx, cand, CheckInOptions{FoodTokenGiven: v.FoodTokenGiven, Notes: v.Notes})
		if err != nil {
			return nil, err
		}
		return a.withRSVP(ctx, v.Type(), scan)
	}
	return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidAction, act.Type())
}

func (a *Admin) withRSVP(ctx context.Context, t ActionType, scan *model.ScanResult) (*ActionResult, error) {
	rsvp, err := a.rsvps.GetRSVP(ctx, scan.RSVPID)
	if err != nil {
		return nil, fmt.Errorf("reload rsvp: %w", err)
	}
	return &ActionResult{Type: t, RSVP: rsvp, Scan: scan}, nil
}

func (a *Admin) publish(ctx context.Context, key string, v any) {
	if err := a.pub.PublishJSON(ctx, key, v); err != nil {
		a.logger.WarnContext(ctx, "publish admin event failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func storeErr(err error, cand *Candidate) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &ScanError{Kind: ErrNotFound, EventID: cand.RSVP.EventID, UserID: cand.RSVP.UserID}
	case errors.Is(err, repository.ErrConflict):
		return &ScanError{Kind: ErrAlreadyCheckedIn, EventID: cand.RSVP.EventID, UserID: cand.RSVP.UserID}
	default:
		return fmt.Errorf("update rsvp: %w", err)
	}
}
