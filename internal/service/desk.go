package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
)

// Capture modes.
const (
	ModeToken = "token"
	ModeEmail = "email"
)

// Desk handles one inbound check-in request end to end: intake, then the
// reconciler. It is what the HTTP layer calls.
type Desk struct {
	intake     *Intake
	reconciler *Reconciler
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewDesk constructs a Desk. m and logger may be nil.
func NewDesk(intake *Intake, reconciler *Reconciler, m *metrics.Metrics, logger *slog.Logger) *Desk {
	if logger == nil {
		logger = slog.Default()
	}
	return &Desk{intake: intake, reconciler: reconciler, metrics: m, logger: logger}
}

// Scan checks in the registrant identified by req.Token or req.Email for
// eventID. On failure the returned ScanResult still carries whatever display
// info was resolved, and err says why.
func (d *Desk) Scan(ctx context.Context, eventID string, req model.CheckInRequest) (*model.ScanResult, error) {
	start := time.Now()
	mode := ModeToken
	if strings.TrimSpace(req.Token) == "" {
		mode = ModeEmail
	}

	var (
		cand *Candidate
		err  error
	)
	if mode == ModeToken {
		cand, err = d.intake.ResolveByToken(ctx, req.Token, eventID)
	} else {
		cand, err = d.intake.ResolveByEmail(ctx, eventID, req.Email)
	}

	var res *model.ScanResult
	if err == nil {
		res, err = d.reconciler.CheckIn(ctx, cand, CheckInOptions{FoodTokenGiven: req.FoodTokenGiven, Notes: strings.TrimSpace(req.Notes)})
	}

	outcome := Outcome(err)
	switch {
	case err != nil:
		res = FailureResult(cand, err)
		d.logger.InfoContext(ctx, "check-in refused",
			slog.String("event_id", eventID),
			slog.String("mode", mode),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
	case res.AlreadyCheckedIn:
		outcome = "already_checked_in"
	default:
		outcome = "checked_in"
	}
	d.metrics.ObserveScan(mode, outcome, time.Since(start))
	return res, err
}

// IssueToken mints a check-in token for an RSVP holder.
func (d *Desk) IssueToken(ctx context.Context, eventID, userID string) (string, error) {
	return d.intake.IssueToken(ctx, eventID, userID)
}
