// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkin/internal/service"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBody = 1 << 20 // 1 MB

// CheckinHandler holds all HTTP handlers for the check-in API.
type CheckinHandler struct {
	desk     *service.Desk
	admin    *service.Admin
	reports  *service.Reports
	logger   *slog.Logger
	validate *validator.Validate
}

// NewCheckinHandler constructs a CheckinHandler.
func NewCheckinHandler(desk *service.Desk, admin *service.Admin, reports *service.Reports, logger *slog.Logger) *CheckinHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckinHandler{
		desk:     desk,
		admin:    admin,
		reports:  reports,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// statusFor maps service outcomes to HTTP status codes. Anything unknown is
// an infrastructure failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrWrongEvent),
		errors.Is(err, service.ErrStoreConflict),
		errors.Is(err, service.ErrAlreadyCheckedIn):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides infrastructure error details from clients.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func (h *CheckinHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, slog.String("error", err.Error()))
	}
	writeError(w, status, publicMessage(err, status))
}

func eventParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !token.ValidID(id) {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return "", false
	}
	return id, true
}

// ─── Check-in ─────────────────────────────────────────────────────────────────

// CheckIn handles POST /events/{id}/checkin
// Resolves a scanned token or typed email and checks the registrant in.
// The body is always a ScanResult.
func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	if !token.ValidID(eventID) {
		writeJSON(w, http.StatusBadRequest, model.ScanResult{Error: "invalid event id"})
		return
	}

	var req model.CheckInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ScanResult{Error: "invalid request body: " + err.Error()})
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ScanResult{Error: "provide exactly one of token or a valid email"})
		return
	}

	res, err := h.desk.Scan(r.Context(), eventID, req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "check-in failed", slog.String("event_id", eventID), slog.String("error", err.Error()))
			res.Error = publicMessage(err, status)
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// IssueToken handles GET /events/{id}/rsvps/{userID}/token
// Returns a freshly issued check-in token for the registrant's RSVP.
func (h *CheckinHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventParam(w, r)
	if !ok {
		return
	}
	tok, err := h.desk.IssueToken(r.Context(), eventID, chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, r, err, "issue token failed")
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: tok})
}

// ─── Reports ──────────────────────────────────────────────────────────────────

// Attendance handles GET /events/{id}/attendance
func (h *CheckinHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventParam(w, r)
	if !ok {
		return
	}
	summary, err := h.reports.Summary(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "attendance summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Attendees handles GET /events/{id}/attendees
func (h *CheckinHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventParam(w, r)
	if !ok {
		return
	}
	list, err := h.reports.Attendees(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "list attendees failed")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if list == nil {
		list = []service.Attendee{}
	}
	writeJSON(w, http.StatusOK, list)
}

// AttendeesCSV handles GET /events/{id}/attendees.csv
func (h *CheckinHandler) AttendeesCSV(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventParam(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reports.WriteCSV(r.Context(), eventID, &buf); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.fail(w, r, err, "export attendees failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendees-%s.csv"`, eventID))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

// AdminAction handles POST /rsvps/{id}/actions
// The body is a tagged action: {"type": "approve_payment" | "reject_payment" |
// "check_in" | "manual_check_in", ...}.
func (h *CheckinHandler) AdminAction(w http.ResponseWriter, r *http.Request) {
	rsvpID := chi.URLParam(r, "id")
	if !token.ValidID(rsvpID) {
		writeError(w, http.StatusBadRequest, "invalid rsvp id")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	act, err := service.DecodeAction(rsvpID, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.admin.Apply(r.Context(), act)
	if err != nil {
		h.fail(w, r, err, "admin action failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
