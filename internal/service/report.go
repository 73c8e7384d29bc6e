package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
)

// Summary aggregates attendance for one event.
type Summary struct {
	EventID           string      `json:"event_id"`
	Title             string      `json:"title"`
	TotalRSVPs        int         `json:"total_rsvps"`
	PaymentConfirmed  int         `json:"payment_confirmed"`
	PaymentPending    int         `json:"payment_pending"`
	Unpaid            int         `json:"unpaid"`
	CheckedIn         int         `json:"checked_in"`
	NotCheckedIn      int         `json:"not_checked_in"`
	FoodTokensGiven   int         `json:"food_tokens_given"`
	Guests            int         `json:"guests"`
	ExpectedHeadcount int         `json:"expected_headcount"`
	ArrivedHeadcount  int         `json:"arrived_headcount"`
	Meals             model.Meals `json:"meals"`
	NoFood            int         `json:"no_food"`
	InvalidResponses  int         `json:"invalid_responses"`
}

// Attendee is one row of the attendee list.
type Attendee struct {
	RSVPID         string             `json:"rsvp_id"`
	UserID         string             `json:"user_id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	PaymentState   model.PaymentState `json:"payment_state"`
	GuestCount     int                `json:"guest_count"`
	CouponsOwed    int                `json:"coupons_owed"`
	Meals          model.Meals        `json:"meals"`
	NoFood         bool               `json:"no_food"`
	CheckedIn      bool               `json:"checked_in"`
	CheckedInAt    *time.Time         `json:"checked_in_at,omitempty"`
	FoodTokenGiven bool               `json:"food_token_given"`
	Notes          string             `json:"notes,omitempty"`
	ResponseErrors []model.FieldError `json:"response_errors,omitempty"`
}

// Reports is the read-only reporting surface over the attendance store.
type Reports struct {
	events      EventCatalog
	registrants RegistrantDirectory
	rsvps       AttendanceStore
}

// NewReports constructs Reports.
func NewReports(events EventCatalog, registrants RegistrantDirectory, rsvps AttendanceStore) *Reports {
	return &Reports{events: events, registrants: registrants, rsvps: rsvps}
}

// Summary counts payment, attendance and meal figures for an event.
func (r *Reports) Summary(ctx context.Context, eventID string) (*Summary, error) {
	event, err := r.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rsvps, err := r.rsvps.ListRSVPs(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}

	s := &Summary{EventID: event.ID, Title: event.Title, TotalRSVPs: len(rsvps)}
	for i := range rsvps {
		rsvp := &rsvps[i]
		switch rsvp.PaymentState() {
		case model.PaymentConfirmed:
			s.PaymentConfirmed++
		case model.PaymentPending:
			s.PaymentPending++
		default:
			s.Unpaid++
		}
		s.Guests += rsvp.GuestCount
		s.ExpectedHeadcount += rsvp.Headcount()
		if rsvp.CheckedIn {
			s.CheckedIn++
			s.ArrivedHeadcount += rsvp.Headcount()
		}
		if rsvp.FoodTokenGiven {
			s.FoodTokensGiven++
		}
		if rsvp.NoFood {
			s.NoFood++
		} else {
			s.Meals.Veg += rsvp.Meals.Veg
			s.Meals.NonVeg += rsvp.Meals.NonVeg
			s.Meals.Kids += rsvp.Meals.Kids
		}
		if len(event.ValidateResponses(rsvp.Responses)) > 0 {
			s.InvalidResponses++
		}
	}
	s.NotCheckedIn = s.TotalRSVPs - s.CheckedIn
	return s, nil
}

// Attendees lists an event's RSVPs with registrant details, ordered by name.
func (r *Reports) Attendees(ctx context.Context, eventID string) ([]Attendee, error) {
	event, err := r.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rsvps, err := r.rsvps.ListRSVPs(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}

	ids := make([]string, 0, len(rsvps))
	for _, rsvp := range rsvps {
		ids = append(ids, rsvp.UserID)
	}
	regs, err := r.registrants.ListRegistrants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	byID := make(map[string]model.Registrant, len(regs))
	for _, reg := range regs {
		byID[reg.ID] = reg
	}

	out := make([]Attendee, 0, len(rsvps))
	for i := range rsvps {
		rsvp := &rsvps[i]
		reg := byID[rsvp.UserID]
		out = append(out, Attendee{
			RSVPID:         rsvp.ID,
			UserID:         rsvp.UserID,
			Name:           displayName(&reg),
			Email:          reg.Email,
			PaymentState:   rsvp.PaymentState(),
			GuestCount:     rsvp.GuestCount,
			CouponsOwed:    rsvp.CouponsOwed(),
			Meals:          rsvp.Meals,
			NoFood:         rsvp.NoFood,
			CheckedIn:      rsvp.CheckedIn,
			CheckedInAt:    rsvp.CheckedInAt,
			FoodTokenGiven: rsvp.FoodTokenGiven,
			Notes:          rsvp.Notes,
			ResponseErrors: event.ValidateResponses(rsvp.Responses),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

var csvHeader = []string{
	"rsvp_id", "name", "email", "payment_state", "guests", "coupons_owed",
	"meals_veg", "meals_non_veg", "meals_kids", "no_food",
	"checked_in", "checked_in_at", "food_token_given", "notes",
}

// WriteCSV exports the attendee list.
func (r *Reports) WriteCSV(ctx context.Context, eventID string, w io.Writer) error {
	attendees, err := r.Attendees(ctx, eventID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range attendees {
		checkedInAt := ""
		if a.CheckedInAt != nil {
			checkedInAt = a.CheckedInAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			a.RSVPID, a.Name, a.Email, string(a.PaymentState),
			strconv.Itoa(a.GuestCount), strconv.Itoa(a.CouponsOwed),
			strconv.Itoa(a.Meals.Veg), strconv.Itoa(a.Meals.NonVeg), strconv.Itoa(a.Meals.Kids),
			strconv.FormatBool(a.NoFood),
			strconv.FormatBool(a.CheckedIn), checkedInAt, strconv.FormatBool(a.FoodTokenGiven), a.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
