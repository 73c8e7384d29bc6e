// Package model defines the core domain types for event check-in.
package model

import "time"

// Event is the display and schema information for a single event.
type Event struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Date      time.Time   `json:"date"`
	Location  string      `json:"location"`
	Fields    []FieldSpec `json:"fields"`
	CreatedAt time.Time   `json:"created_at"`
}

// Registrant is a member of the registrant directory.
type Registrant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Meals holds per-category meal counts declared on an RSVP.
type Meals struct {
	Veg    int `json:"veg"`
	NonVeg int `json:"non_veg"`
	Kids   int `json:"kids"`
}

// Total returns the number of meals across all categories.
func (m Meals) Total() int {
	return m.Veg + m.NonVeg + m.Kids
}

// PaymentState summarises the payment side of an RSVP.
type PaymentState string

const (
	PaymentConfirmed PaymentState = "confirmed"
	PaymentPending   PaymentState = "pending"
	PaymentUnpaid    PaymentState = "unpaid"
)

// RSVP is one registrant's intent to attend one event, plus its attendance state.
//
// CheckedIn only ever moves from false to true, and CheckedInAt is set in the
// same write. FoodTokenGiven is only true while CheckedIn is true.
type RSVP struct {
	ID               string    `json:"id"`
	EventID          string    `json:"event_id"`
	UserID           string    `json:"user_id"`
	Responses        Responses `json:"responses"`
	PaymentReference string    `json:"payment_reference"`
	PaymentConfirmed bool      `json:"payment_confirmed"`
	GuestCount       int       `json:"guest_count"`
	Meals            Meals     `json:"meals"`
	NoFood           bool      `json:"no_food"`

	CheckedIn      bool       `json:"checked_in"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	FoodTokenGiven bool       `json:"food_token_given"`
	Notes          string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentState reports whether the RSVP is paid, awaiting review, or unpaid.
// An RSVP with a payment reference but no confirmation is pending.
func (r *RSVP) PaymentState() PaymentState {
	switch {
	case r.PaymentConfirmed:
		return PaymentConfirmed
	case r.PaymentReference != "":
		return PaymentPending
	default:
		return PaymentUnpaid
	}
}

// CouponsOwed is the number of food coupons to hand over: the registrant plus guests.
func (r *RSVP) CouponsOwed() int {
	return 1 + r.GuestCount
}

// Headcount is the number of people the RSVP brings through the door.
func (r *RSVP) Headcount() int {
	return 1 + r.GuestCount
}

// CheckInPatch is the single write applied when an RSVP is checked in.
type CheckInPatch struct {
	At             time.Time
	FoodTokenGiven bool
	Notes          string
}

// RegistrantInfo is the registrant display block of a ScanResult.
type RegistrantInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventInfo is the event display block of a ScanResult.
type EventInfo struct {
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location"`
}

// ScanResult describes the outcome of one check-in attempt. It is never persisted.
type ScanResult struct {
	Success          bool           `json:"success"`
	AlreadyCheckedIn bool           `json:"already_checked_in"`
	CouponsOwed      int            `json:"coupons_owed"`
	FoodTokenGiven   bool           `json:"food_token_given"`
	CheckedInAt      *time.Time     `json:"checked_in_at,omitempty"`
	RSVPID           string         `json:"rsvp_id,omitempty"`
	Registrant       RegistrantInfo `json:"registrant"`
	Event            EventInfo      `json:"event"`
	Error            string         `json:"error,omitempty"`
}

// CheckInRequest is the inbound payload from a capture surface.
// Exactly one of Token and Email is set.
type CheckInRequest struct {
	Token          string `json:"token" validate:"required_without=Email,excluded_with=Email,max=512"`
	Email          string `json:"email" validate:"required_without=Token,omitempty,email,max=320"`
	FoodTokenGiven bool   `json:"food_token_given"`
	Notes          string `json:"notes" validate:"max=2000"`
}

// TokenResponse carries a freshly issued check-in token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
