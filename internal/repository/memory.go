package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process store implementing the same contracts as the
// Postgres repositories. A single mutex guards all maps, which gives
// MarkCheckedIn the same compare-and-set behaviour as the conditional UPDATE.
// Returned values are copies.
type Memory struct {
	mu          sync.Mutex
	events      map[string]model.Event
	registrants map[string]model.Registrant
	rsvps       map[string]model.RSVP
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		events:      make(map[string]model.Event),
		registrants: make(map[string]model.Registrant),
		rsvps:       make(map[string]model.RSVP),
	}
}

// CreateEvent stores an event.
func (m *Memory) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := m.events[e.ID]; ok {
		return ErrDuplicate
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.events[e.ID] = *e
	return nil
}

// GetEvent returns an event or ErrNotFound.
func (m *Memory) GetEvent(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// CreateRegistrant stores a registrant; emails are unique after normalisation.
func (m *Memory) CreateRegistrant(_ context.Context, reg *model.Registrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.Email = NormalizeEmail(reg.Email)
	for _, existing := range m.registrants {
		if existing.ID == reg.ID || existing.Email == reg.Email {
			return ErrDuplicate
		}
	}
	m.registrants[reg.ID] = *reg
	return nil
}

// GetRegistrant returns a registrant or ErrNotFound.
func (m *Memory) GetRegistrant(_ context.Context, id string) (*model.Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &reg, nil
}

// FindRegistrantByEmail returns a registrant by email or ErrNotFound.
func (m *Memory) FindRegistrantByEmail(_ context.Context, email string) (*model.Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = NormalizeEmail(email)
	for _, reg := range m.registrants {
		if reg.Email == email {
			return &reg, nil
		}
	}
	return nil, ErrNotFound
}

// ListRegistrants returns the registrants with the given ids.
func (m *Memory) ListRegistrants(_ context.Context, ids []string) ([]model.Registrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Registrant
	for _, id := range ids {
		if reg, ok := m.registrants[id]; ok {
			out = append(out, reg)
		}
	}
	return out, nil
}

// CreateRSVP stores a new RSVP; (event, user) pairs are unique.
func (m *Memory) CreateRSVP(_ context.Context, rsvp *model.RSVP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rsvp.ID == "" {
		rsvp.ID = uuid.NewString()
	}
	for _, existing := range m.rsvps {
		if existing.ID == rsvp.ID || (existing.EventID == rsvp.EventID && existing.UserID == rsvp.UserID) {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	rsvp.CreatedAt, rsvp.UpdatedAt = now, now
	rsvp.CheckedIn, rsvp.CheckedInAt, rsvp.FoodTokenGiven = false, nil, false
	m.rsvps[rsvp.ID] = cloneRSVP(*rsvp)
	return nil
}

// GetRSVP returns an RSVP or ErrNotFound.
func (m *Memory) GetRSVP(_ context.Context, id string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rsvp, ok := m.rsvps[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRSVP(rsvp)
	return &out, nil
}

// FindRSVP returns the RSVP for (eventID, userID) or ErrNotFound.
func (m *Memory) FindRSVP(_ context.Context, eventID, userID string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rsvp := range m.rsvps {
		if rsvp.EventID == eventID && rsvp.UserID == userID {
			out := cloneRSVP(rsvp)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// ListRSVPs returns the RSVPs of an event ordered by creation time.
func (m *Memory) ListRSVPs(_ context.Context, eventID string) ([]model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RSVP
	for _, rsvp := range m.rsvps {
		if rsvp.EventID == eventID {
			out = append(out, cloneRSVP(rsvp))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MarkCheckedIn applies the check-in patch only if the RSVP is not checked in
// (and, with requirePayment, has confirmed payment). Otherwise ErrConflict.
func (m *Memory) MarkCheckedIn(_ context.Context, id string, patch model.CheckInPatch, requirePayment bool) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rsvp, ok := m.rsvps[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rsvp.CheckedIn || (requirePayment && !rsvp.PaymentConfirmed) {
		return nil, ErrConflict
	}
	at := patch.At.UTC()
	rsvp.CheckedIn = true
	rsvp.CheckedInAt = &at
	rsvp.FoodTokenGiven = patch.FoodTokenGiven
	rsvp.Notes = patch.Notes
	rsvp.UpdatedAt = at
	m.rsvps[id] = rsvp
	out := cloneRSVP(rsvp)
	return &out, nil
}

// ApprovePayment confirms payment.
func (m *Memory) ApprovePayment(_ context.Context, id string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rsvp, ok := m.rsvps[id]
	if !ok {
		return nil, ErrNotFound
	}
	rsvp.PaymentConfirmed = true
	rsvp.UpdatedAt = time.Now().UTC()
	m.rsvps[id] = rsvp
	out := cloneRSVP(rsvp)
	return &out, nil
}

// RejectPayment clears payment state on an RSVP that is not checked in.
func (m *Memory) RejectPayment(_ context.Context, id, reason string) (*model.RSVP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rsvp, ok := m.rsvps[id]
	if !ok {
		return nil, ErrNotFound
	}
	if rsvp.CheckedIn {
		return nil, ErrConflict
	}
	rsvp.PaymentConfirmed = false
	rsvp.PaymentReference = ""
	rsvp.Notes = strings.TrimPrefix(rsvp.Notes+"\n"+reason, "\n")
	rsvp.UpdatedAt = time.Now().UTC()
	m.rsvps[id] = rsvp
	out := cloneRSVP(rsvp)
	return &out, nil
}

func cloneRSVP(r model.RSVP) model.RSVP {
	r.Responses = maps.Clone(r.Responses)
	if r.CheckedInAt != nil {
		at := *r.CheckedInAt
		r.CheckedInAt = &at
	}
	return r
}
