// Package repository implements all database queries for event check-in.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional write finds the row in a state
// that no longer allows it (already checked in, payment withdrawn).
var ErrConflict = errors.New("conflicting update")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate record")

// NormalizeEmail is the canonical form used for registrant lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts an event, generating an id when none is set.
func (r *EventRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode event fields: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO events (id, title, date, location, fields, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Title, e.Date, e.Location, fields, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", wrapUnique(err))
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var (
		e      model.Event
		fields []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, title, date, location, fields, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Date, &e.Location, &fields, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &e.Fields); err != nil {
			return nil, fmt.Errorf("decode event %s fields: %w", id, err)
		}
	}
	return &e, nil
}

// RegistrantRepository is the registrant directory backed by Postgres.
type RegistrantRepository struct {
	db *pgxpool.Pool
}

// NewRegistrantRepository constructs a RegistrantRepository.
func NewRegistrantRepository(db *pgxpool.Pool) *RegistrantRepository {
	return &RegistrantRepository{db: db}
}

// CreateRegistrant inserts a registrant with a normalised email.
func (r *RegistrantRepository) CreateRegistrant(ctx context.Context, reg *model.Registrant) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.Email = NormalizeEmail(reg.Email)
	_, err := r.db.Exec(ctx,
		`INSERT INTO registrants (id, name, email, created_at) VALUES ($1, $2, $3, $4)`,
		reg.ID, reg.Name, reg.Email, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert registrant: %w", wrapUnique(err))
	}
	return nil
}

// GetRegistrant returns a registrant by id or ErrNotFound.
func (r *RegistrantRepository) GetRegistrant(ctx context.Context, id string) (*model.Registrant, error) {
	return r.getOne(ctx, `SELECT id, name, email FROM registrants WHERE id = $1`, id)
}

// FindRegistrantByEmail looks a registrant up by email, ignoring case and
// surrounding whitespace.
func (r *RegistrantRepository) FindRegistrantByEmail(ctx context.Context, email string) (*model.Registrant, error) {
	return r.getOne(ctx, `SELECT id, name, email FROM registrants WHERE email = $1`, NormalizeEmail(email))
}

func (r *RegistrantRepository) getOne(ctx context.Context, query string, arg string) (*model.Registrant, error) {
	var reg model.Registrant
	err := r.db.QueryRow(ctx, query, arg).Scan(&reg.ID, &reg.Name, &reg.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registrant: %w", err)
	}
	return &reg, nil
}

// ListRegistrants returns registrants by id, in no particular order.
// Unknown ids are skipped.
func (r *RegistrantRepository) ListRegistrants(ctx context.Context, ids []string) ([]model.Registrant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, email FROM registrants WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	defer rows.Close()

	var out []model.Registrant
	for rows.Next() {
		var reg model.Registrant
		if err := rows.Scan(&reg.ID, &reg.Name, &reg.Email); err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}
