package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rsvpColumns = `id, event_id, user_id, responses, payment_reference, payment_confirmed,
	guest_count, meals_veg, meals_non_veg, meals_kids, no_food,
	checked_in, checked_in_at, food_token_given, notes, created_at, updated_at`

// RSVPRepository is the attendance store backed by Postgres.
type RSVPRepository struct {
	db *pgxpool.Pool
}

// NewRSVPRepository constructs an RSVPRepository.
func NewRSVPRepository(db *pgxpool.Pool) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// CreateRSVP inserts a new, not-yet-checked-in RSVP.
func (r *RSVPRepository) CreateRSVP(ctx context.Context, rsvp *model.RSVP) error {
	if rsvp.ID == "" {
		rsvp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rsvp.CreatedAt, rsvp.UpdatedAt = now, now
	rsvp.CheckedIn, rsvp.CheckedInAt, rsvp.FoodTokenGiven = false, nil, false

	if rsvp.Responses == nil {
		rsvp.Responses = model.Responses{}
	}
	responses, err := json.Marshal(rsvp.Responses)
	if err != nil {
		return fmt.Errorf("encode responses: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO rsvps (id, event_id, user_id, responses, payment_reference, payment_confirmed,
			guest_count, meals_veg, meals_non_veg, meals_kids, no_food, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		rsvp.ID, rsvp.EventID, rsvp.UserID, responses, rsvp.PaymentReference, rsvp.PaymentConfirmed,
		rsvp.GuestCount, rsvp.Meals.Veg, rsvp.Meals.NonVeg, rsvp.Meals.Kids, rsvp.NoFood, rsvp.Notes, now,
	)
	if err != nil {
		return fmt.Errorf("insert rsvp: %w", wrapUnique(err))
	}
	return nil
}

// GetRSVP returns an RSVP by id or ErrNotFound.
func (r *RSVPRepository) GetRSVP(ctx context.Context, id string) (*model.RSVP, error) {
	row := r.db.QueryRow(ctx, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1`, id)
	return scanOne(row)
}

// FindRSVP returns the RSVP of a registrant for an event or ErrNotFound.
func (r *RSVPRepository) FindRSVP(ctx context.Context, eventID, userID string) (*model.RSVP, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	return scanOne(row)
}

// ListRSVPs returns every RSVP of an event ordered by creation time.
func (r *RSVPRepository) ListRSVPs(ctx context.Context, eventID string) ([]model.RSVP, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	var out []model.RSVP
	for rows.Next() {
		rsvp, err := scanRSVP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rsvp)
	}
	return out, rows.Err()
}

// MarkCheckedIn performs the one-time not-checked-in → checked-in transition.
//
// The guard lives in the UPDATE's WHERE clause, so the row lock Postgres takes
// for the statement serialises concurrent callers: the first commits the
// transition, every later one matches zero rows and gets ErrConflict. No
// caller can overwrite another's food-token flag or notes.
//
// With requirePayment set the transition also requires payment_confirmed,
// so a payment rejected between read and write is not bypassed.
func (r *RSVPRepository) MarkCheckedIn(ctx context.Context, id string, patch model.CheckInPatch, requirePayment bool) (*model.RSVP, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE rsvps
		 SET checked_in = true, checked_in_at = $2, food_token_given = $3, notes = $4, updated_at = $2
		 WHERE id = $1 AND checked_in = false AND (payment_confirmed OR NOT $5)
		 RETURNING `+rsvpColumns,
		id, patch.At.UTC(), patch.FoodTokenGiven, patch.Notes, requirePayment,
	)
	rsvp, err := scanOne(row)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missOrConflict(ctx, id)
	}
	return rsvp, err
}

// ApprovePayment confirms the RSVP's payment.
func (r *RSVPRepository) ApprovePayment(ctx context.Context, id string) (*model.RSVP, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE rsvps SET payment_confirmed = true, updated_at = $2
		 WHERE id = $1
		 RETURNING `+rsvpColumns,
		id, time.Now().UTC(),
	)
	return scanOne(row)
}

// RejectPayment withdraws confirmation and clears the payment reference so the
// registrant must resubmit. Checked-in RSVPs are left alone (ErrConflict).
func (r *RSVPRepository) RejectPayment(ctx context.Context, id, reason string) (*model.RSVP, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE rsvps
		 SET payment_confirmed = false, payment_reference = '',
		     notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END,
		     updated_at = $3
		 WHERE id = $1 AND checked_in = false
		 RETURNING `+rsvpColumns,
		id, reason, time.Now().UTC(),
	)
	rsvp, err := scanOne(row)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missOrConflict(ctx, id)
	}
	return rsvp, err
}

// missOrConflict tells a missing row apart from a guarded update that matched nothing.
func (r *RSVPRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rsvps WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check rsvp existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// ─── Scanning ─────────────────────────────────────────────────────────────────

func scanOne(row pgx.Row) (*model.RSVP, error) {
	rsvp, err := scanRSVP(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rsvp, nil
}

func scanRSVP(row pgx.Row) (*model.RSVP, error) {
	var (
		rsvp      model.RSVP
		responses []byte
	)
	err := row.Scan(
		&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &responses, &rsvp.PaymentReference, &rsvp.PaymentConfirmed,
		&rsvp.GuestCount, &rsvp.Meals.Veg, &rsvp.Meals.NonVeg, &rsvp.Meals.Kids, &rsvp.NoFood,
		&rsvp.CheckedIn, &rsvp.CheckedInAt, &rsvp.FoodTokenGiven, &rsvp.Notes, &rsvp.CreatedAt, &rsvp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan rsvp: %w", err)
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &rsvp.Responses); err != nil {
			return nil, fmt.Errorf("decode rsvp %s responses: %w", rsvp.ID, err)
		}
	}
	return &rsvp, nil
}

// wrapUnique maps a unique_violation to ErrDuplicate.
func wrapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
