package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/event-checkin/internal/config"
	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
)

// Seeder is the write side the seed loader needs.
type Seeder interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	CreateRegistrant(ctx context.Context, reg *model.Registrant) error
	CreateRSVP(ctx context.Context, rsvp *model.RSVP) error
}

// SeedFile is the fixture format accepted by `seed` and `serve --seed`.
type SeedFile struct {
	Events      []model.Event    `json:"events"`
	Registrants []seedRegistrant `json:"registrants" validate:"dive"`
	RSVPs       []seedRSVP       `json:"rsvps" validate:"dive"`
}

type seedRegistrant struct {
	ID    string `json:"id" validate:"checkinid"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type seedRSVP struct {
	ID               string          `json:"id" validate:"omitempty,checkinid"`
	EventID          string          `json:"event_id" validate:"checkinid"`
	UserID           string          `json:"user_id" validate:"checkinid"`
	Responses        model.Responses `json:"responses"`
	PaymentReference string          `json:"payment_reference"`
	PaymentConfirmed bool            `json:"payment_confirmed"`
	GuestCount       int             `json:"guest_count" validate:"gte=0"`
	Meals            struct {
		Veg    int `json:"veg" validate:"gte=0"`
		NonVeg int `json:"non_veg" validate:"gte=0"`
		Kids   int `json:"kids" validate:"gte=0"`
	} `json:"meals"`
	NoFood bool   `json:"no_food"`
	Notes  string `json:"notes"`
}

func newSeedValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("checkinid", func(fl validator.FieldLevel) bool {
		return token.ValidID(fl.Field().String())
	})
	return v
}

// ReadSeedFile parses and validates a fixture file.
func ReadSeedFile(path string) (*SeedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f SeedFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for _, e := range f.Events {
		if !token.ValidID(e.ID) {
			return nil, fmt.Errorf("seed event %q: invalid id", e.ID)
		}
	}
	if err := newSeedValidator().Struct(f); err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}
	return &f, nil
}

// Apply writes the fixture through s in dependency order.
func (f *SeedFile) Apply(ctx context.Context, s Seeder) error {
	for i := range f.Events {
		if err := s.CreateEvent(ctx, &f.Events[i]); err != nil {
			return fmt.Errorf("seed event %s: %w", f.Events[i].ID, err)
		}
	}
	for _, r := range f.Registrants {
		reg := model.Registrant{ID: r.ID, Name: r.Name, Email: r.Email}
		if err := s.CreateRegistrant(ctx, &reg); err != nil {
			return fmt.Errorf("seed registrant %s: %w", r.ID, err)
		}
	}
	for _, r := range f.RSVPs {
		rsvp := model.RSVP{
			ID:               r.ID,
			EventID:          r.EventID,
			UserID:           r.UserID,
			Responses:        r.Responses,
			PaymentReference: r.PaymentReference,
			PaymentConfirmed: r.PaymentConfirmed,
			GuestCount:       r.GuestCount,
			Meals:            model.Meals{Veg: r.Meals.Veg, NonVeg: r.Meals.NonVeg, Kids: r.Meals.Kids},
			NoFood:           r.NoFood,
			Notes:            r.Notes,
		}
		if err := s.CreateRSVP(ctx, &rsvp); err != nil {
			return fmt.Errorf("seed rsvp %s/%s: %w", r.EventID, r.UserID, err)
		}
	}
	return nil
}

// NewSeedCommand creates the seed command, which loads a fixture into Postgres.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load events, registrants and RSVPs from a JSON fixture into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ReadSeedFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg)
			st, closeStore, err := openStore(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := f.Apply(cmd.Context(), st.seeder); err != nil {
				return err
			}
			return report(cmd, rootOpts, map[string]int{
				"events":      len(f.Events),
				"registrants": len(f.Registrants),
				"rsvps":       len(f.RSVPs),
			})
		},
	}
}

func report(cmd *cobra.Command, rootOpts *RootOptions, counts map[string]int) error {
	if rootOpts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(counts)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "seeded %d events, %d registrants, %d rsvps\n",
		counts["events"], counts["registrants"], counts["rsvps"])
	return err
}
