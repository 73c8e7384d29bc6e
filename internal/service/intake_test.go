package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveByToken(t *testing.T) {
	f := newFixture(t, true, nil)

	tests := []struct {
		name     string
		raw      string
		expected string
		wantErr  error
	}{
		{"match", scenarioToken, "evt1", nil},
		{"no expected event", scenarioToken, "", nil},
		{"trailing newline", scenarioToken + "\n", "evt1", nil},
		{"malformed", "JTM-EVENT:evt1:user7", "evt1", ErrInvalidCode},
		{"wrong tag", "XYZ:evt1:user7:1700000000", "evt1", ErrInvalidCode},
		{"bad id", "JTM-EVENT:evt 1:user7:1700000000", "evt1", ErrInvalidCode},
		{"expired", token.Encode("evt1", "user7", doorTime.Add(-31*24*time.Hour)), "evt1", ErrInvalidCode},
		{"from the future", token.Encode("evt1", "user7", doorTime.Add(time.Hour)), "evt1", ErrInvalidCode},
		{"unknown registrant", "JTM-EVENT:evt1:user8:1700000000", "evt1", ErrNotFound},
		{"no rsvp for event", "JTM-EVENT:evt2:user7:1700000000", "evt2", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand, err := f.intake.ResolveByToken(context.Background(), tt.raw, tt.expected)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, cand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "rsvp-1", cand.RSVP.ID)
			assert.Equal(t, "Annual Gala", cand.Event.Title)
			assert.Equal(t, "Asha Rao", cand.Registrant.Name)
		})
	}
}

func TestResolveByToken_WrongEventNamesBothIDs(t *testing.T) {
	f := newFixture(t, true, nil)

	_, err := f.intake.ResolveByToken(context.Background(), "JTM-EVENT:evt2:user7:1700000000", "evt1")
	require.ErrorIs(t, err, ErrWrongEvent)

	var se *ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "evt2", se.EventID)
	assert.Equal(t, "evt1", se.ExpectedEventID)
	assert.Equal(t, "user7", se.UserID)
	assert.Contains(t, err.Error(), "evt2")
	assert.Contains(t, err.Error(), "evt1")
}

func TestResolveByToken_InvalidCodeKeepsCause(t *testing.T) {
	f := newFixture(t, true, nil)

	_, err := f.intake.ResolveByToken(context.Background(), "hello", "evt1")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.ErrorIs(t, err, token.ErrMalformedToken)
}

func TestResolveByEmail(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()

	cand, err := f.intake.ResolveByEmail(ctx, "evt1", "  ASHA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "rsvp-1", cand.RSVP.ID)
	assert.Equal(t, "asha@example.com", cand.Registrant.Email)

	_, err = f.intake.ResolveByEmail(ctx, "evt1", "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	var se *ScanError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "nobody@example.com", se.Email)

	_, err = f.intake.ResolveByEmail(ctx, "evt2", "asha@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.intake.ResolveByEmail(ctx, "evt1", "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScan_ManualEntryUnknownEmail(t *testing.T) {
	f := newFixture(t, true, nil)

	res, err := f.desk.Scan(context.Background(), "evt1", model.CheckInRequest{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "ghost@example.com")
}

func TestScan_ManualEntryChecksIn(t *testing.T) {
	f := newFixture(t, true, nil)

	res, err := f.desk.Scan(context.Background(), "evt1", model.CheckInRequest{Email: "asha@example.com", FoodTokenGiven: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.AlreadyCheckedIn)
	assert.Equal(t, 3, res.CouponsOwed)
}

func TestIssueToken(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()

	tok, err := f.desk.IssueToken(ctx, "evt1", "user7")
	require.NoError(t, err)
	assert.Equal(t, token.Encode("evt1", "user7", doorTime), tok)

	cand, err := f.intake.ResolveByToken(ctx, tok, "evt1")
	require.NoError(t, err)
	assert.Equal(t, "rsvp-1", cand.RSVP.ID)

	_, err = f.desk.IssueToken(ctx, "evt2", "user7")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.desk.IssueToken(ctx, "evt:1", "user7")
	assert.ErrorIs(t, err, ErrInvalidCode)
}
