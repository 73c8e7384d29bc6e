package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMore(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateRegistrant(ctx, &model.Registrant{ID: "user8", Name: "bilal khan", Email: "bilal@example.com"}))
	require.NoError(t, f.store.CreateRegistrant(ctx, &model.Registrant{ID: "user9", Name: "Chen Li", Email: "chen@example.com"}))
	require.NoError(t, f.store.CreateRSVP(ctx, &model.RSVP{
		ID: "rsvp-2", EventID: "evt1", UserID: "user8",
		PaymentReference: "UPI-900", GuestCount: 1, Meals: model.Meals{NonVeg: 2},
		Responses: model.Responses{"tshirt": model.Choice("XXL")},
	}))
	require.NoError(t, f.store.CreateRSVP(ctx, &model.RSVP{
		ID: "rsvp-3", EventID: "evt1", UserID: "user9",
		PaymentConfirmed: true, NoFood: true, Meals: model.Meals{Veg: 5},
	}))
}

func TestReports_Summary(t *testing.T) {
	f := newFixture(t, true, nil)
	seedMore(t, f)
	ctx := context.Background()

	_, err := f.desk.Scan(ctx, "evt1", model.CheckInRequest{Token: scenarioToken, FoodTokenGiven: true})
	require.NoError(t, err)

	s, err := f.reports.Summary(ctx, "evt1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{
		EventID:           "evt1",
		Title:             "Annual Gala",
		TotalRSVPs:        3,
		PaymentConfirmed:  2,
		PaymentPending:    1,
		Unpaid:            0,
		CheckedIn:         1,
		NotCheckedIn:      2,
		FoodTokensGiven:   1,
		Guests:            3,
		ExpectedHeadcount: 6,
		ArrivedHeadcount:  3,
		Meals:             model.Meals{Veg: 2, NonVeg: 2, Kids: 1},
		NoFood:            1,
		InvalidResponses:  1,
	}, s)
}

func TestReports_UnknownEvent(t *testing.T) {
	f := newFixture(t, true, nil)
	_, err := f.reports.Summary(context.Background(), "evt404")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReports_Attendees(t *testing.T) {
	f := newFixture(t, true, nil)
	seedMore(t, f)

	list, err := f.reports.Attendees(context.Background(), "evt1")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "Asha Rao", list[0].Name)
	assert.Equal(t, "bilal khan", list[1].Name)
	assert.Equal(t, "Chen Li", list[2].Name)

	assert.Equal(t, model.PaymentPending, list[1].PaymentState)
	assert.Equal(t, 2, list[1].CouponsOwed)
	require.Len(t, list[1].ResponseErrors, 1)
	assert.Equal(t, "tshirt", list[1].ResponseErrors[0].FieldID)
	assert.Empty(t, list[0].ResponseErrors)
}

func TestReports_WriteCSV(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx := context.Background()
	_, err := f.desk.Scan(ctx, "evt1", model.CheckInRequest{Token: scenarioToken, Notes: "vip, table 4"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.reports.WriteCSV(ctx, "evt1", &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])

	row := records[1]
	assert.Equal(t, "rsvp-1", row[0])
	assert.Equal(t, "Asha Rao", row[1])
	assert.Equal(t, "confirmed", row[3])
	assert.Equal(t, "3", row[5])
	assert.Equal(t, "true", row[10])
	assert.Equal(t, doorTime.Format("2006-01-02T15:04:05Z07:00"), row[11])
	assert.Equal(t, "vip, table 4", row[13])
}
