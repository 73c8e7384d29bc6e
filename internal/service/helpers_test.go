package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-checkin/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkin/internal/model"
	"github.com/Shivanand-hulikatti/event-checkin/internal/repository"
	"github.com/Shivanand-hulikatti/event-checkin/internal/token"
	"github.com/stretchr/testify/require"
)

const scenarioToken = "JTM-EVENT:evt1:user7:1700000000"

var (
	issuedAt = time.Unix(1700000000, 0).UTC()
	doorTime = issuedAt.Add(2 * time.Hour)
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	msgs []any
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, v)
	return p.err
}

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fixture struct {
	store      *repository.Memory
	pub        *recordingPublisher
	metrics    *metrics.Metrics
	intake     *Intake
	reconciler *Reconciler
	desk       *Desk
	admin      *Admin
	reports    *Reports
	rsvp       *model.RSVP
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture seeds evt1/evt2, registrant user7 and user7's RSVP for evt1
// with two guests. store may wrap the memory store to inject behaviour.
func newFixture(t *testing.T, paid bool, wrap func(*repository.Memory) AttendanceStore) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := repository.NewMemory()

	require.NoError(t, mem.CreateEvent(ctx, &model.Event{
		ID: "evt1", Title: "Annual Gala", Location: "Town Hall",
		Date: time.Date(2023, 11, 14, 18, 0, 0, 0, time.UTC),
		Fields: []model.FieldSpec{
			{ID: "tshirt", Kind: model.KindChoice, Choices: []string{"S", "M", "L"}},
		},
	}))
	require.NoError(t, mem.CreateEvent(ctx, &model.Event{ID: "evt2", Title: "Picnic"}))
	require.NoError(t, mem.CreateRegistrant(ctx, &model.Registrant{ID: "user7", Name: "Asha Rao", Email: "asha@example.com"}))

	rsvp := &model.RSVP{
		ID: "rsvp-1", EventID: "evt1", UserID: "user7",
		PaymentReference: "UPI-778", PaymentConfirmed: paid,
		GuestCount: 2, Meals: model.Meals{Veg: 2, Kids: 1},
		Responses: model.Responses{"tshirt": model.Choice("M")},
	}
	require.NoError(t, mem.CreateRSVP(ctx, rsvp))

	var store AttendanceStore = mem
	if wrap != nil {
		store = wrap(mem)
	}

	codec := token.Codec{MaxAge: 30 * 24 * time.Hour, Skew: 5 * time.Minute, Now: func() time.Time { return doorTime }}
	pub := &recordingPublisher{}
	m := metrics.New()
	logger := quietLogger()

	intake := NewIntake(mem, mem, store, codec)
	rec := NewReconciler(store, pub, logger)
	rec.now = func() time.Time { return doorTime }

	return &fixture{
		store:      mem,
		pub:        pub,
		metrics:    m,
		intake:     intake,
		reconciler: rec,
		desk:       NewDesk(intake, rec, m, logger),
		admin:      NewAdmin(intake, rec, store, pub, m, logger),
		reports:    NewReports(mem, mem, store),
		rsvp:       rsvp,
	}
}

func (f *fixture) stored(t *testing.T) *model.RSVP {
	t.Helper()
	rsvp, err := f.store.GetRSVP(context.Background(), f.rsvp.ID)
	require.NoError(t, err)
	return rsvp
}

// barrierStore holds every MarkCheckedIn call until n callers have arrived,
// so all of them read the RSVP as not checked in before any write lands.
type barrierStore struct {
	*repository.Memory
	arrived sync.WaitGroup
}

func newBarrierStore(mem *repository.Memory, n int) *barrierStore {
	b := &barrierStore{Memory: mem}
	b.arrived.Add(n)
	return b
}

func (b *barrierStore) MarkCheckedIn(ctx context.Context, id string, patch model.CheckInPatch, requirePayment bool) (*model.RSVP, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.Memory.MarkCheckedIn(ctx, id, patch, requirePayment)
}

// hookStore runs before ahead of each MarkCheckedIn.
type hookStore struct {
	*repository.Memory
	before func()
}

func (h *hookStore) MarkCheckedIn(ctx context.Context, id string, patch model.CheckInPatch, requirePayment bool) (*model.RSVP, error) {
	if h.before != nil {
		h.before()
	}
	return h.Memory.MarkCheckedIn(ctx, id, patch, requirePayment)
}
