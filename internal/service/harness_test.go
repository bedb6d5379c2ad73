package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pending"
)

const (
	alice uint64 = 1
	bob   uint64 = 2
)

type harness struct {
	now       time.Time
	seats     *memSeats
	catalog   *memCatalog
	bookings  *memBookings
	events    *recordingEvents
	pend      *flakyPending
	ledger    *SeatLedger
	store     *BookingStore
	rec       *Reconciler
	presenter *Presenter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		now:      time.Date(2026, 4, 30, 10, 0, 0, 0, time.UTC),
		seats:    newMemSeats(),
		catalog:  newMemCatalog(),
		bookings: newMemBookings(),
		events:   &recordingEvents{},
		pend:     &flakyPending{MemoryStore: pending.NewMemoryStore(time.Hour)},
	}
	clock := func() time.Time { return h.now }
	h.ledger = NewSeatLedger(h.seats, h.catalog, WithHoldDuration(5*time.Minute), WithLedgerClock(clock))
	h.store = NewBookingStore(h.bookings, h.ledger, h.catalog, h.catalog, time.UTC, zerolog.Nop())
	h.store.now = clock
	h.rec = NewReconciler(h.store, h.ledger, h.catalog, h.pend, h.events, stubPayments{}, zerolog.Nop())
	users := memUsers{alice: {ID: alice, Email: "alice@example.com"}, bob: {ID: bob, Email: "bob@example.com"}}
	h.presenter = NewPresenter(h.store, h.catalog, users, h.events, zerolog.Nop())
	return h
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func (h *harness) reserve(t *testing.T, user uint64, labels ...string) {
	t.Helper()
	for _, l := range labels {
		_, err := h.ledger.Reserve(context.Background(), 1, l, user)
		require.NoError(t, err)
	}
}

// checkout reserves A1 and A2 for alice and starts a SAVE20 booking.
func (h *harness) checkout(t *testing.T) *model.Booking {
	t.Helper()
	h.reserve(t, alice, "A1", "A2")
	c, err := h.rec.Begin(context.Background(), CreateInput{
		UserID:      alice,
		ScreeningID: 1,
		Seats:       []string{"A1", "A2"},
		PromoCode:   "SAVE20",
	}, "10.0.0.1")
	require.NoError(t, err)
	return c.Booking
}
