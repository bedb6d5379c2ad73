package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pending"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

type txKey struct{}

// memSeats is an in-memory SeatStore.  WithTx serializes callers the way
// row locks would.
type memSeats struct {
	mu   sync.Mutex
	rows map[string]model.Seat
	fail error
	// sneak is stored just before the next InsertSeat, as if a concurrent
	// transaction had committed the row after our locking read.
	sneak *model.Seat
	raced []model.Seat
}

func newMemSeats() *memSeats { return &memSeats{rows: map[string]model.Seat{}} }

func seatKey(sid uint64, label string) string {
	return fmt.Sprintf("%d/%s", sid, label)
}

func (m *memSeats) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memSeats) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]model.Seat, len(m.rows))
	for k, v := range m.rows {
		snapshot[k] = v
	}
	m.raced = nil
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.rows = snapshot
		for _, s := range m.raced {
			m.rows[seatKey(s.ScreeningID, s.Label)] = s
		}
		return err
	}
	return nil
}

func (m *memSeats) FindSeats(ctx context.Context, sid uint64, labels []string) (map[string]model.Seat, error) {
	defer m.lock(ctx)()
	if m.fail != nil {
		return nil, m.fail
	}
	out := map[string]model.Seat{}
	for _, l := range labels {
		if s, ok := m.rows[seatKey(sid, l)]; ok {
			out[l] = s
		}
	}
	return out, nil
}

func (m *memSeats) SaveSeat(ctx context.Context, s model.Seat) error {
	defer m.lock(ctx)()
	m.rows[seatKey(s.ScreeningID, s.Label)] = s
	return nil
}

func (m *memSeats) InsertSeat(ctx context.Context, s model.Seat) error {
	defer m.lock(ctx)()
	if m.sneak != nil {
		m.rows[seatKey(m.sneak.ScreeningID, m.sneak.Label)] = *m.sneak
		m.raced = append(m.raced, *m.sneak)
		m.sneak = nil
	}
	if _, ok := m.rows[seatKey(s.ScreeningID, s.Label)]; ok {
		return ErrConflict
	}
	m.rows[seatKey(s.ScreeningID, s.Label)] = s
	return nil
}

func (m *memSeats) ListByScreening(ctx context.Context, sid uint64) ([]model.Seat, error) {
	defer m.lock(ctx)()
	var out []model.Seat
	for _, s := range m.rows {
		if s.ScreeningID == sid {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSeats) ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	defer m.lock(ctx)()
	var n int64
	for k, s := range m.rows {
		if s.Status == model.SeatReserved && s.ReservedAt != nil && !s.ReservedAt.After(cutoff) {
			m.rows[k] = model.Seat{ScreeningID: s.ScreeningID, Label: s.Label, Status: model.SeatAvailable}
			n++
		}
	}
	return n, nil
}

func (m *memSeats) get(sid uint64, label string) model.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[seatKey(sid, label)]
	if !ok {
		return model.Seat{ScreeningID: sid, Label: label, Status: model.SeatAvailable}
	}
	return s
}

type memCatalog struct {
	mu         sync.Mutex
	screenings map[uint64]*model.Screening
	promos     map[string]*model.Promotion
	movies     map[uint64]*model.Movie
	failCreate error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		screenings: map[uint64]*model.Screening{
			1: {ID: 1, MovieID: 1, MovieTitle: "Dune", Theater: "Central", Room: "Hall 3",
				StartsAt: time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC), BasePrice: 100000, SeatRows: 5, SeatCols: 8},
		},
		promos: map[string]*model.Promotion{
			"SAVE20": {ID: 1, Code: "SAVE20", DiscountAmount: 20000, Active: true},
			"OLD":    {ID: 2, Code: "OLD", DiscountAmount: 5000, Active: false},
		},
		movies: map[uint64]*model.Movie{1: {ID: 1, Title: "Dune", DurationMin: 155}},
	}
}

func (c *memCatalog) GetScreening(_ context.Context, id uint64) (*model.Screening, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.screenings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (c *memCatalog) GetPromotionByCode(_ context.Context, code string) (*model.Promotion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.promos[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *memCatalog) GetMovie(_ context.Context, id uint64) (*model.Movie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.movies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (c *memCatalog) CreateMovie(_ context.Context, m *model.Movie) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCreate != nil {
		return c.failCreate
	}
	m.ID = uint64(len(c.movies) + 1)
	c.movies[m.ID] = m
	return nil
}

func (c *memCatalog) CreatePromotion(_ context.Context, p *model.Promotion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCreate != nil {
		return c.failCreate
	}
	if _, ok := c.promos[p.Code]; ok {
		return ErrConflict
	}
	p.ID = uint64(len(c.promos) + 1)
	c.promos[p.Code] = p
	return nil
}

func (c *memCatalog) CreateScreening(_ context.Context, s *model.Screening) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCreate != nil {
		return c.failCreate
	}
	s.ID = uint64(len(c.screenings) + 1)
	c.screenings[s.ID] = s
	return nil
}

type memBookings struct {
	mu   sync.Mutex
	rows map[string]model.Booking
	// failTransition makes every status write fail while set.
	failTransition error
}

func newMemBookings() *memBookings { return &memBookings{rows: map[string]model.Booking{}} }

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	m.rows[b.ID] = cp
	return nil
}

func (m *memBookings) Get(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *memBookings) TransitionFromPending(_ context.Context, id string, to model.BookingStatus, p model.Pricing, total int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTransition != nil {
		return false, m.failTransition
	}
	b, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.Status != model.BookingPending {
		return false, nil
	}
	b.Status, b.BasePrice, b.Discount, b.TotalPrice = to, p.BasePrice, p.Discount, total
	b.UpdatedAt = time.Now().UTC()
	m.rows[id] = b
	return true, nil
}

func (m *memBookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memBookings) status(id string) model.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Status
}

type recordingEvents struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	emails    []queue.TicketEmailRequested
	fail      error
}

func (r *recordingEvents) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.confirmed = append(r.confirmed, ev)
	return nil
}

func (r *recordingEvents) PublishTicketEmail(_ context.Context, ev queue.TicketEmailRequested) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.emails = append(r.emails, ev)
	return nil
}

type stubPayments struct{}

func (stubPayments) PaymentURL(b model.Booking, _ string) (string, error) {
	return "https://pay.example.com/?ref=" + b.ID, nil
}

type flakyPending struct {
	*pending.MemoryStore
	failConsume error
}

func (f *flakyPending) Consume(ctx context.Context, id string) (pending.Checkout, error) {
	if f.failConsume != nil {
		return pending.Checkout{}, f.failConsume
	}
	return f.MemoryStore.Consume(ctx, id)
}

type memUsers map[uint64]model.User

func (m memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

type memApprovals struct {
	mu   sync.Mutex
	rows map[uint64]model.ApprovalRequest
	next uint64
}

func newMemApprovals() *memApprovals { return &memApprovals{rows: map[uint64]model.ApprovalRequest{}} }

func (m *memApprovals) Create(_ context.Context, a *model.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	a.ID = m.next
	m.rows[a.ID] = *a
	return nil
}

func (m *memApprovals) Get(_ context.Context, id uint64) (*model.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memApprovals) List(_ context.Context, status model.ApprovalStatus, by uint64) ([]model.ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ApprovalRequest
	for _, a := range m.rows {
		if (status == "" || a.Status == status) && (by == 0 || a.SubmittedBy == by) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memApprovals) Decide(_ context.Context, id uint64, from, to model.ApprovalStatus, by uint64, note string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.Status != from {
		return false, nil
	}
	a.Status, a.Note = to, note
	if to == model.ApprovalPending {
		a.DecidedBy, a.DecidedAt = nil, nil
	} else {
		a.DecidedBy, a.DecidedAt = &by, &at
	}
	m.rows[id] = a
	return true, nil
}

var errBroker = errors.New("broker down")

func (m *memBookings) failWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTransition = err
}
