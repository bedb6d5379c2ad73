package handler

import (
	"context"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/cinema-ticketing/internal/gateway"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

type MockSeats struct{ mock.Mock }

func (m *MockSeats) Reserve(ctx context.Context, screeningID uint64, label string, userID uint64) (model.Seat, error) {
	args := m.Called(ctx, screeningID, label, userID)
	return args.Get(0).(model.Seat), args.Error(1)
}

func (m *MockSeats) Status(ctx context.Context, screeningID uint64, label string) (model.SeatStatus, error) {
	args := m.Called(ctx, screeningID, label)
	return args.Get(0).(model.SeatStatus), args.Error(1)
}

func (m *MockSeats) ReleaseExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSeats) ListForScreening(ctx context.Context, screeningID uint64) ([]model.Seat, error) {
	args := m.Called(ctx, screeningID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Seat), args.Error(1)
}

func (m *MockSeats) AdminRelease(ctx context.Context, screeningID uint64, labels []string) (int, error) {
	args := m.Called(ctx, screeningID, labels)
	return args.Int(0), args.Error(1)
}

func (m *MockSeats) HoldDuration() time.Duration { return 5 * time.Minute }

type MockBookings struct{ mock.Mock }

func (m *MockBookings) GetForUser(ctx context.Context, id string, userID uint64) (*model.Booking, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookings) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookings) Cancel(ctx context.Context, id string, userID uint64) (*model.Booking, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

type MockCheckout struct{ mock.Mock }

func (m *MockCheckout) Begin(ctx context.Context, in service.CreateInput, clientIP string) (*service.Checkout, error) {
	args := m.Called(ctx, in, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Checkout), args.Error(1)
}

func (m *MockCheckout) Reconcile(ctx context.Context, bookingID, code string) (service.Outcome, error) {
	args := m.Called(ctx, bookingID, code)
	return args.Get(0).(service.Outcome), args.Error(1)
}

func (m *MockCheckout) Apply(ctx context.Context, bookingID string, to model.BookingStatus, override *model.Pricing) (service.Outcome, error) {
	args := m.Called(ctx, bookingID, to, override)
	return args.Get(0).(service.Outcome), args.Error(1)
}

type MockConfirmation struct{ mock.Mock }

func (m *MockConfirmation) Details(ctx context.Context, bookingID string, userID uint64) (*model.ConfirmationDetails, error) {
	args := m.Called(ctx, bookingID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConfirmationDetails), args.Error(1)
}

func (m *MockConfirmation) ResendTicket(ctx context.Context, bookingID string, userID uint64, email string) error {
	return m.Called(ctx, bookingID, userID, email).Error(0)
}

type MockApprovals struct{ mock.Mock }

func (m *MockApprovals) Submit(ctx context.Context, userID uint64, payload model.RequestPayload, note string) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, userID, payload, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovals) ListMine(ctx context.Context, userID uint64) ([]model.ApprovalRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovals) List(ctx context.Context, status model.ApprovalStatus) ([]model.ApprovalRequest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovals) Approve(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, id, adminID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

func (m *MockApprovals) Reject(ctx context.Context, id, adminID uint64, note string) (*model.ApprovalRequest, error) {
	args := m.Called(ctx, id, adminID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ApprovalRequest), args.Error(1)
}

type MockReports struct{ mock.Mock }

func (m *MockReports) RevenueByMovie(ctx context.Context, from, to time.Time) ([]repository.RevenueRow, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.RevenueRow), args.Error(1)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) ListMovies(ctx context.Context) ([]model.Movie, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Movie), args.Error(1)
}

func (m *MockCatalog) ListScreenings(ctx context.Context, f repository.ScreeningFilter) ([]model.Screening, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.Screening), args.Error(1)
}

func (m *MockCatalog) GetScreening(ctx context.Context, id uint64) (*model.Screening, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Screening), args.Error(1)
}

type MockReturns struct{ mock.Mock }

func (m *MockReturns) ParseReturn(q url.Values) (gateway.Return, error) {
	args := m.Called(q)
	return args.Get(0).(gateway.Return), args.Error(1)
}
