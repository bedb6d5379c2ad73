package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendTicket(ctx context.Context, to, subject, body string, png []byte) error {
	args := m.Called(ctx, to, subject, body, png)
	return args.Error(0)
}

func TestConsumerLogsConfirmedBooking(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{LogDir: dir, Log: zerolog.Nop()}

	body, err := json.Marshal(BookingConfirmedEvent{
		BookingID:   "b-1",
		UserID:      7,
		ScreeningID: 1,
		MovieTitle:  "Dune",
		SeatLabels:  []string{"A1", "A2"},
		TotalPrice:  180000,
		ConfirmedAt: "2026-05-01T12:00:00Z",
	})
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), BookingConfirmedQueue, body))

	raw, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "booking_id=b-1")
	assert.Contains(t, string(raw), "seats=[A1,A2]")
	assert.Contains(t, string(raw), "total=180000")
}

func TestConsumerSendsTicket(t *testing.T) {
	m := new(mockMailer)
	m.On("SendTicket", mock.Anything, "ann@example.com", "Your ticket for Dune",
		mock.MatchedBy(func(body string) bool { return len(body) > 0 }),
		mock.AnythingOfType("[]uint8")).Return(nil)
	c := &Consumer{Mailer: m, Log: zerolog.Nop()}

	body, err := json.Marshal(TicketEmailRequested{
		Email:   "ann@example.com",
		Details: model.ConfirmationDetails{BookingID: "b-1", MovieTitle: "Dune", Seats: []string{"A1"}},
	})
	require.NoError(t, err)
	require.NoError(t, c.Handle(context.Background(), TicketEmailQueue, body))
	m.AssertExpectations(t)
}

func TestConsumerRejectsBadMessages(t *testing.T) {
	c := &Consumer{Log: zerolog.Nop()}
	assert.Error(t, c.Handle(context.Background(), BookingConfirmedQueue, []byte("{")))
	assert.Error(t, c.Handle(context.Background(), "other", []byte("{}")))
	assert.Error(t, c.Handle(context.Background(), TicketEmailQueue, []byte(`{"email":"a@b.c"}`)))
}
