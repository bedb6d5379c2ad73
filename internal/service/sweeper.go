package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically releases expired seat reservations so seats
// abandoned mid-payment return to sale.
type Sweeper struct {
	Ledger   *SeatLedger
	Interval time.Duration
	Log      zerolog.Logger
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.Log.Info().Dur("interval", interval).Msg("seat sweeper started")

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("seat sweeper stopped")
			return nil
		case <-t.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.Ledger.ReleaseExpired(ctx); err != nil && ctx.Err() == nil {
		s.Log.Error().Err(err).Msg("seat sweep failed")
	}
}
