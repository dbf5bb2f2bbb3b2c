package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/metrics"
)

// Expirer is the part of BookingService the sweeper drives.
type Expirer interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically expires pending bookings whose payment window
// has closed so their tickets return to sale without waiting for the
// owner to come back.
type Sweeper struct {
	bookings Expirer
	interval time.Duration
	batch    int
	log      logrus.FieldLogger
}

func NewSweeper(b Expirer, interval time.Duration, batch int, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{bookings: b, interval: interval, batch: batch, log: log}
}

// Run sweeps once per interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.log.WithField("interval", s.interval.String()).Info("booking sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("booking sweeper stopped")
			return
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass, draining full batches.
func (s *Sweeper) Sweep(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := s.bookings.ExpireStale(ctx, s.batch)
		if err != nil {
			s.log.WithError(err).Warn("booking sweep failed")
			break
		}
		total += n
		metrics.ExpiredBySweep.Add(float64(n))
		if n < s.batch {
			break
		}
	}
	if total > 0 {
		s.log.WithField("expired", total).Info("expired overdue bookings")
	}
	return total
}
