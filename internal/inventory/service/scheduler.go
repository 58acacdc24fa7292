package service

import (
	"context"
	"time"

	"github.com/schoolmed/schoolmed-backend/pkg/logger"
	"github.com/schoolmed/schoolmed-backend/pkg/messaging"
)

// ExpiryScheduler periodically scans for lots approaching expiration and
// publishes an expiring-lot event for each one found.
type ExpiryScheduler struct {
	lots       LotStore
	publisher  EventPublisher
	interval   time.Duration
	withinDays int
	logger     *logger.Logger
	cancel     context.CancelFunc
	now        func() time.Time
}

// NewExpiryScheduler creates a new expiry scheduler
func NewExpiryScheduler(lots LotStore, publisher EventPublisher, interval time.Duration, withinDays int, log *logger.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		lots:       lots,
		publisher:  publisher,
		interval:   interval,
		withinDays: withinDays,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the scheduler clock. Used in tests.
func (s *ExpiryScheduler) WithClock(now func() time.Time) *ExpiryScheduler {
	s.now = now
	return s
}

// Start starts the scheduler in a background goroutine.
// An initial scan runs immediately, then one per tick.
func (s *ExpiryScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Int("within_days", s.withinDays).Msg("expiry scheduler started")

		s.runScanCycle(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry scheduler stopped")
				return
			case <-ticker.C:
				s.runScanCycle(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *ExpiryScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ExpiryScheduler) runScanCycle(ctx context.Context) {
	start := s.now()
	s.logger.Info().Msg("starting expiry scan cycle")

	lots, err := s.lots.ListExpiring(ctx, start, s.withinDays)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query expiring lots")
		return
	}

	for _, lot := range lots {
		daysLeft := int(lot.ExpirationDate.Sub(start).Hours() / 24)
		s.publisher.PublishLotExpiring(ctx, messaging.LotExpiringEvent{
			LotID:           lot.ID,
			LotNumber:       lot.LotNumber,
			ItemID:          lot.ItemID,
			Quantity:        lot.Quantity,
			ExpirationDate:  lot.ExpirationDate,
			DaysUntilExpiry: daysLeft,
		})
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("lot_count", len(lots)).
		Msg("expiry scan cycle completed")
}
