package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// OrderExpirer is satisfied by *service.OrderService.
type OrderExpirer interface {
	ExpireStalePending(ctx context.Context, maxAge time.Duration) (int, error)
}

type Scheduler struct {
	cron       *cron.Cron
	orders     OrderExpirer
	schedule   string
	pendingTTL time.Duration
	log        zerolog.Logger
}

func NewScheduler(orders OrderExpirer, schedule string, pendingTTL time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:       c,
		orders:     orders,
		schedule:   schedule,
		pendingTTL: pendingTTL,
		log:        log,
	}
}

func (s *Scheduler) Start() error {
	if s.orders == nil || s.pendingTTL <= 0 {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.expirePending); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) expirePending() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.orders.ExpireStalePending(ctx, s.pendingTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("expire pending orders failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("cancelled", n).Msg("expired stale pending orders")
	}
}
