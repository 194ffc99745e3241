package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper runs the periodic expiry scan against a Store on a fixed interval.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   zerolog.Logger
	cron     *cron.Cron
}

// NewSweeper builds a sweeper for store firing every interval.
func NewSweeper(store Store, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "session_sweeper").Logger(),
	}
}

// Start schedules the sweep and begins running it in the background.
func (s *Sweeper) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.interval)
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()

	s.logger.Info().Str("interval", s.interval.String()).Msg("session sweeper started")
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("session sweeper stopped")
}

func (s *Sweeper) sweep() {
	removed := s.store.Sweep(context.Background())
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("sweep pass complete")
	}
}
