// Package cron runs periodic maintenance jobs on robfig/cron schedules.
package cron

import (
	"context"
	"fmt"
	"time"

	robfigcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const sweepTimeout = time.Minute

// Purger removes expired records and reports how many were removed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Sweeper purges expired operator sessions on a cron schedule.
type Sweeper struct {
	cron   *robfigcron.Cron
	purger Purger
	log    zerolog.Logger
}

// NewSweeper accepts standard five-field specs and descriptors such as
// "@every 15m".
func NewSweeper(schedule string, purger Purger, log zerolog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:   robfigcron.New(),
		purger: purger,
		log:    log.With().Str("component", "session-sweeper").Logger(),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running sweep to finish.
func (s *Sweeper) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info().Msg("session sweeper started")

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("session sweeper stopped")
	return nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("removed", n).Msg("session sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("removed", n).Msg("expired sessions purged")
	}
}
