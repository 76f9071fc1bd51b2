package noshow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/chani890/MediWait/config"
	"github.com/chani890/MediWait/internal/model"
	"github.com/chani890/MediWait/internal/queue"
)

// Lister finds receptions called at or before a cutoff.
type Lister interface {
	ListCalledBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Reception, error)
}

// Marker applies the guarded CALLED -> NO_RESPONSE transition.
type Marker interface {
	MarkNoResponse(ctx context.Context, id string) (model.Reception, error)
}

// Sweeper marks patients who did not enter the exam room within the grace
// period after being called.
type Sweeper struct {
	cfg    config.NoShowConfig
	lister Lister
	marker Marker
	now    func() time.Time
	log    zerolog.Logger
}

func NewSweeper(cfg config.NoShowConfig, lister Lister, marker Marker, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		cfg:    cfg,
		lister: lister,
		marker: marker,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logger.With().Str("component", "noshow").Logger(),
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info().Msg("no-show sweeper is disabled")
		return
	}
	s.log.Info().Dur("grace", s.cfg.Grace).Dur("interval", s.cfg.Interval).Msg("starting no-show sweeper")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("no-show sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce marks every overdue call and returns how many were marked.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.Grace)
	overdue, err := s.lister.ListCalledBefore(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list overdue calls")
		return 0
	}

	marked := 0
	for _, r := range overdue {
		_, err := s.marker.MarkNoResponse(ctx, r.ID)
		switch {
		case err == nil:
			marked++
			s.log.Info().Str("reception_id", r.ID).Msg("reception marked as no response")
		case errors.Is(err, queue.ErrInvalidTransition), errors.Is(err, queue.ErrNotFound):
			// Completed or removed since the scan.
			s.log.Debug().Str("reception_id", r.ID).Err(err).Msg("skipping reception")
		default:
			s.log.Error().Str("reception_id", r.ID).Err(err).Msg("failed to mark no response")
		}
	}
	return marked
}
