package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/sessionpulse/internal/metrics"
	"github.com/prudhvinik1/sessionpulse/internal/repositories"
	"go.uber.org/zap"
)

// Sweeper deletes idle sessions on a timer, independent of request traffic.
type Sweeper struct {
	sessionRepo repositories.SessionRepository
	retention   time.Duration
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewSweeper(sessionRepo repositories.SessionRepository, retention, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sessionRepo: sessionRepo,
		retention:   retention,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

// SweepOnce removes every session whose updated_at is older than the retention window.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	runID := uuid.NewString()
	cutoff := s.now().UTC().Truncate(time.Millisecond).Add(-s.retention)
	start := time.Now()

	deleted, err := s.sessionRepo.DeleteStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("Scheduled sweep failed",
			zap.String("run_id", runID),
			zap.Time("cutoff", cutoff),
			zap.Error(err),
		)
		return 0, err
	}

	metrics.SessionsSweptTotal.WithLabelValues(metrics.TriggerScheduled).Add(float64(deleted))
	s.logger.Info("Scheduled sweep completed",
		zap.String("run_id", runID),
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
		zap.Duration("duration", time.Since(start)),
	)
	return deleted, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// Failures are logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sweeper started", zap.Duration("interval", s.interval), zap.Duration("retention", s.retention))

	for {
		_, _ = s.SweepOnce(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
