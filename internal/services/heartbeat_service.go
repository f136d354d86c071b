package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prudhvinik1/sessionpulse/internal/events"
	"github.com/prudhvinik1/sessionpulse/internal/metrics"
	"github.com/prudhvinik1/sessionpulse/internal/models"
	"github.com/prudhvinik1/sessionpulse/internal/repositories"
	"github.com/prudhvinik1/sessionpulse/internal/utils"
	"go.uber.org/zap"
)

// ErrStorage wraps every session store failure. Callers map it to an opaque
// server error.
var ErrStorage = errors.New("storage error")

// ValidationError reports a client fault in a ping payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type PingRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	UserAgent  string `json:"user_agent"`
	DeviceType string `json:"device_type"`
}

type HeartbeatOptions struct {
	Retention        time.Duration
	SweepOnPing      bool
	DetectDeviceType bool
}

type HeartbeatService struct {
	sessionRepo repositories.SessionRepository
	publisher   events.Publisher
	logger      *zap.Logger
	validate    *validator.Validate
	opts        HeartbeatOptions
	now         func() time.Time
}

func NewHeartbeatService(
	sessionRepo repositories.SessionRepository,
	publisher events.Publisher,
	logger *zap.Logger,
	opts HeartbeatOptions,
) *HeartbeatService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &HeartbeatService{
		sessionRepo: sessionRepo,
		publisher:   publisher,
		logger:      logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		opts:        opts,
		now:         time.Now,
	}
}

// Record upserts the session named by req and, when enabled, sweeps sessions
// idle for longer than the retention window. A failed sweep fails the call
// even though the upsert already landed.
func (s *HeartbeatService) Record(ctx context.Context, req PingRequest) (*models.Session, error) {
	if err := s.validate.Struct(req); err != nil {
		metrics.PingsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, &ValidationError{Field: "session_id", Message: "session_id is required"}
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	session := &models.Session{
		SessionID:  req.SessionID,
		UserAgent:  orUnknown(req.UserAgent),
		DeviceType: s.deviceType(req),
		UpdatedAt:  now,
	}

	created, err := s.sessionRepo.Upsert(ctx, session)
	if err != nil {
		metrics.PingsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if created {
		metrics.SessionsCreatedTotal.Inc()
	}

	s.publish(ctx, session, created)

	if s.opts.SweepOnPing {
		deleted, err := s.sessionRepo.DeleteStale(ctx, now.Add(-s.opts.Retention))
		if err != nil {
			metrics.PingsTotal.WithLabelValues(metrics.ResultError).Inc()
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if deleted > 0 {
			metrics.SessionsSweptTotal.WithLabelValues(metrics.TriggerPing).Add(float64(deleted))
			s.logger.Info("Swept stale sessions",
				zap.String("trigger", metrics.TriggerPing),
				zap.Int64("deleted", deleted),
			)
		}
	}

	metrics.PingsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return session, nil
}

// Ready reports whether the session store is reachable.
func (s *HeartbeatService) Ready(ctx context.Context) error {
	return s.sessionRepo.Ping(ctx)
}

func (s *HeartbeatService) deviceType(req PingRequest) string {
	if req.DeviceType != "" {
		return req.DeviceType
	}
	if s.opts.DetectDeviceType && req.UserAgent != "" {
		return utils.DetectDeviceType(req.UserAgent)
	}
	return models.Unknown
}

// publish never fails the ping; the store write is the source of truth.
func (s *HeartbeatService) publish(ctx context.Context, session *models.Session, created bool) {
	err := s.publisher.Publish(ctx, models.HeartbeatEvent{
		SessionID:  session.SessionID,
		UserAgent:  session.UserAgent,
		DeviceType: session.DeviceType,
		Created:    created,
		OccurredAt: session.UpdatedAt,
	})
	if err != nil {
		s.logger.Warn("Failed to publish heartbeat event",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}
}

func orUnknown(value string) string {
	if value == "" {
		return models.Unknown
	}
	return value
}
