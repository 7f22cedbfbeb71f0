// Package reconciler runs the periodic loop that compares the door status
// against the sun schedule and requests motion when they disagree.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coop-door-backend/config"
	"coop-door-backend/internal/door"
	"coop-door-backend/internal/model"
	"coop-door-backend/internal/store"
	"coop-door-backend/internal/sun"
)

// Alerter receives motion requests and warnings raised by a tick.
// Implementations must not block for long.
type Alerter interface {
	Dispatch(alert model.Alert)
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithAlerters adds alert sinks.
func WithAlerters(alerters ...Alerter) Option {
	return func(s *Service) { s.alerters = append(s.alerters, alerters...) }
}

// Service orchestrates the reconciliation loop.
type Service struct {
	interval   time.Duration
	hourOffset int
	grace      float64

	almanac  *sun.Almanac
	gateway  *store.Gateway
	log      *zap.Logger
	clock    func() time.Time
	alerters []Alerter
}

// NewService creates a reconciliation service.
func NewService(cfg *config.Config, almanac *sun.Almanac, gateway *store.Gateway, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	grace := float64(cfg.Door.GraceSeconds)
	if grace <= 0 {
		grace = sun.Grace
	}
	interval := cfg.Door.Interval
	if interval <= 0 {
		interval = time.Duration(cfg.Door.IntervalSeconds) * time.Second
	}

	s := &Service{
		interval:   interval,
		hourOffset: cfg.Door.HourOffset,
		grace:      grace,
		almanac:    almanac,
		gateway:    gateway,
		log:        log.Named("reconciler"),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks every interval until ctx is cancelled. Tick failures are logged
// and the loop keeps going.
func (s *Service) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Error("Reconciliation interval must be positive; loop not started")
		return
	}
	s.log.Info("Starting reconciliation loop", zap.Duration("interval", s.interval))

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Reconciliation loop shutting down.")
			return
		case <-timer.C:
			// An in-flight tick finishes its write even when shutdown starts.
			if _, err := s.TickOnce(context.WithoutCancel(ctx)); err != nil {
				s.log.Error("Reconciliation tick failed", zap.Error(err))
			}
			timer.Reset(s.interval)
		}
	}
}

// Clock converts an instant to the schedule's frame: seconds since local
// midnight and the 1-based day-of-year, after applying the hour offset to UTC.
func (s *Service) Clock(now time.Time) (float64, int) {
	return sun.LocalClock(now, s.hourOffset)
}

// TickOnce performs one evaluation and persists the result when it changed.
func (s *Service) TickOnce(ctx context.Context) (door.Decision, error) {
	secs, ordinal := s.Clock(s.clock())
	couplet, err := s.almanac.Lookup(ordinal)
	if err != nil {
		return door.Decision{}, err
	}
	daylight := couplet.Daylight(secs, s.grace)

	var decision door.Decision
	_, written, err := s.gateway.Update(ctx, func(current model.DoorStatus) (model.DoorStatus, bool, error) {
		decision = door.Decide(current, daylight, ordinal)
		return decision.Status, decision.Changed(), nil
	})
	if err != nil {
		return door.Decision{}, fmt.Errorf("failed to reconcile door status: %w", err)
	}

	s.report(decision, secs, written)
	return decision, nil
}

// Preview evaluates the current status without writing anything.
func (s *Service) Preview(ctx context.Context) (door.Decision, error) {
	secs, ordinal := s.Clock(s.clock())
	couplet, err := s.almanac.Lookup(ordinal)
	if err != nil {
		return door.Decision{}, err
	}

	current, err := s.gateway.ReadStatus(ctx)
	if err != nil {
		return door.Decision{}, err
	}
	return door.Decide(current, couplet.Daylight(secs, s.grace), ordinal), nil
}

func (s *Service) report(d door.Decision, secs float64, written bool) {
	fields := []zap.Field{
		zap.Int("ordinal", d.Ordinal),
		zap.Float64("seconds_of_day", secs),
		zap.Bool("daylight", d.Daylight),
		zap.String("state", string(d.State)),
		zap.String("action", string(d.Action)),
		zap.Bool("written", written),
	}

	if d.OverrideExpired {
		s.log.Info("Manual override expired", fields...)
	}
	if d.Suppressed {
		s.log.Debug("Manual override active, no automatic motion", fields...)
		return
	}

	switch d.Action {
	case model.ActionOpen:
		s.log.Info("Opening the door", fields...)
		s.alert(model.AlertMotion, "Opening the door", d)
	case model.ActionClose:
		s.log.Info("Closing the door", fields...)
		s.alert(model.AlertMotion, "Closing the door", d)
	}

	switch {
	case d.Warning == "":
	case d.Awaiting():
		s.log.Info(d.Warning, fields...)
	default:
		s.log.Warn(d.Warning, fields...)
		s.alert(model.AlertWarning, d.Warning, d)
	}
}

func (s *Service) alert(kind model.AlertKind, message string, d door.Decision) {
	a := model.Alert{
		Kind:    kind,
		Message: message,
		State:   d.State,
		Action:  d.Action,
		Ordinal: d.Ordinal,
		At:      s.clock().UTC(),
	}
	for _, al := range s.alerters {
		al.Dispatch(a)
	}
}
