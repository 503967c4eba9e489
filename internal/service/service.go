package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nettracker/internal/domain"
	"nettracker/internal/logger"
	"nettracker/internal/repository"
)

// PresenceService runs reconciliation passes and answers history queries.
// Passes must not overlap; Watch serialises them on a single goroutine and
// callers invoking RunPass directly are responsible for doing the same.
type PresenceService struct {
	store   repository.Store
	scanner Scanner
	clock   Clock
	logger  zerolog.Logger
	events  *EventBus
}

// Option configures a PresenceService
type Option func(*PresenceService)

// WithClock replaces the wall clock used for pass timestamps and the watch ticker
func WithClock(clock Clock) Option {
	return func(s *PresenceService) {
		s.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *PresenceService) {
		s.logger = logger
	}
}

// WithEventBus publishes transitions of every committed pass to bus
func WithEventBus(bus *EventBus) Option {
	return func(s *PresenceService) {
		s.events = bus
	}
}

// NewPresenceService creates a service over store. scanner may be nil when
// only the read operations are used.
func NewPresenceService(store repository.Store, scanner Scanner, opts ...Option) *PresenceService {
	s := &PresenceService{
		store:   store,
		scanner: scanner,
		clock:   realClock{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.WithComponent(s.logger, "presence")
	return s
}

// RunPass scans the network and reconciles the result at the current time
func (s *PresenceService) RunPass(ctx context.Context) (*PassResult, error) {
	if s.scanner == nil {
		return nil, fmt.Errorf("%w: no scanner configured", ErrScanFailed)
	}

	started := s.clock.Now()
	lines, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScanFailed, s.scanner.Name(), err)
	}

	s.logger.Debug().
		Str("scanner", s.scanner.Name()).
		Int("lines", len(lines)).
		Dur("scan_duration", s.clock.Now().Sub(started)).
		Msg("scan finished")

	return s.Reconcile(ctx, lines, s.clock.Now())
}

// Reconcile applies already captured scan output as a pass at now. Either
// every write of the pass is committed or none is.
func (s *PresenceService) Reconcile(ctx context.Context, lines []string, now time.Time) (*PassResult, error) {
	scan := domain.ParseScan(lines)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPassFailed, err)
	}
	defer tx.Rollback(ctx)

	pass := newPass(tx, now, s.logger)
	for _, line := range scan.Skipped {
		pass.logger.Debug().Str("line", line).Msg("skipping unparsable scan line")
	}

	result, err := reconcile(ctx, pass, scan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPassFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPassFailed, err)
	}

	pass.logger.Info().
		Time("at", result.At).
		Bool("first_pass", result.FirstPass).
		Int("observed", result.Observed).
		Int("skipped", result.Skipped).
		Int("duplicates", result.Duplicates).
		Int("added", result.Added).
		Int("extended", result.Extended).
		Int("changed", result.Changed).
		Int("returned", result.Returned).
		Int("departed", result.Departed).
		Int("still_absent", result.StillAbsent).
		Msg("pass committed")

	if s.events != nil {
		s.events.publishPass(result)
	}
	return result, nil
}

// Watch runs a pass immediately and then once per interval until ctx is
// cancelled. A failed pass is logged and the loop keeps going.
func (s *PresenceService) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	s.logger.Info().Dur("interval", interval).Msg("watching network")
	s.runLogged(ctx)

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("watch stopped")
			return nil
		case <-ticker.Chan():
			s.runLogged(ctx)
		}
	}
}

func (s *PresenceService) runLogged(ctx context.Context) {
	if _, err := s.RunPass(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error().Err(err).Msg("pass failed")
	}
}

// CurrentState returns the latest known state of every device ordered by
// the numeric last octet of its IP
func (s *PresenceService) CurrentState(ctx context.Context) ([]domain.PresenceRow, error) {
	return s.store.LatestState(ctx)
}

// DeviceHistory returns every interval recorded for mac ordered by start time
func (s *PresenceService) DeviceHistory(ctx context.Context, mac string) ([]domain.Entry, error) {
	return s.store.DeviceHistory(ctx, domain.CanonicalMAC(mac))
}

// LabelDevice sets the operator label of a known device. Scans never touch
// the label.
func (s *PresenceService) LabelDevice(ctx context.Context, mac, label string) error {
	mac = domain.CanonicalMAC(mac)
	if mac == "" {
		return fmt.Errorf("device %q: %w", mac, repository.ErrNotFound)
	}

	label = strings.TrimSpace(label)
	if err := s.store.SetDeviceLabel(ctx, mac, label); err != nil {
		return err
	}

	s.logger.Info().Str("mac", mac).Str("label", label).Msg("device labeled")
	if s.events != nil {
		s.events.Publish(Event{Type: EventDeviceLabeled, Payload: map[string]string{"mac": mac, "label": label}})
	}
	return nil
}
