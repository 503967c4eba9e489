package adapter

import (
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"nettracker/internal/config"
	"nettracker/internal/logger"
)

// Factory builds a scanner from its configuration section
type Factory func(cfg config.ScannerConfig, logger zerolog.Logger) (Scanner, error)

// Registry maps scanner type names to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in scanners registered
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.mustRegister(config.ScannerArpScan, newArpScanFromConfig)
	r.mustRegister(config.ScannerNmap, newNmapFromConfig)
	return r
}

// Register adds a factory under name
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("scanner %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *Registry) mustRegister(name string, factory Factory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Names returns the registered scanner types in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the scanner selected by cfg.Type
func (r *Registry) New(cfg config.ScannerConfig, log zerolog.Logger) (Scanner, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown scanner type %q (available: %v)", config.ErrInvalidConfig, cfg.Type, r.Names())
	}

	scanLog := logger.WithComponent(log, "scanner").With().Str("scanner", cfg.Type).Logger()
	scanner, err := factory(cfg, scanLog)
	if err != nil {
		return nil, fmt.Errorf("create %s scanner: %w", cfg.Type, err)
	}
	return scanner, nil
}

func newArpScanFromConfig(cfg config.ScannerConfig, logger zerolog.Logger) (Scanner, error) {
	if cfg.Interface == "" {
		return nil, fmt.Errorf("%w: arp-scan needs an interface", config.ErrInvalidConfig)
	}
	// The default en0 does not exist on most Linux hosts
	if _, err := net.InterfaceByName(cfg.Interface); err != nil {
		logger.Warn().Err(err).Str("interface", cfg.Interface).Msg("scan interface not found on this host")
	}
	return NewArpScanAdapter(cfg.Interface,
		WithSudoRetry(cfg.RetryWithSudo()),
		WithArpScanTimeout(cfg.Timeout.Duration()),
		WithArpScanLogger(logger),
	), nil
}

func newNmapFromConfig(cfg config.ScannerConfig, logger zerolog.Logger) (Scanner, error) {
	targets, err := expandTargets(cfg.Targets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return NewNmapAdapter(targets,
		WithInterface(cfg.Interface),
		WithTimeout(cfg.Timeout.Duration()),
		WithLogger(logger),
	), nil
}
