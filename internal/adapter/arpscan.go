package adapter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// privilegeBanners are the arp-scan messages printed when it cannot open
// the interface. They are dropped from the output.
var privilegeBanners = []string{
	"You need to be root",
	"Operation not permitted",
}

// CommandRunner executes a command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ArpScanAdapter discovers hosts on the local segment with arp-scan
type ArpScanAdapter struct {
	iface     string
	sudoRetry bool
	timeout   time.Duration
	binary    string
	runner    CommandRunner
	logger    zerolog.Logger
}

// ArpScanOption is a functional option for configuring ArpScanAdapter
type ArpScanOption func(*ArpScanAdapter)

// WithSudoRetry enables or disables the privileged retry after a failed scan
func WithSudoRetry(enabled bool) ArpScanOption {
	return func(a *ArpScanAdapter) {
		a.sudoRetry = enabled
	}
}

// WithArpScanTimeout bounds each arp-scan invocation
func WithArpScanTimeout(d time.Duration) ArpScanOption {
	return func(a *ArpScanAdapter) {
		a.timeout = d
	}
}

// WithRunner replaces the command runner
func WithRunner(r CommandRunner) ArpScanOption {
	return func(a *ArpScanAdapter) {
		a.runner = r
	}
}

// WithArpScanLogger sets the logger
func WithArpScanLogger(l zerolog.Logger) ArpScanOption {
	return func(a *ArpScanAdapter) {
		a.logger = l
	}
}

// NewArpScanAdapter creates an arp-scan adapter bound to iface
func NewArpScanAdapter(iface string, opts ...ArpScanOption) *ArpScanAdapter {
	a := &ArpScanAdapter{
		iface:     iface,
		sudoRetry: true,
		timeout:   2 * time.Minute,
		binary:    "arp-scan",
		runner:    execRunner{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the adapter identifier
func (a *ArpScanAdapter) Name() string {
	return "arp-scan"
}

func (a *ArpScanAdapter) args() []string {
	return []string{"--localnet", "--interface", a.iface}
}

// Scan runs arp-scan once and, if that fails and sudo retry is enabled,
// once more under sudo
func (a *ArpScanAdapter) Scan(ctx context.Context) ([]string, error) {
	out, err := a.run(ctx, a.binary, a.args()...)
	if err == nil {
		return filterOutput(out), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !a.sudoRetry {
		return nil, a.scanError(out, err)
	}

	a.logger.Debug().Err(err).Str("interface", a.iface).Msg("arp-scan failed, retrying with sudo")

	// -n keeps sudo from waiting on a password prompt
	sudoArgs := append([]string{"-n", a.binary}, a.args()...)
	out, err = a.run(ctx, "sudo", sudoArgs...)
	if err != nil {
		return nil, a.scanError(out, err)
	}
	return filterOutput(out), nil
}

func (a *ArpScanAdapter) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return a.runner.Run(ctx, name, args...)
}

func (a *ArpScanAdapter) scanError(out []byte, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrNotInstalled, a.binary, err)
	}
	if hasPrivilegeBanner(string(out)) {
		return fmt.Errorf("%w: arp-scan on %s: %w", ErrPermission, a.iface, err)
	}

	msg := strings.TrimSpace(string(out))
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	if msg == "" {
		return fmt.Errorf("arp-scan on %s: %w", a.iface, err)
	}
	return fmt.Errorf("arp-scan on %s: %s: %w", a.iface, msg, err)
}

func hasPrivilegeBanner(line string) bool {
	for _, banner := range privilegeBanners {
		if strings.Contains(line, banner) {
			return true
		}
	}
	return false
}

// filterOutput splits raw output into lines and drops privilege banners
func filterOutput(out []byte) []string {
	raw := strings.Split(strings.TrimSpace(string(out)), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line == "" || hasPrivilegeBanner(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
