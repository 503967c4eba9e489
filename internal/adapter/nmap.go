package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"
)

// unknownName is reported for hosts with neither a MAC vendor nor a reverse DNS name
const unknownName = "(Unknown)"

// NmapAdapter discovers hosts with an nmap ping sweep (-sn). MAC addresses
// are only reported for hosts on a directly attached segment, and only
// when nmap runs privileged.
type NmapAdapter struct {
	targets []string
	iface   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNmapAdapter creates a new nmap-based scanning adapter
// targets: list of CIDR ranges or individual IPs to scan
// opts: optional configuration options
func NewNmapAdapter(targets []string, opts ...NmapOption) *NmapAdapter {
	adapter := &NmapAdapter{
		targets: targets,
		timeout: 2 * time.Minute,
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// Name returns the adapter identifier
func (n *NmapAdapter) Name() string {
	return "nmap"
}

// Scan sweeps every target and returns one line per up host with a MAC
func (n *NmapAdapter) Scan(ctx context.Context) ([]string, error) {
	if len(n.targets) == 0 {
		return nil, errors.New("nmap: no targets configured")
	}

	targets, err := expandTargets(n.targets)
	if err != nil {
		return nil, err
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	opts := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithPingScan(),
	}
	if n.iface != "" {
		opts = append(opts, nmap.WithInterface(n.iface))
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		if errors.Is(err, nmap.ErrNmapNotInstalled) {
			return nil, fmt.Errorf("%w: nmap: %w", ErrNotInstalled, err)
		}
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	n.logger.Debug().Strs("targets", targets).Msg("starting nmap ping sweep")
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("nmap scan failed: %w", err)
	}

	if warnings != nil && len(*warnings) > 0 {
		n.logger.Warn().Strs("warnings", *warnings).Msg("nmap reported warnings")
	}

	lines, err := n.processResults(result)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 && result.Stats.Hosts.Up > 0 {
		// Up hosts without MACs usually means nmap ran unprivileged
		return nil, fmt.Errorf("%w: nmap found %d hosts but no MAC addresses", ErrPermission, result.Stats.Hosts.Up)
	}
	return lines, nil
}

// processResults converts nmap scan results to scan lines
func (n *NmapAdapter) processResults(result *nmap.Run) ([]string, error) {
	if result == nil {
		return nil, fmt.Errorf("nil scan result")
	}

	var lines []string
	skipped := 0
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}

		line, ok := hostLine(host)
		if !ok {
			skipped++
			continue
		}
		lines = append(lines, line)
	}

	if skipped > 0 {
		n.logger.Debug().Int("hosts", skipped).Msg("nmap hosts without IPv4 or MAC skipped")
	}
	return lines, nil
}

// hostLine renders an up host as "ip\tMAC\tname"
func hostLine(host nmap.Host) (string, bool) {
	var ip, mac, vendor string
	for _, addr := range host.Addresses {
		switch addr.AddrType {
		case "ipv4":
			if ip == "" {
				ip = addr.Addr
			}
		case "mac":
			if mac == "" {
				mac = strings.ToUpper(addr.Addr)
				vendor = addr.Vendor
			}
		}
	}
	if ip == "" || mac == "" {
		return "", false
	}

	name := vendor
	if name == "" && len(host.Hostnames) > 0 {
		name = host.Hostnames[0].Name
	}
	if name == "" {
		name = unknownName
	}

	return ip + "\t" + mac + "\t" + name, true
}

// expandTargets validates CIDR targets; nmap expands them itself
func expandTargets(targets []string) ([]string, error) {
	var expanded []string
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if strings.Contains(target, "/") {
			_, ipNet, err := net.ParseCIDR(target)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %s: %w", target, err)
			}
			expanded = append(expanded, ipNet.String())
		} else {
			expanded = append(expanded, target)
		}
	}
	if len(expanded) == 0 {
		return nil, errors.New("nmap: no targets configured")
	}
	return expanded, nil
}
