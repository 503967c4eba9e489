package adapter

import (
	"time"

	"github.com/rs/zerolog"
)

// NmapOption is a functional option for configuring NmapAdapter
type NmapOption func(*NmapAdapter)

// WithTimeout sets the timeout for the entire nmap scan
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapAdapter) {
		n.timeout = d
	}
}

// WithTargets sets or replaces the target list
func WithTargets(targets []string) NmapOption {
	return func(n *NmapAdapter) {
		n.targets = targets
	}
}

// WithInterface pins the sweep to one network interface (-e)
func WithInterface(iface string) NmapOption {
	return func(n *NmapAdapter) {
		n.iface = iface
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) NmapOption {
	return func(n *NmapAdapter) {
		n.logger = l
	}
}
