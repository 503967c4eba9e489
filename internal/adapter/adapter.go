package adapter

import (
	"context"
	"errors"
)

// Scanner runs one host discovery and returns its output as
// "ip\tMAC\tname" lines. Lines that are not host records may be present
// and are ignored by the reconciler.
type Scanner interface {
	Scan(ctx context.Context) ([]string, error)
	Name() string
}

var (
	// ErrPermission is returned when a scan was refused for lack of privilege
	ErrPermission = errors.New("insufficient privilege for scan")
	// ErrNotInstalled is returned when the scanner binary cannot be found
	ErrNotInstalled = errors.New("scanner binary not found")
)
