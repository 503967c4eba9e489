package repository

import (
	"context"
	"time"

	"nettracker/internal/domain"
)

// Store is the storage collaborator for a presence history
type Store interface {
	// Begin opens the transaction a single reconciliation pass runs in
	Begin(ctx context.Context) (Tx, error)

	// Schema lifecycle
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Read operations, outside any pass
	LatestState(ctx context.Context) ([]domain.PresenceRow, error)
	DeviceHistory(ctx context.Context, mac string) ([]domain.Entry, error)

	// SetDeviceLabel stores an operator label; ErrNotFound for unknown MACs
	SetDeviceLabel(ctx context.Context, mac, label string) error

	// Close releases resources
	Close() error
}

// Tx exposes the lookup and insert primitives of one pass. Find methods
// return (nil, nil) when no row matches.
type Tx interface {
	// Identity tables
	FindIP(ctx context.Context, value string) (*domain.IPAddress, error)
	InsertIP(ctx context.Context, value string) (*domain.IPAddress, error)
	FindStatus(ctx context.Context, status domain.Status) (*domain.StatusRecord, error)
	InsertStatus(ctx context.Context, status domain.Status) (*domain.StatusRecord, error)
	FindDevice(ctx context.Context, mac string) (*domain.Device, error)
	InsertDevice(ctx context.Context, mac string) (*domain.Device, error)
	UpdateDeviceName(ctx context.Context, deviceID int64, name string) error

	// History log
	MaxTimeTo(ctx context.Context) (*time.Time, error)
	EntriesAt(ctx context.Context, timeTo time.Time) ([]domain.Entry, error)
	InsertEntry(ctx context.Context, entry *domain.Entry) error
	UpdateEntryTimeTo(ctx context.Context, entryID int64, timeTo time.Time) error

	Commit(ctx context.Context) error
	// Rollback is a no-op after Commit
	Rollback(ctx context.Context) error
}
