package service

import (
	"context"
	"fmt"
	"time"

	"nettracker/internal/domain"
	"nettracker/internal/repository"
)

// HistoryLog reads and appends presence intervals inside one pass transaction
type HistoryLog struct {
	tx       repository.Tx
	registry *Registry
}

// NewHistoryLog creates a log that resolves identities through registry
func NewHistoryLog(tx repository.Tx, registry *Registry) *HistoryLog {
	return &HistoryLog{tx: tx, registry: registry}
}

// MostRecentPass returns the largest timeTo in the log, or nil for an empty log
func (h *HistoryLog) MostRecentPass(ctx context.Context) (*time.Time, error) {
	return h.tx.MaxTimeTo(ctx)
}

// OpenIntervals returns the entries ending at passTime keyed by device MAC.
// A nil passTime yields an empty map.
func (h *HistoryLog) OpenIntervals(ctx context.Context, passTime *time.Time) (map[string]*domain.Entry, error) {
	open := make(map[string]*domain.Entry)
	if passTime == nil {
		return open, nil
	}

	entries, err := h.tx.EntriesAt(ctx, *passTime)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entry := &entries[i]
		mac := domain.CanonicalMAC(entry.Device.MAC)
		if prev, ok := open[mac]; ok {
			// Two open intervals for one device; keep the newest row
			if prev.ID > entry.ID {
				continue
			}
		}
		open[mac] = entry
	}
	return open, nil
}

// Append records a new interval starting and ending at at. The identity
// rows are resolved or created and the device's advertised name is set to
// name.
func (h *HistoryLog) Append(ctx context.Context, status domain.Status, ip, mac, name string, at time.Time) (*domain.Entry, error) {
	statusRec, err := h.registry.Status(ctx, status)
	if err != nil {
		return nil, err
	}

	ipRec, err := h.registry.IP(ctx, ip)
	if err != nil {
		return nil, err
	}

	device, err := h.registry.Device(ctx, mac)
	if err != nil {
		return nil, err
	}

	if err := h.registry.UpdateAdvertisedName(ctx, device, name); err != nil {
		return nil, err
	}

	at = domain.NormalizeTime(at)
	entry := &domain.Entry{
		Status:   *statusRec,
		IP:       *ipRec,
		Device:   *device,
		TimeFrom: at,
		TimeTo:   at,
	}
	if err := h.tx.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append %s entry: %w", status, err)
	}
	return entry, nil
}

// Extend moves the end of an existing interval to at
func (h *HistoryLog) Extend(ctx context.Context, entry *domain.Entry, at time.Time) error {
	at = domain.NormalizeTime(at)
	if err := h.tx.UpdateEntryTimeTo(ctx, entry.ID, at); err != nil {
		return err
	}
	entry.TimeTo = at
	return nil
}
