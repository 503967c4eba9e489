package service

import (
	"context"
	"fmt"

	"nettracker/internal/domain"
	"nettracker/internal/repository"
)

// Registry resolves natural keys to identity rows inside one pass
// transaction, creating rows on first use. Resolved rows are cached so
// repeated lookups for a key return the same record without another query.
type Registry struct {
	tx       repository.Tx
	ips      map[string]*domain.IPAddress
	statuses map[domain.Status]*domain.StatusRecord
	devices  map[string]*domain.Device
}

// NewRegistry creates a registry bound to tx
func NewRegistry(tx repository.Tx) *Registry {
	return &Registry{
		tx:       tx,
		ips:      make(map[string]*domain.IPAddress),
		statuses: make(map[domain.Status]*domain.StatusRecord),
		devices:  make(map[string]*domain.Device),
	}
}

// IP returns the row for value, inserting it if absent
func (r *Registry) IP(ctx context.Context, value string) (*domain.IPAddress, error) {
	if ip, ok := r.ips[value]; ok {
		return ip, nil
	}

	ip, err := r.tx.FindIP(ctx, value)
	if err != nil {
		return nil, err
	}
	if ip == nil {
		if ip, err = r.tx.InsertIP(ctx, value); err != nil {
			return nil, err
		}
	}

	r.ips[value] = ip
	return ip, nil
}

// Status returns the lookup row for status, inserting it if absent
func (r *Registry) Status(ctx context.Context, status domain.Status) (*domain.StatusRecord, error) {
	if rec, ok := r.statuses[status]; ok {
		return rec, nil
	}

	rec, err := r.tx.FindStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		if rec, err = r.tx.InsertStatus(ctx, status); err != nil {
			return nil, err
		}
	}

	r.statuses[status] = rec
	return rec, nil
}

// Device returns the row for mac, inserting it if absent. The key is
// canonicalised first, so differently cased spellings share one row.
func (r *Registry) Device(ctx context.Context, mac string) (*domain.Device, error) {
	mac = domain.CanonicalMAC(mac)
	if device, ok := r.devices[mac]; ok {
		return device, nil
	}

	device, err := r.tx.FindDevice(ctx, mac)
	if err != nil {
		return nil, err
	}
	if device == nil {
		if device, err = r.tx.InsertDevice(ctx, mac); err != nil {
			return nil, err
		}
	}

	r.devices[mac] = device
	return device, nil
}

// UpdateAdvertisedName overwrites the name the device last advertised
func (r *Registry) UpdateAdvertisedName(ctx context.Context, device *domain.Device, name string) error {
	if err := r.tx.UpdateDeviceName(ctx, device.ID, name); err != nil {
		return fmt.Errorf("device %s: %w", device.MAC, err)
	}
	device.AdvertisedName = name
	return nil
}
