package domain

import (
	"strconv"
	"strings"
	"time"
)

// IPAddress is a canonical IP row, unique on Value
type IPAddress struct {
	ID    int64  `json:"id"`
	Value string `json:"ip"`
}

// Device is a canonical hardware-address row, unique on MAC
type Device struct {
	ID             int64  `json:"id"`
	MAC            string `json:"mac"`
	AdvertisedName string `json:"advertised_name"`
	Label          string `json:"label,omitempty"` // operator-assigned, never set by scans
}

// DisplayName prefers the operator label over the advertised name
func (d *Device) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.AdvertisedName
}

// Entry is one history interval for a device
type Entry struct {
	ID       int64        `json:"id"`
	Status   StatusRecord `json:"status"`
	IP       IPAddress    `json:"ip"`
	Device   Device       `json:"device"`
	TimeFrom time.Time    `json:"time_from"`
	TimeTo   time.Time    `json:"time_to"`
}

// Connected reports whether the entry records the device as present
func (e *Entry) Connected() bool {
	return e.Status.Status == StatusConnected
}

// PresenceRow is one line of the latest-known-state view
type PresenceRow struct {
	EntryID        int64     `json:"entry_id"`
	TimeFrom       time.Time `json:"time_from"`
	TimeTo         time.Time `json:"time_to"`
	Status         Status    `json:"status"`
	IP             string    `json:"ip"`
	MAC            string    `json:"mac"`
	Label          string    `json:"label,omitempty"`
	AdvertisedName string    `json:"advertised_name"`
}

// LastOctet returns the numeric last octet of an IPv4 address, or -1 when the
// address has no parsable trailing component
func LastOctet(ip string) int {
	idx := strings.LastIndex(ip, ".")
	n, err := strconv.Atoi(ip[idx+1:])
	if err != nil {
		return -1
	}
	return n
}

// NormalizeTime converts t to the representation every store keeps: UTC with
// microsecond precision
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
