package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"nettracker/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Timestamp Helpers
// ============================================================================

// timeLayout is fixed width so that text comparison and MAX() order like time
const timeLayout = "2006-01-02 15:04:05.000000"

// formatTime renders t in the stored UTC representation
func formatTime(t time.Time) string {
	return domain.NormalizeTime(t).Format(timeLayout)
}

// parseTime reads a stored timestamp back as UTC
func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ============================================================================
// Entry Row Scanner
// ============================================================================
//
// Column order must match between entryColumns and entryRow.scanArgs().

// entryColumns is the SELECT list for entry queries joined with their identities
const entryColumns = `
	e.eid, e.timefrom, e.timeto,
	s.sid, s.status,
	ip.ipid, ip.ip,
	d.did, d.mac, d.name, d.arp_name`

// entryJoins joins an entry with its status, ip and device rows
const entryJoins = `
	FROM entry e
	JOIN status s ON s.sid = e.sid
	JOIN ip ON ip.ipid = e.ipid
	JOIN devices d ON d.did = e.did`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// entryRow holds all columns from an entry query for scanning
type entryRow struct {
	ID       int64
	TimeFrom string
	TimeTo   string
	StatusID int64
	Status   string
	IPID     int64
	IP       string
	DeviceID int64
	MAC      string
	Label    sql.NullString
	ARPName  string
}

// scanArgs returns pointers to all fields for Scan, in entryColumns order
func (r *entryRow) scanArgs() []any {
	return []any{
		&r.ID,
		&r.TimeFrom,
		&r.TimeTo,
		&r.StatusID,
		&r.Status,
		&r.IPID,
		&r.IP,
		&r.DeviceID,
		&r.MAC,
		&r.Label,
		&r.ARPName,
	}
}

// toDomain converts the scanned row to a domain.Entry
func (r *entryRow) toDomain() (domain.Entry, error) {
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Entry{}, err
	}

	from, err := parseTime(r.TimeFrom)
	if err != nil {
		return domain.Entry{}, err
	}

	to, err := parseTime(r.TimeTo)
	if err != nil {
		return domain.Entry{}, err
	}

	return domain.Entry{
		ID:     r.ID,
		Status: domain.StatusRecord{ID: r.StatusID, Status: status},
		IP:     domain.IPAddress{ID: r.IPID, Value: r.IP},
		Device: domain.Device{
			ID:             r.DeviceID,
			MAC:            r.MAC,
			AdvertisedName: r.ARPName,
			Label:          nullToString(r.Label),
		},
		TimeFrom: from,
		TimeTo:   to,
	}, nil
}

// scanEntries drains rows into entries
func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		var row entryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		entry, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", row.ID, err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// scanDevice reads a devices row (did, mac, name, arp_name)
func scanDevice(row rowScanner) (*domain.Device, error) {
	var (
		d     domain.Device
		label sql.NullString
	)
	if err := row.Scan(&d.ID, &d.MAC, &label, &d.AdvertisedName); err != nil {
		return nil, err
	}
	d.Label = nullToString(label)
	return &d, nil
}
