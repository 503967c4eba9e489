package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"nettracker/internal/domain"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// entrySelect selects every column of an entry joined with its identities
func (n names) entrySelect() string {
	return fmt.Sprintf(`
		SELECT e.eid, e.timefrom, e.timeto,
			s.sid, s.status,
			ip.ipid, ip.ip,
			d.did, d.mac, d.name, d.arp_name
		FROM %s e
		JOIN %s s ON s.sid = e.sid
		JOIN %s ip ON ip.ipid = e.ipid
		JOIN %s d ON d.did = e.did
	`, n.entry, n.status, n.ip, n.devices)
}

func scanDevice(row pgx.Row) (*domain.Device, error) {
	var (
		device domain.Device
		label  *string
	)
	if err := row.Scan(&device.ID, &device.MAC, &label, &device.AdvertisedName); err != nil {
		return nil, err
	}
	device.Label = derefString(label)
	return &device, nil
}

func scanEntries(rows pgx.Rows) ([]domain.Entry, error) {
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var (
			entry            domain.Entry
			status           string
			label            *string
			timeFrom, timeTo time.Time
		)
		if err := rows.Scan(
			&entry.ID, &timeFrom, &timeTo,
			&entry.Status.ID, &status,
			&entry.IP.ID, &entry.IP.Value,
			&entry.Device.ID, &entry.Device.MAC, &label, &entry.Device.AdvertisedName,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		parsed, err := domain.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		entry.Status.Status = parsed
		entry.Device.Label = derefString(label)
		entry.TimeFrom = timeFrom.UTC()
		entry.TimeTo = timeTo.UTC()

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
