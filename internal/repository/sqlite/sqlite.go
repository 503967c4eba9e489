package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nettracker/internal/domain"
	"nettracker/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Store using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Store = (*Repository)(nil)

// New opens the SQLite database at dbPath. The schema is not created here;
// call CreateSchema once per database.
func New(dbPath string) (*Repository, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", repository.ErrStorage, err)
	}

	// One connection: passes are serialized anyway, and :memory: databases
	// exist per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if dbPath != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %w", repository.ErrStorage, pragma, err)
		}
	}

	return &Repository{db: db}, nil
}

const schema = `
CREATE TABLE ip (
	ipid INTEGER PRIMARY KEY AUTOINCREMENT,
	ip TEXT NOT NULL UNIQUE
);

CREATE TABLE status (
	sid INTEGER PRIMARY KEY AUTOINCREMENT,
	status TEXT NOT NULL UNIQUE
);

CREATE TABLE devices (
	did INTEGER PRIMARY KEY AUTOINCREMENT,
	mac TEXT NOT NULL UNIQUE,
	name TEXT,
	arp_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE entry (
	eid INTEGER PRIMARY KEY AUTOINCREMENT,
	timefrom TEXT NOT NULL,
	timeto TEXT NOT NULL,
	sid INTEGER NOT NULL REFERENCES status(sid),
	ipid INTEGER NOT NULL REFERENCES ip(ipid),
	did INTEGER NOT NULL REFERENCES devices(did),
	CHECK (timefrom <= timeto)
);

CREATE INDEX idx_entry_timeto ON entry(timeto);
CREATE INDEX idx_entry_did ON entry(did);

CREATE TRIGGER uppercase_mac_on_insert AFTER INSERT ON devices
	WHEN NEW.mac <> upper(NEW.mac)
BEGIN
	UPDATE devices SET mac = upper(NEW.mac) WHERE did = NEW.did;
END;

CREATE TRIGGER uppercase_mac_on_update AFTER UPDATE OF mac ON devices
	WHEN NEW.mac <> upper(NEW.mac)
BEGIN
	UPDATE devices SET mac = upper(NEW.mac) WHERE did = NEW.did;
END;

CREATE VIEW network_history AS
	SELECT
		e.eid,
		e.timefrom,
		e.timeto,
		s.status,
		ip.ip,
		d.mac,
		d.name,
		d.arp_name
	FROM entry e
	JOIN status s ON s.sid = e.sid
	JOIN ip ON ip.ipid = e.ipid
	JOIN devices d ON d.did = e.did
	WHERE e.timeto = (SELECT max(timeto) FROM entry)
	ORDER BY CAST(substr(ip.ip, length(rtrim(ip.ip, '0123456789')) + 1) AS INTEGER), e.eid;
`

// CreateSchema creates the tables, trigger and view. It fails with
// repository.ErrSchema if the schema already exists.
func (r *Repository) CreateSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", repository.ErrSchema, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: create tables: %w", repository.ErrSchema, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrSchema, err)
	}
	return nil
}

// DropSchema removes the view and all tables. Missing objects are ignored.
func (r *Repository) DropSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", repository.ErrSchema, err)
	}
	defer tx.Rollback()

	// Order matters due to foreign keys
	stmts := []string{
		`DROP VIEW IF EXISTS network_history`,
		`DROP TABLE IF EXISTS entry`,
		`DROP TABLE IF EXISTS devices`,
		`DROP TABLE IF EXISTS status`,
		`DROP TABLE IF EXISTS ip`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s: %w", repository.ErrSchema, stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrSchema, err)
	}
	return nil
}

// Begin starts the transaction for one pass
func (r *Repository) Begin(ctx context.Context) (repository.Tx, error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", repository.ErrStorage, err)
	}
	return &tx{tx: sqlTx}, nil
}

// LatestState reads the network_history view
func (r *Repository) LatestState(ctx context.Context) ([]domain.PresenceRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT eid, timefrom, timeto, status, ip, mac, name, arp_name
		FROM network_history
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query network_history: %w", repository.ErrStorage, err)
	}
	defer rows.Close()

	var result []domain.PresenceRow
	for rows.Next() {
		var (
			row              domain.PresenceRow
			timeFrom, timeTo string
			status           string
			label            sql.NullString
		)
		if err := rows.Scan(&row.EntryID, &timeFrom, &timeTo, &status, &row.IP, &row.MAC, &label, &row.AdvertisedName); err != nil {
			return nil, fmt.Errorf("%w: scan network_history: %w", repository.ErrStorage, err)
		}

		if row.Status, err = domain.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
		}
		if row.TimeFrom, err = parseTime(timeFrom); err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
		}
		if row.TimeTo, err = parseTime(timeTo); err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
		}
		row.Label = nullToString(label)

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate network_history: %w", repository.ErrStorage, err)
	}
	return result, nil
}

// DeviceHistory returns every entry of one device ordered by start time
func (r *Repository) DeviceHistory(ctx context.Context, mac string) ([]domain.Entry, error) {
	mac = domain.CanonicalMAC(mac)

	device, err := scanDevice(r.db.QueryRowContext(ctx,
		`SELECT did, mac, name, arp_name FROM devices WHERE mac = ?`, mac))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", mac, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query device: %w", repository.ErrStorage, err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+entryJoins+`
		WHERE e.did = ?
		ORDER BY e.timefrom, e.eid
	`, device.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", repository.ErrStorage, err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
	}
	return entries, nil
}

// SetDeviceLabel stores the operator label of a device; an empty label clears it
func (r *Repository) SetDeviceLabel(ctx context.Context, mac, label string) error {
	mac = domain.CanonicalMAC(mac)

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = ? WHERE mac = ?`, stringToNull(label), mac)
	if err != nil {
		return fmt.Errorf("%w: update device label: %w", repository.ErrStorage, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", repository.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("device %s: %w", mac, repository.ErrNotFound)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// tx implements repository.Tx over a *sql.Tx
type tx struct {
	tx *sql.Tx
}

func (t *tx) FindIP(ctx context.Context, value string) (*domain.IPAddress, error) {
	ip := domain.IPAddress{Value: value}
	err := t.tx.QueryRowContext(ctx, `SELECT ipid FROM ip WHERE ip = ?`, value).Scan(&ip.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find ip %s: %w", repository.ErrStorage, value, err)
	}
	return &ip, nil
}

func (t *tx) InsertIP(ctx context.Context, value string) (*domain.IPAddress, error) {
	result, err := t.tx.ExecContext(ctx, `INSERT INTO ip (ip) VALUES (?)`, value)
	if err != nil {
		return nil, fmt.Errorf("%w: insert ip %s: %w", repository.ErrStorage, value, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: insert ip %s: %w", repository.ErrStorage, value, err)
	}
	return &domain.IPAddress{ID: id, Value: value}, nil
}

func (t *tx) FindStatus(ctx context.Context, status domain.Status) (*domain.StatusRecord, error) {
	rec := domain.StatusRecord{Status: status}
	err := t.tx.QueryRowContext(ctx, `SELECT sid FROM status WHERE status = ?`, status.String()).Scan(&rec.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find status %s: %w", repository.ErrStorage, status, err)
	}
	return &rec, nil
}

func (t *tx) InsertStatus(ctx context.Context, status domain.Status) (*domain.StatusRecord, error) {
	result, err := t.tx.ExecContext(ctx, `INSERT INTO status (status) VALUES (?)`, status.String())
	if err != nil {
		return nil, fmt.Errorf("%w: insert status %s: %w", repository.ErrStorage, status, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: insert status %s: %w", repository.ErrStorage, status, err)
	}
	return &domain.StatusRecord{ID: id, Status: status}, nil
}

func (t *tx) FindDevice(ctx context.Context, mac string) (*domain.Device, error) {
	device, err := scanDevice(t.tx.QueryRowContext(ctx,
		`SELECT did, mac, name, arp_name FROM devices WHERE mac = ?`, domain.CanonicalMAC(mac)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find device %s: %w", repository.ErrStorage, mac, err)
	}
	return device, nil
}

func (t *tx) InsertDevice(ctx context.Context, mac string) (*domain.Device, error) {
	mac = domain.CanonicalMAC(mac)

	result, err := t.tx.ExecContext(ctx, `INSERT INTO devices (mac) VALUES (?)`, mac)
	if err != nil {
		return nil, fmt.Errorf("%w: insert device %s: %w", repository.ErrStorage, mac, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: insert device %s: %w", repository.ErrStorage, mac, err)
	}
	return &domain.Device{ID: id, MAC: mac}, nil
}

func (t *tx) UpdateDeviceName(ctx context.Context, deviceID int64, name string) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE devices SET arp_name = ? WHERE did = ?`, name, deviceID); err != nil {
		return fmt.Errorf("%w: update device %d name: %w", repository.ErrStorage, deviceID, err)
	}
	return nil
}

func (t *tx) MaxTimeTo(ctx context.Context) (*time.Time, error) {
	var latest sql.NullString
	if err := t.tx.QueryRowContext(ctx, `SELECT max(timeto) FROM entry`).Scan(&latest); err != nil {
		return nil, fmt.Errorf("%w: max timeto: %w", repository.ErrStorage, err)
	}
	if !latest.Valid {
		return nil, nil
	}

	ts, err := parseTime(latest.String)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
	}
	return &ts, nil
}

func (t *tx) EntriesAt(ctx context.Context, timeTo time.Time) ([]domain.Entry, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+entryColumns+entryJoins+`
		WHERE e.timeto = ?
		ORDER BY e.eid
	`, formatTime(timeTo))
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", repository.ErrStorage, err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
	}
	return entries, nil
}

func (t *tx) InsertEntry(ctx context.Context, entry *domain.Entry) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO entry (timefrom, timeto, sid, ipid, did)
		VALUES (?, ?, ?, ?, ?)
	`, formatTime(entry.TimeFrom), formatTime(entry.TimeTo), entry.Status.ID, entry.IP.ID, entry.Device.ID)
	if err != nil {
		return fmt.Errorf("%w: insert entry for %s: %w", repository.ErrStorage, entry.Device.MAC, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: insert entry for %s: %w", repository.ErrStorage, entry.Device.MAC, err)
	}
	entry.ID = id
	return nil
}

func (t *tx) UpdateEntryTimeTo(ctx context.Context, entryID int64, timeTo time.Time) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE entry SET timeto = ? WHERE eid = ?`, formatTime(timeTo), entryID); err != nil {
		return fmt.Errorf("%w: extend entry %d: %w", repository.ErrStorage, entryID, err)
	}
	return nil
}

func (t *tx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrStorage, err)
	}
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return fmt.Errorf("%w: rollback: %w", repository.ErrStorage, err)
}
