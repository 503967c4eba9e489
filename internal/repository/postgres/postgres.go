package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"nettracker/internal/domain"
	"nettracker/internal/repository"
)

// DefaultSchema is the namespace the tables live in unless configured otherwise
const DefaultSchema = "network"

// Repository implements repository.Store using PostgreSQL
type Repository struct {
	pool   *pgxpool.Pool
	schema string
	n      names
}

var _ repository.Store = (*Repository)(nil)

// names holds the sanitized, schema-qualified identifiers
type names struct {
	schema   string
	ip       string
	status   string
	devices  string
	entry    string
	view     string
	function string
}

func newNames(schema string) names {
	q := func(name string) string { return pgx.Identifier{schema, name}.Sanitize() }
	return names{
		schema:   pgx.Identifier{schema}.Sanitize(),
		ip:       q("ip"),
		status:   q("status"),
		devices:  q("devices"),
		entry:    q("entry"),
		view:     q("network_history"),
		function: q("uppercase_mac_on_insert"),
	}
}

// New connects to databaseURL and returns a repository for the given schema
func New(ctx context.Context, databaseURL, schema string, log zerolog.Logger) (*Repository, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: database url is not set", repository.ErrStorage)
	}
	if schema == "" {
		schema = DefaultSchema
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse database config: %w", repository.ErrStorage, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create connection pool: %w", repository.ErrStorage, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: unable to connect to database: %w", repository.ErrStorage, err)
	}

	log.Info().
		Str("host", config.ConnConfig.Host).
		Uint16("port", config.ConnConfig.Port).
		Str("schema", schema).
		Int32("max_conns", config.MaxConns).
		Msg("connected to postgres")

	return &Repository{pool: pool, schema: schema, n: newNames(schema)}, nil
}

// CreateSchema creates the namespace, tables, trigger and view in one
// transaction. Existing tables make it fail with repository.ErrSchema.
func (r *Repository) CreateSchema(ctx context.Context) error {
	n := r.n
	ddl := fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS %[1]s;

		CREATE TABLE %[2]s (
			ipid SERIAL PRIMARY KEY,
			ip TEXT NOT NULL UNIQUE
		);

		CREATE TABLE %[3]s (
			sid SERIAL PRIMARY KEY,
			status TEXT NOT NULL UNIQUE
		);

		CREATE TABLE %[4]s (
			did SERIAL PRIMARY KEY,
			mac TEXT NOT NULL UNIQUE,
			name TEXT,
			arp_name TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE %[5]s (
			eid BIGSERIAL PRIMARY KEY,
			timefrom TIMESTAMPTZ NOT NULL DEFAULT date_trunc('second', now()),
			timeto TIMESTAMPTZ NOT NULL DEFAULT date_trunc('second', now()),
			sid INTEGER NOT NULL REFERENCES %[3]s(sid),
			ipid INTEGER NOT NULL REFERENCES %[2]s(ipid),
			did INTEGER NOT NULL REFERENCES %[4]s(did),
			CHECK (timefrom <= timeto)
		);

		CREATE INDEX entry_timeto_idx ON %[5]s (timeto);
		CREATE INDEX entry_did_idx ON %[5]s (did);

		CREATE OR REPLACE FUNCTION %[7]s() RETURNS trigger AS $uppercase_mac$
			BEGIN
				NEW.mac = upper(NEW.mac);
				RETURN NEW;
			END;
		$uppercase_mac$ LANGUAGE plpgsql;

		CREATE TRIGGER uppercase_mac_on_insert_trigger BEFORE INSERT OR UPDATE ON %[4]s
			FOR EACH ROW EXECUTE PROCEDURE %[7]s();

		CREATE VIEW %[6]s AS
			SELECT
				e.eid,
				e.timefrom,
				e.timeto,
				s.status,
				ip.ip,
				d.mac,
				d.name,
				d.arp_name
			FROM %[5]s e
			JOIN %[3]s s ON s.sid = e.sid
			JOIN %[2]s ip ON ip.ipid = e.ipid
			JOIN %[4]s d ON d.did = e.did
			WHERE e.timeto = (SELECT max(timeto) FROM %[5]s)
			ORDER BY regexp_replace(ip.ip, '.*\.', '')::int, e.eid;
	`, n.schema, n.ip, n.status, n.devices, n.entry, n.view, n.function)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", repository.ErrSchema, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create tables in %s: %w", repository.ErrSchema, r.schema, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrSchema, err)
	}
	return nil
}

// DropSchema drops the view, tables and trigger function. The namespace
// itself is left in place.
func (r *Repository) DropSchema(ctx context.Context) error {
	n := r.n
	ddl := fmt.Sprintf(`
		DROP VIEW IF EXISTS %[1]s;
		DROP TABLE IF EXISTS %[2]s;
		DROP TABLE IF EXISTS %[3]s;
		DROP TABLE IF EXISTS %[4]s;
		DROP TABLE IF EXISTS %[5]s;
		DROP FUNCTION IF EXISTS %[6]s();
	`, n.view, n.entry, n.devices, n.status, n.ip, n.function)

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: drop tables in %s: %w", repository.ErrSchema, r.schema, err)
	}
	return nil
}

// Begin starts the transaction for one pass
func (r *Repository) Begin(ctx context.Context) (repository.Tx, error) {
	pgTx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", repository.ErrStorage, err)
	}
	return &tx{tx: pgTx, n: r.n}, nil
}

// LatestState reads the network_history view
func (r *Repository) LatestState(ctx context.Context) ([]domain.PresenceRow, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT eid, timefrom, timeto, status, ip, mac, name, arp_name
		FROM %s
	`, r.n.view))
	if err != nil {
		return nil, fmt.Errorf("%w: query network_history: %w", repository.ErrStorage, err)
	}
	defer rows.Close()

	var result []domain.PresenceRow
	for rows.Next() {
		var (
			row    domain.PresenceRow
			status string
			label  *string
		)
		if err := rows.Scan(&row.EntryID, &row.TimeFrom, &row.TimeTo, &status, &row.IP, &row.MAC, &label, &row.AdvertisedName); err != nil {
			return nil, fmt.Errorf("%w: scan network_history: %w", repository.ErrStorage, err)
		}

		if row.Status, err = domain.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
		}
		row.TimeFrom = row.TimeFrom.UTC()
		row.TimeTo = row.TimeTo.UTC()
		row.Label = derefString(label)

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

	device, err := scanDevice(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT did, mac, name, arp_name FROM %s WHERE mac = $1`, r.n.devices), mac))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", mac, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query device: %w", repository.ErrStorage, err)
	}

	rows, err := r.pool.Query(ctx, r.n.entrySelect()+`
		WHERE e.did = $1
		ORDER BY e.timefrom, e.eid
	`, device.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", repository.ErrStorage, err)
	}

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
	}
	return entries, nil
}

// SetDeviceLabel stores the operator label of a device; an empty label clears it
func (r *Repository) SetDeviceLabel(ctx context.Context, mac, label string) error {
	mac = domain.CanonicalMAC(mac)

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET name = $1 WHERE mac = $2`, r.n.devices), nullableString(label), mac)
	if err != nil {
		return fmt.Errorf("%w: update device label: %w", repository.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device %s: %w", mac, repository.ErrNotFound)
	}
	return nil
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// tx implements repository.Tx over a pgx.Tx
type tx struct {
	tx pgx.Tx
	n  names
}

func (t *tx) FindIP(ctx context.Context, value string) (*domain.IPAddress, error) {
	ip := domain.IPAddress{Value: value}
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`SELECT ipid FROM %s WHERE ip = $1`, t.n.ip), value).Scan(&ip.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find ip %s: %w", repository.ErrStorage, value, err)
	}
	return &ip, nil
}

func (t *tx) InsertIP(ctx context.Context, value string) (*domain.IPAddress, error) {
	ip := domain.IPAddress{Value: value}
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (ip) VALUES ($1) RETURNING ipid`, t.n.ip), value).Scan(&ip.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: insert ip %s: %w", repository.ErrStorage, value, err)
	}
	return &ip, nil
}

func (t *tx) FindStatus(ctx context.Context, status domain.Status) (*domain.StatusRecord, error) {
	rec := domain.StatusRecord{Status: status}
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`SELECT sid FROM %s WHERE status = $1`, t.n.status), status.String()).Scan(&rec.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find status %s: %w", repository.ErrStorage, status, err)
	}
	return &rec, nil
}

func (t *tx) InsertStatus(ctx context.Context, status domain.Status) (*domain.StatusRecord, error) {
	rec := domain.StatusRecord{Status: status}
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (status) VALUES ($1) RETURNING sid`, t.n.status), status.String()).Scan(&rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: insert status %s: %w", repository.ErrStorage, status, err)
	}
	return &rec, nil
}

func (t *tx) FindDevice(ctx context.Context, mac string) (*domain.Device, error) {
	device, err := scanDevice(t.tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT did, mac, name, arp_name FROM %s WHERE mac = $1`, t.n.devices), domain.CanonicalMAC(mac)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find device %s: %w", repository.ErrStorage, mac, err)
	}
	return device, nil
}

func (t *tx) InsertDevice(ctx context.Context, mac string) (*domain.Device, error) {
	device := domain.Device{MAC: domain.CanonicalMAC(mac)}
	err := t.tx.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (mac) VALUES ($1) RETURNING did`, t.n.devices), device.MAC).Scan(&device.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: insert device %s: %w", repository.ErrStorage, device.MAC, err)
	}
	return &device, nil
}

func (t *tx) UpdateDeviceName(ctx context.Context, deviceID int64, name string) error {
	if _, err := t.tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET arp_name = $1 WHERE did = $2`, t.n.devices), name, deviceID); err != nil {
		return fmt.Errorf("%w: update device %d name: %w", repository.ErrStorage, deviceID, err)
	}
	return nil
}

func (t *tx) MaxTimeTo(ctx context.Context) (*time.Time, error) {
	var latest *time.Time
	if err := t.tx.QueryRow(ctx, fmt.Sprintf(`SELECT max(timeto) FROM %s`, t.n.entry)).Scan(&latest); err != nil {
		return nil, fmt.Errorf("%w: max timeto: %w", repository.ErrStorage, err)
	}
	if latest == nil {
		return nil, nil
	}

	ts := latest.UTC()
	return &ts, nil
}

func (t *tx) EntriesAt(ctx context.Context, timeTo time.Time) ([]domain.Entry, error) {
	rows, err := t.tx.Query(ctx, t.n.entrySelect()+`
		WHERE e.timeto = $1
		ORDER BY e.eid
	`, domain.NormalizeTime(timeTo))
	if err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", repository.ErrStorage, err)
	}

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrStorage, err)
	}
	return entries, nil
}

func (t *tx) InsertEntry(ctx context.Context, entry *domain.Entry) error {
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (timefrom, timeto, sid, ipid, did)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING eid
	`, t.n.entry),
		domain.NormalizeTime(entry.TimeFrom),
		domain.NormalizeTime(entry.TimeTo),
		entry.Status.ID,
		entry.IP.ID,
		entry.Device.ID,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("%w: insert entry for %s: %w", repository.ErrStorage, entry.Device.MAC, err)
	}
	return nil
}

func (t *tx) UpdateEntryTimeTo(ctx context.Context, entryID int64, timeTo time.Time) error {
	if _, err := t.tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET timeto = $1 WHERE eid = $2`, t.n.entry),
		domain.NormalizeTime(timeTo), entryID); err != nil {
		return fmt.Errorf("%w: extend entry %d: %w", repository.ErrStorage, entryID, err)
	}
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", repository.ErrStorage, err)
	}
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return fmt.Errorf("%w: rollback: %w", repository.ErrStorage, err)
}
