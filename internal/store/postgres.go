package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// notifyChannel is the Postgres NOTIFY channel carrying row changes.
// Payloads hold only the event type and row id; the listener re-fetches
// the row, keeping payloads under the NOTIFY size limit regardless of
// row width.
const notifyChannel = "customers_events"

// Postgres is the hosted Store backend. Row changes are broadcast by a
// table trigger via LISTEN/NOTIFY, so writes from other clients of the
// same database surface on the feed too.
type Postgres struct {
	db     *sql.DB
	feed   *notifier
	url    string
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

const postgresDDL = `
CREATE TABLE IF NOT EXISTS customers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    account_number TEXT NOT NULL,
    group_code TEXT NOT NULL DEFAULT '',
    branch TEXT NOT NULL DEFAULT '',
    principal DOUBLE PRECISION NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT '',
    brand TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    license_plate TEXT NOT NULL DEFAULT '',
    resus TEXT NOT NULL DEFAULT '',
    authorization_date TEXT NOT NULL DEFAULT '',
    commission DOUBLE PRECISION NOT NULL DEFAULT 0,
    registration_id TEXT NOT NULL DEFAULT '',
    work_group TEXT NOT NULL DEFAULT '',
    field_team TEXT NOT NULL DEFAULT '',
    installment DOUBLE PRECISION NOT NULL DEFAULT 0,
    initial_bucket TEXT NOT NULL DEFAULT '',
    current_bucket TEXT NOT NULL DEFAULT '',
    cycle_day TEXT NOT NULL DEFAULT '',
    engine_number TEXT NOT NULL DEFAULT '',
    blue_book_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    address TEXT NOT NULL DEFAULT '',
    latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
    longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
    hub_code TEXT NOT NULL DEFAULT '',
    work_status TEXT NOT NULL DEFAULT '',
    last_visit_result TEXT NOT NULL DEFAULT '',
    team TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_customers_account_number ON customers(account_number);

CREATE TABLE IF NOT EXISTS performance_reports (
    id TEXT PRIMARY KEY,
    team TEXT NOT NULL,
    work_group TEXT NOT NULL,
    total_assigned INTEGER NOT NULL DEFAULT 0,
    total_completed INTEGER NOT NULL DEFAULT 0,
    total_cured INTEGER NOT NULL DEFAULT 0,
    total_dr INTEGER NOT NULL DEFAULT 0,
    total_repo INTEGER NOT NULL DEFAULT 0,
    total_tap_deng INTEGER NOT NULL DEFAULT 0,
    report_date TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE OR REPLACE FUNCTION customers_notify() RETURNS trigger AS $$
DECLARE
    payload TEXT;
BEGIN
    IF TG_OP = 'DELETE' THEN
        payload := json_build_object('type', 'delete', 'id', OLD.id)::text;
    ELSIF TG_OP = 'UPDATE' THEN
        payload := json_build_object('type', 'update', 'id', NEW.id)::text;
    ELSE
        payload := json_build_object('type', 'insert', 'id', NEW.id)::text;
    END IF;
    PERFORM pg_notify('customers_events', payload);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS customers_notify_trigger ON customers;
CREATE TRIGGER customers_notify_trigger
    AFTER INSERT OR UPDATE OR DELETE ON customers
    FOR EACH ROW EXECUTE FUNCTION customers_notify();
`

// OpenPostgres connects to the hosted database, ensures the schema and
// change trigger exist, and starts the notification listener.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, postgresDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	p := &Postgres{
		db:     db,
		feed:   newNotifier(),
		url:    url,
		cancel: cancel,
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	go p.listen(listenCtx)
	return p, nil
}

// Close stops the listener and closes the pool. Idempotent.
func (p *Postgres) Close() error {
	p.cancel()
	<-p.done
	return p.db.Close()
}

// listen holds the dedicated LISTEN connection and republishes incoming
// notifications on the local feed. The connection is re-established after
// failures; delivery stays at-least-once from the subscriber's view.
func (p *Postgres) listen(ctx context.Context) {
	defer close(p.done)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.listenOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("change feed connection lost, reconnecting", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (p *Postgres) listenOnce(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, p.url)
	if err != nil {
		return fmt.Errorf("connecting listener: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listening on %s: %w", notifyChannel, err)
	}

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		p.dispatch(ctx, notification.Payload)
	}
}

type notifyPayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// dispatch turns an id-only NOTIFY payload into a full Event. Insert and
// update re-fetch the row; a row already gone by fetch time is dropped
// (the matching delete notification follows).
func (p *Postgres) dispatch(ctx context.Context, payload string) {
	var np notifyPayload
	if err := json.Unmarshal([]byte(payload), &np); err != nil {
		p.logger.Warn("malformed change notification", "payload", payload, "error", err)
		return
	}

	switch EventType(np.Type) {
	case EventDelete:
		p.feed.publish(Event{Type: EventDelete, Old: &Customer{ID: np.ID}})
	case EventInsert, EventUpdate:
		c, err := p.Get(ctx, np.ID)
		if err == ErrNotFound {
			return
		}
		if err != nil {
			p.logger.Warn("fetching changed row", "id", np.ID, "error", err)
			return
		}
		p.feed.publish(Event{Type: EventType(np.Type), New: &c})
	default:
		p.logger.Warn("unknown change notification type", "type", np.Type)
	}
}

func (p *Postgres) List(ctx context.Context) ([]Customer, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id string) (Customer, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row.Scan)
	if err == sql.ErrNoRows {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func postgresPlaceholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func (p *Postgres) Create(ctx context.Context, c Customer) (Customer, error) {
	if err := validateNewCustomer(c); err != nil {
		return Customer{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES (`+postgresPlaceholders(30)+`)`,
		customerArgs(c)...,
	)
	if err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	// The local echo arrives through LISTEN/NOTIFY like any other write.
	return c, nil
}

func (p *Postgres) Update(ctx context.Context, id string, c Customer) (Customer, error) {
	existing, err := p.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}

	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	if c.Name == "" {
		return Customer{}, fmt.Errorf("%w: name is required", ErrConstraint)
	}
	if c.AccountNumber == "" {
		return Customer{}, fmt.Errorf("%w: accountNumber is required", ErrConstraint)
	}

	_, err = p.db.ExecContext(ctx, `UPDATE customers SET
		name = $1, account_number = $2, group_code = $3, branch = $4, principal = $5, status = $6,
		brand = $7, model = $8, license_plate = $9, resus = $10, authorization_date = $11, commission = $12,
		registration_id = $13, work_group = $14, field_team = $15, installment = $16, initial_bucket = $17,
		current_bucket = $18, cycle_day = $19, engine_number = $20, blue_book_price = $21, address = $22,
		latitude = $23, longitude = $24, hub_code = $25, work_status = $26, last_visit_result = $27, team = $28
		WHERE id = $29`,
		c.Name, c.AccountNumber, c.GroupCode, c.Branch, c.Principal, c.Status,
		c.Brand, c.Model, c.LicensePlate, c.Resus, c.AuthorizationDate, c.Commission,
		c.RegistrationID, c.WorkGroup, c.FieldTeam, c.Installment, c.InitialBucket,
		c.CurrentBucket, c.CycleDay, c.EngineNumber, c.BlueBookPrice, c.Address,
		c.Latitude, c.Longitude, c.HubCode, c.WorkStatus, c.LastVisitResult, c.Team,
		id,
	)
	if err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return c, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Postgres) Subscribe(fn func(Event)) Subscription {
	return p.feed.subscribe(fn)
}

func (p *Postgres) SaveReport(ctx context.Context, r PerformanceReport) (PerformanceReport, error) {
	if r.Team == "" || r.ReportDate == "" {
		return PerformanceReport{}, fmt.Errorf("%w: team and reportDate are required", ErrConstraint)
	}
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO performance_reports (id, team, work_group, total_assigned, total_completed,
			total_cured, total_dr, total_repo, total_tap_deng, report_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.Team, r.WorkGroup, r.TotalAssigned, r.TotalCompleted,
		r.TotalCured, r.TotalDR, r.TotalRepo, r.TotalTapDeng, r.ReportDate,
		r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return PerformanceReport{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r, nil
}

func (p *Postgres) ListReports(ctx context.Context, from, to string) ([]PerformanceReport, error) {
	query := `SELECT id, team, work_group, total_assigned, total_completed,
		total_cured, total_dr, total_repo, total_tap_deng, report_date, created_at
		FROM performance_reports`
	var conds []string
	var args []any
	if from != "" {
		args = append(args, from)
		conds = append(conds, fmt.Sprintf("report_date >= $%d", len(args)))
	}
	if to != "" {
		args = append(args, to)
		conds = append(conds, fmt.Sprintf("report_date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY report_date DESC, created_at DESC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []PerformanceReport
	for rows.Next() {
		var r PerformanceReport
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Team, &r.WorkGroup, &r.TotalAssigned, &r.TotalCompleted,
			&r.TotalCured, &r.TotalDR, &r.TotalRepo, &r.TotalTapDeng, &r.ReportDate, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}
