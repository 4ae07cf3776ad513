package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is the embedded Store backend. Change events for local writes
// are published on an in-process feed after the write commits.
type SQLite struct {
	db   *sql.DB
	feed *notifier
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used
// by tests).
func OpenSQLite(dataDir string) (*SQLite, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "fieldops.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLite{db: db, feed: newNotifier()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *SQLite) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const customerColumns = `id, name, account_number, group_code, branch, principal, status,
	brand, model, license_plate, resus, authorization_date, commission, registration_id,
	work_group, field_team, installment, initial_bucket, current_bucket, cycle_day,
	engine_number, blue_book_price, address, latitude, longitude, hub_code,
	work_status, last_visit_result, team, created_at`

func scanCustomer(scan func(...any) error) (Customer, error) {
	var c Customer
	var createdAt string
	err := scan(
		&c.ID, &c.Name, &c.AccountNumber, &c.GroupCode, &c.Branch, &c.Principal, &c.Status,
		&c.Brand, &c.Model, &c.LicensePlate, &c.Resus, &c.AuthorizationDate, &c.Commission, &c.RegistrationID,
		&c.WorkGroup, &c.FieldTeam, &c.Installment, &c.InitialBucket, &c.CurrentBucket, &c.CycleDay,
		&c.EngineNumber, &c.BlueBookPrice, &c.Address, &c.Latitude, &c.Longitude, &c.HubCode,
		&c.WorkStatus, &c.LastVisitResult, &c.Team, &createdAt,
	)
	if err != nil {
		return Customer{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Customer{}, fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

func customerArgs(c Customer) []any {
	return []any{
		c.ID, c.Name, c.AccountNumber, c.GroupCode, c.Branch, c.Principal, c.Status,
		c.Brand, c.Model, c.LicensePlate, c.Resus, c.AuthorizationDate, c.Commission, c.RegistrationID,
		c.WorkGroup, c.FieldTeam, c.Installment, c.InitialBucket, c.CurrentBucket, c.CycleDay,
		c.EngineNumber, c.BlueBookPrice, c.Address, c.Latitude, c.Longitude, c.HubCode,
		c.WorkStatus, c.LastVisitResult, c.Team, c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List fetches the full collection ordered by creation time.
func (s *SQLite) List(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at ASC, id ASC`)
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

func (s *SQLite) Get(ctx context.Context, id string) (Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row.Scan)
	if err == sql.ErrNoRows {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func validateNewCustomer(c Customer) error {
	if c.ID != "" {
		return fmt.Errorf("%w: id must not be set on create", ErrConstraint)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrConstraint)
	}
	if c.AccountNumber == "" {
		return fmt.Errorf("%w: accountNumber is required", ErrConstraint)
	}
	return nil
}

func (s *SQLite) Create(ctx context.Context, c Customer) (Customer, error) {
	if err := validateNewCustomer(c); err != nil {
		return Customer{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC().Truncate(time.Second)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 30), ", ")
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES (`+placeholders+`)`,
		customerArgs(c)...,
	)
	if err != nil {
		return Customer{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.feed.publish(Event{Type: EventInsert, New: &c})
	return c, nil
}

func (s *SQLite) Update(ctx context.Context, id string, c Customer) (Customer, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}

	// ID and CreatedAt are immutable.
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	if c.Name == "" {
		return Customer{}, fmt.Errorf("%w: name is required", ErrConstraint)
	}
	if c.AccountNumber == "" {
		return Customer{}, fmt.Errorf("%w: accountNumber is required", ErrConstraint)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE customers SET
		name = ?, account_number = ?, group_code = ?, branch = ?, principal = ?, status = ?,
		brand = ?, model = ?, license_plate = ?, resus = ?, authorization_date = ?, commission = ?,
		registration_id = ?, work_group = ?, field_team = ?, installment = ?, initial_bucket = ?,
		current_bucket = ?, cycle_day = ?, engine_number = ?, blue_book_price = ?, address = ?,
		latitude = ?, longitude = ?, hub_code = ?, work_status = ?, last_visit_result = ?, team = ?
		WHERE id = ?`,
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

	s.feed.publish(Event{Type: EventUpdate, New: &c, Old: &existing})
	return c, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) (bool, error) {
	existing, err := s.Get(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	s.feed.publish(Event{Type: EventDelete, Old: &existing})
	return true, nil
}

// Subscribe registers fn on the in-process change feed.
func (s *SQLite) Subscribe(fn func(Event)) Subscription {
	return s.feed.subscribe(fn)
}

// --- Performance reports ---

func (s *SQLite) SaveReport(ctx context.Context, r PerformanceReport) (PerformanceReport, error) {
	if r.Team == "" || r.ReportDate == "" {
		return PerformanceReport{}, fmt.Errorf("%w: team and reportDate are required", ErrConstraint)
	}
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_reports (id, team, work_group, total_assigned, total_completed,
			total_cured, total_dr, total_repo, total_tap_deng, report_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Team, r.WorkGroup, r.TotalAssigned, r.TotalCompleted,
		r.TotalCured, r.TotalDR, r.TotalRepo, r.TotalTapDeng, r.ReportDate,
		r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return PerformanceReport{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r, nil
}

// ListReports returns reports ordered by report_date descending. from and
// to (YYYY-MM-DD, inclusive) are optional; empty means unbounded.
func (s *SQLite) ListReports(ctx context.Context, from, to string) ([]PerformanceReport, error) {
	query := `SELECT id, team, work_group, total_assigned, total_completed,
		total_cured, total_dr, total_repo, total_tap_deng, report_date, created_at
		FROM performance_reports`
	var conds []string
	var args []any
	if from != "" {
		conds = append(conds, "report_date >= ?")
		args = append(args, from)
	}
	if to != "" {
		conds = append(conds, "report_date <= ?")
		args = append(args, to)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY report_date DESC, created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
