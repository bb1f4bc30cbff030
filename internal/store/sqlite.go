package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/residuals-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS merchants (
	id   TEXT PRIMARY KEY,
	mid  TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS processors (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS revenue (
	month         TEXT NOT NULL,
	merchant_id   TEXT NOT NULL REFERENCES merchants(id),
	processor_id  TEXT NOT NULL REFERENCES processors(id),
	merchant_name TEXT NOT NULL DEFAULT '',
	revenue       REAL NOT NULL DEFAULT 0,
	volume        REAL NOT NULL DEFAULT 0,
	transactions  INTEGER NOT NULL DEFAULT 0,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (month, merchant_id, processor_id)
);

CREATE TABLE IF NOT EXISTS assignments (
	merchant_id TEXT NOT NULL,
	role_id     TEXT NOT NULL,
	month       TEXT NOT NULL,
	percentage  REAL NOT NULL,
	PRIMARY KEY (merchant_id, role_id, month)
);

CREATE TABLE IF NOT EXISTS processor_progress (
	month        TEXT NOT NULL,
	processor_id TEXT NOT NULL REFERENCES processors(id),
	record_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (month, processor_id)
);

CREATE INDEX IF NOT EXISTS idx_revenue_month ON revenue(month);
CREATE INDEX IF NOT EXISTS idx_assignments_month ON assignments(month);
CREATE INDEX IF NOT EXISTS idx_assignments_merchant_month ON assignments(merchant_id, month);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindOrCreateMerchant(ctx context.Context, mid, name string) (*model.Merchant, error) {
	if mid == "" {
		return nil, eris.New("sqlite: merchant mid is required")
	}
	var m model.Merchant
	// DO UPDATE (rather than DO NOTHING) so RETURNING always yields the
	// row; the latest non-empty name wins.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO merchants (id, mid, name) VALUES (?, ?, ?)
		ON CONFLICT(mid) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE merchants.name END
		RETURNING id, mid, name`,
		uuid.New().String(), mid, name,
	).Scan(&m.ID, &m.MID, &m.Name)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find or create merchant %s", mid)
	}
	return &m, nil
}

func (s *SQLiteStore) FindOrCreateProcessor(ctx context.Context, name string) (*model.Processor, error) {
	if name == "" {
		return nil, eris.New("sqlite: processor name is required")
	}
	var p model.Processor
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO processors (id, name) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET name = excluded.name
		RETURNING id, name`,
		uuid.New().String(), name,
	).Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find or create processor %s", name)
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertRevenue(ctx context.Context, entries []model.RevenueEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert revenue")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO revenue (month, merchant_id, processor_id, merchant_name, revenue, volume, transactions, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(month, merchant_id, processor_id) DO UPDATE SET
			merchant_name = excluded.merchant_name,
			revenue       = excluded.revenue,
			volume        = excluded.volume,
			transactions  = excluded.transactions,
			updated_at    = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert revenue")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.Month, e.MerchantID, e.ProcessorID, e.MerchantName,
			e.Revenue, e.Volume, e.Transactions, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert revenue %s/%s", e.Month, e.MerchantID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert revenue")
	}
	return len(entries), nil
}

func (s *SQLiteStore) ListRevenue(ctx context.Context, month string, filter RevenueFilter) ([]model.RevenueEntry, error) {
	query := `
		SELECT r.month, r.merchant_id, m.mid, r.merchant_name, r.processor_id, p.name,
		       r.revenue, r.volume, r.transactions
		FROM revenue r
		JOIN merchants m ON m.id = r.merchant_id
		JOIN processors p ON p.id = r.processor_id
		WHERE r.month = ?`
	args := []any{month}

	if filter.Processor != "" {
		query += ` AND LOWER(p.name) = LOWER(?)`
		args = append(args, filter.Processor)
	}
	if filter.MinRevenue != nil {
		query += ` AND r.revenue >= ?`
		args = append(args, *filter.MinRevenue)
	}
	if filter.MaxRevenue != nil {
		query += ` AND r.revenue <= ?`
		args = append(args, *filter.MaxRevenue)
	}
	query += ` ORDER BY p.name, m.mid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list revenue")
	}
	defer rows.Close()

	var entries []model.RevenueEntry
	for rows.Next() {
		var e model.RevenueEntry
		if err := rows.Scan(
			&e.Month, &e.MerchantID, &e.MID, &e.MerchantName, &e.ProcessorID, &e.ProcessorName,
			&e.Revenue, &e.Volume, &e.Transactions,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan revenue")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list revenue iterate")
}

func (s *SQLiteStore) UpsertProgress(ctx context.Context, p model.ImportProgress) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processor_progress (month, processor_id, record_count, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(month, processor_id) DO UPDATE SET
			record_count = excluded.record_count,
			status       = excluded.status,
			updated_at   = excluded.updated_at`,
		p.Month, p.ProcessorID, p.RecordCount, string(p.Status), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert progress %s/%s", p.Month, p.ProcessorID)
}

func (s *SQLiteStore) GetProgress(ctx context.Context, month, processorID string) (*model.ImportProgress, error) {
	var p model.ImportProgress
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT month, processor_id, record_count, status, updated_at
		FROM processor_progress WHERE month = ? AND processor_id = ?`,
		month, processorID,
	).Scan(&p.Month, &p.ProcessorID, &p.RecordCount, &status, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get progress")
	}
	p.Status = model.ProgressStatus(status)
	return &p, nil
}

// ReplaceAssignments deletes all assignment rows for the targeted merchants
// and month, then inserts the new set, inside one transaction so a failure
// cannot leave a merchant stripped of its splits.
func (s *SQLiteStore) ReplaceAssignments(ctx context.Context, month string, merchantIDs []string, rows []model.Assignment) (int, error) {
	if len(merchantIDs) == 0 {
		return 0, eris.New("sqlite: replace assignments: no merchants targeted")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace assignments")
	}
	defer tx.Rollback() //nolint:errcheck

	delQuery := `DELETE FROM assignments WHERE month = ? AND merchant_id IN (` + placeholders(len(merchantIDs)) + `)`
	delArgs := make([]any, 0, len(merchantIDs)+1)
	delArgs = append(delArgs, month)
	for _, id := range merchantIDs {
		delArgs = append(delArgs, id)
	}
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete assignments")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assignments (merchant_id, role_id, month, percentage) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert assignments")
	}
	defer stmt.Close()

	for _, a := range rows {
		if _, err := stmt.ExecContext(ctx, a.MerchantID, a.RoleID, a.Month, a.Percentage); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert assignment %s/%s", a.MerchantID, a.RoleID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit replace assignments")
	}
	return len(rows), nil
}

func (s *SQLiteStore) ListAssignments(ctx context.Context, month string, merchantIDs []string) ([]model.Assignment, error) {
	query := `SELECT merchant_id, role_id, month, percentage FROM assignments WHERE month = ?`
	args := []any{month}
	if len(merchantIDs) > 0 {
		query += ` AND merchant_id IN (` + placeholders(len(merchantIDs)) + `)`
		for _, id := range merchantIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY merchant_id, role_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.MerchantID, &a.RoleID, &a.Month, &a.Percentage); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assignments iterate")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
