package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/residuals-cli/internal/db"
	"github.com/sells-group/residuals-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	revenue       DOUBLE PRECISION NOT NULL DEFAULT 0,
	volume        DOUBLE PRECISION NOT NULL DEFAULT 0,
	transactions  INTEGER NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (month, merchant_id, processor_id)
);

CREATE TABLE IF NOT EXISTS assignments (
	merchant_id TEXT NOT NULL,
	role_id     TEXT NOT NULL,
	month       TEXT NOT NULL,
	percentage  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (merchant_id, role_id, month)
);

CREATE TABLE IF NOT EXISTS processor_progress (
	month        TEXT NOT NULL,
	processor_id TEXT NOT NULL REFERENCES processors(id),
	record_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (month, processor_id)
);

CREATE INDEX IF NOT EXISTS idx_revenue_month ON revenue(month);
CREATE INDEX IF NOT EXISTS idx_assignments_month ON assignments(month);
CREATE INDEX IF NOT EXISTS idx_assignments_merchant_month ON assignments(merchant_id, month);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindOrCreateMerchant(ctx context.Context, mid, name string) (*model.Merchant, error) {
	if mid == "" {
		return nil, eris.New("postgres: merchant mid is required")
	}
	var m model.Merchant
	err := s.pool.QueryRow(ctx, `
		INSERT INTO merchants (id, mid, name) VALUES ($1, $2, $3)
		ON CONFLICT (mid) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name != '' THEN EXCLUDED.name ELSE merchants.name END
		RETURNING id, mid, name`,
		uuid.New().String(), mid, name,
	).Scan(&m.ID, &m.MID, &m.Name)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find or create merchant %s", mid)
	}
	return &m, nil
}

func (s *PostgresStore) FindOrCreateProcessor(ctx context.Context, name string) (*model.Processor, error) {
	if name == "" {
		return nil, eris.New("postgres: processor name is required")
	}
	var p model.Processor
	err := s.pool.QueryRow(ctx, `
		INSERT INTO processors (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`,
		uuid.New().String(), name,
	).Scan(&p.ID, &p.Name)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find or create processor %s", name)
	}
	return &p, nil
}

var revenueColumns = []string{
	"month", "merchant_id", "processor_id", "merchant_name",
	"revenue", "volume", "transactions", "updated_at",
}

func (s *PostgresStore) UpsertRevenue(ctx context.Context, entries []model.RevenueEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.Month, e.MerchantID, e.ProcessorID, e.MerchantName,
			e.Revenue, e.Volume, e.Transactions, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "revenue",
		Columns:      revenueColumns,
		ConflictKeys: []string{"month", "merchant_id", "processor_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert revenue")
	}
	return int(n), nil
}

func (s *PostgresStore) ListRevenue(ctx context.Context, month string, filter RevenueFilter) ([]model.RevenueEntry, error) {
	query := `
		SELECT r.month, r.merchant_id, m.mid, r.merchant_name, r.processor_id, p.name,
		       r.revenue, r.volume, r.transactions
		FROM revenue r
		JOIN merchants m ON m.id = r.merchant_id
		JOIN processors p ON p.id = r.processor_id
		WHERE r.month = $1`
	args := []any{month}

	if filter.Processor != "" {
		args = append(args, filter.Processor)
		query += ` AND LOWER(p.name) = LOWER($2)`
	}
	if filter.MinRevenue != nil {
		args = append(args, *filter.MinRevenue)
		query += ` AND r.revenue >= $` + strconv.Itoa(len(args))
	}
	if filter.MaxRevenue != nil {
		args = append(args, *filter.MaxRevenue)
		query += ` AND r.revenue <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY p.name, m.mid`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list revenue")
	}
	defer rows.Close()

	var entries []model.RevenueEntry
	for rows.Next() {
		var e model.RevenueEntry
		if err := rows.Scan(
			&e.Month, &e.MerchantID, &e.MID, &e.MerchantName, &e.ProcessorID, &e.ProcessorName,
			&e.Revenue, &e.Volume, &e.Transactions,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan revenue")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list revenue iterate")
}

func (s *PostgresStore) UpsertProgress(ctx context.Context, p model.ImportProgress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processor_progress (month, processor_id, record_count, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (month, processor_id) DO UPDATE SET
			record_count = EXCLUDED.record_count,
			status       = EXCLUDED.status,
			updated_at   = EXCLUDED.updated_at`,
		p.Month, p.ProcessorID, p.RecordCount, string(p.Status), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert progress %s/%s", p.Month, p.ProcessorID)
}

func (s *PostgresStore) GetProgress(ctx context.Context, month, processorID string) (*model.ImportProgress, error) {
	var p model.ImportProgress
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT month, processor_id, record_count, status, updated_at
		FROM processor_progress WHERE month = $1 AND processor_id = $2`,
		month, processorID,
	).Scan(&p.Month, &p.ProcessorID, &p.RecordCount, &status, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get progress")
	}
	p.Status = model.ProgressStatus(status)
	return &p, nil
}

// ReplaceAssignments deletes all assignment rows for the targeted merchants
// and month, then inserts the new set, inside one transaction so a failure
// cannot leave a merchant stripped of its splits.
func (s *PostgresStore) ReplaceAssignments(ctx context.Context, month string, merchantIDs []string, rows []model.Assignment) (int, error) {
	if len(merchantIDs) == 0 {
		return 0, eris.New("postgres: replace assignments: no merchants targeted")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace assignments")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM assignments WHERE month = $1 AND merchant_id = ANY($2)`,
		month, merchantIDs,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: delete assignments")
	}

	for _, a := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO assignments (merchant_id, role_id, month, percentage) VALUES ($1, $2, $3, $4)`,
			a.MerchantID, a.RoleID, a.Month, a.Percentage,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: insert assignment %s/%s", a.MerchantID, a.RoleID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit replace assignments")
	}
	return len(rows), nil
}

func (s *PostgresStore) ListAssignments(ctx context.Context, month string, merchantIDs []string) ([]model.Assignment, error) {
	query := `SELECT merchant_id, role_id, month, percentage FROM assignments WHERE month = $1`
	args := []any{month}
	if len(merchantIDs) > 0 {
		query += ` AND merchant_id = ANY($2)`
		args = append(args, merchantIDs)
	}
	query += ` ORDER BY merchant_id, role_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assignments")
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.MerchantID, &a.RoleID, &a.Month, &a.Percentage); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assignments iterate")
}
