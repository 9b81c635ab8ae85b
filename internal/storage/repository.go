package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createResultsTableSQL = `CREATE TABLE IF NOT EXISTS implied_inflation_results (
        reference_date        DATE        NOT NULL,
        bond_type             TEXT        NOT NULL,
        maturity_date         DATE        NOT NULL,
        fixed_rate            NUMERIC     NOT NULL,
        ipca_bond_type        TEXT        NOT NULL,
        ipca_maturity_date    DATE        NOT NULL,
        ipca_rate             NUMERIC     NOT NULL,
        match_distance        BIGINT      NOT NULL,
        implied_inflation     NUMERIC     NOT NULL,
        target_maturity       DATE,
        interpolated_rate     NUMERIC,
        interpolated_implied  NUMERIC,
        metric                TEXT        NOT NULL,
        created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (reference_date, bond_type, maturity_date)
    );`

	deleteResultsForDateSQL = `DELETE FROM implied_inflation_results WHERE reference_date = $1;`

	insertResultSQL = `INSERT INTO implied_inflation_results (
        reference_date,
        bond_type,
        maturity_date,
        fixed_rate,
        ipca_bond_type,
        ipca_maturity_date,
        ipca_rate,
        match_distance,
        implied_inflation,
        target_maturity,
        interpolated_rate,
        interpolated_implied,
        metric
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    );`

	listResultsSQL = `SELECT
        reference_date,
        bond_type,
        maturity_date,
        fixed_rate::text,
        ipca_bond_type,
        ipca_maturity_date,
        ipca_rate::text,
        match_distance,
        implied_inflation::text,
        target_maturity,
        interpolated_rate::text,
        interpolated_implied::text,
        metric,
        created_at
    FROM implied_inflation_results
    WHERE reference_date = $1
    ORDER BY maturity_date, bond_type;`

	listReferenceDatesSQL = `SELECT
        reference_date,
        COUNT(*),
        MIN(implied_inflation)::text,
        MAX(implied_inflation)::text
    FROM implied_inflation_results
    GROUP BY reference_date
    ORDER BY reference_date DESC
    LIMIT $1;`

	countResultsSQL = `SELECT COUNT(*) FROM implied_inflation_results;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ResultStore defines operations for implied-inflation persistence.
type ResultStore interface {
	ReplaceResults(ctx context.Context, referenceDate time.Time, records []ResultRecord) error
	ListResults(ctx context.Context, referenceDate time.Time) ([]ResultRecord, error)
	ListReferenceDates(ctx context.Context, limit int) ([]DateSummary, error)
	CountResults(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides access to persisted results.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the results table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createResultsTableSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the session lock also drops when the connection closes
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// ReplaceResults swaps every stored row for referenceDate with records, atomically.
func (s *Store) ReplaceResults(ctx context.Context, referenceDate time.Time, records []ResultRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteResultsForDateSQL, referenceDate); err != nil {
			return fmt.Errorf("delete results: %w", err)
		}

		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(insertResultSQL,
				referenceDate,
				rec.BondType,
				rec.Maturity,
				rec.FixedRate.String(),
				rec.IPCABondType,
				rec.IPCAMaturity,
				rec.IPCARate.String(),
				rec.Distance,
				rec.ImpliedInflation.String(),
				nullTime(rec.TargetMaturity),
				nullDecimal(rec.InterpolatedRate),
				nullDecimal(rec.InterpolatedImplied),
				rec.Metric,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
		return nil
	})
}

// ListResults returns the stored rows for a reference date ordered by maturity.
func (s *Store) ListResults(ctx context.Context, referenceDate time.Time) ([]ResultRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listResultsSQL, referenceDate)
	if queryErr != nil {
		return nil, fmt.Errorf("list results: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ResultRecord, 0)
	for rows.Next() {
		rec, scanErr := scanResult(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListReferenceDates summarises the most recent stored reference dates.
func (s *Store) ListReferenceDates(ctx context.Context, limit int) ([]DateSummary, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listReferenceDatesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list reference dates: %w", queryErr)
	}
	defer rows.Close()

	summaries := make([]DateSummary, 0, limit)
	for rows.Next() {
		var (
			sum            DateSummary
			minStr, maxStr string
		)
		if err := rows.Scan(&sum.ReferenceDate, &sum.Rows, &minStr, &maxStr); err != nil {
			return nil, err
		}
		if sum.MinImplied, err = decimal.NewFromString(minStr); err != nil {
			return nil, fmt.Errorf("parse min implied: %w", err)
		}
		if sum.MaxImplied, err = decimal.NewFromString(maxStr); err != nil {
			return nil, fmt.Errorf("parse max implied: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return summaries, nil
}

// CountResults counts stored rows.
func (s *Store) CountResults(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countResultsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count results: %w", scanErr)
	}
	return count, nil
}

func scanResult(rows pgx.Rows) (ResultRecord, error) {
	var (
		rec           ResultRecord
		fixedStr      string
		ipcaStr       string
		impliedStr    string
		target        sql.NullTime
		interpRate    sql.NullString
		interpImplied sql.NullString
	)

	if err := rows.Scan(
		&rec.ReferenceDate,
		&rec.BondType,
		&rec.Maturity,
		&fixedStr,
		&rec.IPCABondType,
		&rec.IPCAMaturity,
		&ipcaStr,
		&rec.Distance,
		&impliedStr,
		&target,
		&interpRate,
		&interpImplied,
		&rec.Metric,
		&rec.CreatedAt,
	); err != nil {
		return ResultRecord{}, err
	}

	var err error
	if rec.FixedRate, err = decimal.NewFromString(fixedStr); err != nil {
		return ResultRecord{}, fmt.Errorf("parse fixed rate: %w", err)
	}
	if rec.IPCARate, err = decimal.NewFromString(ipcaStr); err != nil {
		return ResultRecord{}, fmt.Errorf("parse ipca rate: %w", err)
	}
	if rec.ImpliedInflation, err = decimal.NewFromString(impliedStr); err != nil {
		return ResultRecord{}, fmt.Errorf("parse implied inflation: %w", err)
	}
	if target.Valid {
		value := target.Time
		rec.TargetMaturity = &value
	}
	if rec.InterpolatedRate, err = parseNullDecimal(interpRate); err != nil {
		return ResultRecord{}, fmt.Errorf("parse interpolated rate: %w", err)
	}
	if rec.InterpolatedImplied, err = parseNullDecimal(interpImplied); err != nil {
		return ResultRecord{}, fmt.Errorf("parse interpolated implied: %w", err)
	}

	return rec, nil
}

func parseNullDecimal(v sql.NullString) (decimal.NullDecimal, error) {
	if !v.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func nullDecimal(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

var _ ResultStore = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)
