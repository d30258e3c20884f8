// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PassStoreConfig controls the Postgres connection pool used for pass rows.
type PassStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// PassStore writes one row per completed harvest pass into Postgres.
type PassStore struct {
	pool  pgxPool
	table string
}

// NewPassStore creates a Postgres-backed PassStore using the provided config.
func NewPassStore(ctx context.Context, cfg PassStoreConfig) (*PassStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "harvest_passes"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PassStore{pool: pool, table: table}, nil
}

// NewPassStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewPassStoreWithPool(pool pgxPool, table string) (*PassStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "harvest_passes"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PassStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PassStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordPass inserts a pass summary row.
func (s *PassStore) RecordPass(ctx context.Context, rec harvest.PassRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("pass store is not configured")
	}
	if rec.ID == "" {
		return fmt.Errorf("pass id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	started_at,
	finished_at,
	total,
	downloaded,
	uploaded,
	not_found,
	forbidden,
	errors,
	duplicate_urls,
	files_downloaded,
	files_uploaded
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)`, s.table)

	args := []any{
		rec.ID,
		rec.StartedAt,
		rec.FinishedAt,
		rec.Counters.Total,
		rec.Counters.Downloaded,
		rec.Counters.Uploaded,
		rec.Counters.NotFound,
		rec.Counters.Forbidden,
		rec.Counters.Errors,
		rec.Counters.DuplicateURLs,
		rec.Counters.FilesDownloaded,
		rec.Counters.FilesUploaded,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert pass row: %w", err)
	}
	return nil
}

// ListPasses returns the most recent pass rows, newest first.
func (s *PassStore) ListPasses(ctx context.Context, limit, offset int) ([]harvest.PassRecord, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pass store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id, started_at, finished_at, total, downloaded, uploaded, not_found,
	forbidden, errors, duplicate_urls, files_downloaded, files_uploaded
FROM %s
ORDER BY started_at DESC
LIMIT $1 OFFSET $2`, s.table)

	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pass rows: %w", err)
	}
	defer rows.Close()

	var recs []harvest.PassRecord
	for rows.Next() {
		var rec harvest.PassRecord
		err := rows.Scan(
			&rec.ID,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.Counters.Total,
			&rec.Counters.Downloaded,
			&rec.Counters.Uploaded,
			&rec.Counters.NotFound,
			&rec.Counters.Forbidden,
			&rec.Counters.Errors,
			&rec.Counters.DuplicateURLs,
			&rec.Counters.FilesDownloaded,
			&rec.Counters.FilesUploaded,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pass row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass rows: %w", err)
	}
	return recs, nil
}
