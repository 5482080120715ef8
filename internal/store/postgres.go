package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS measurements (
	id       BIGSERIAL PRIMARY KEY,
	glucose  INTEGER NOT NULL,
	date     TEXT    NOT NULL,
	device   TEXT    NOT NULL,
	UNIQUE (glucose, date, device)
)`

const insertSQL = `
INSERT INTO measurements (glucose, date, device)
VALUES ($1, $2, $3)
ON CONFLICT (glucose, date, device) DO NOTHING`

const listSQL = `SELECT glucose, date, device FROM measurements ORDER BY id`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and ensures the schema exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the measurements table if missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertMeasurement implements Store
func (s *PostgresStore) InsertMeasurement(ctx context.Context, glucose int, timestamp, device string) error {
	if err := validate(glucose, timestamp, device); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, insertSQL, glucose, timestamp, device)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// List implements Store
func (s *PostgresStore) List(ctx context.Context) ([]Measurement, error) {
	rows, err := s.pool.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(&m.Glucose, &m.Timestamp, &m.Device); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close implements Store
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
