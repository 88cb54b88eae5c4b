package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB holds the connection pool.
type DB struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewDB creates and tests a new database connection.
func NewDB(ctx context.Context, connString string, baseLogger *zerolog.Logger) (*DB, error) {
	log := baseLogger.With().Str("component", "postgres").Logger()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, err
	}

	// The journal writes from a single worker.
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create connection pool")
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to ping database")
		pool.Close()
		return nil, err
	}

	log.Info().Msg("Database connection pool established")
	return &DB{pool: pool, log: log}, nil
}

const faultSchema = `
	CREATE TABLE IF NOT EXISTS subscriber_faults (
		id               UUID PRIMARY KEY,
		channel_id       BIGINT NOT NULL,
		channel_name     TEXT NOT NULL,
		subscriber_id    UUID NOT NULL,
		subscriber_label TEXT NOT NULL,
		error            TEXT NOT NULL,
		panicked         BOOLEAN NOT NULL DEFAULT FALSE,
		occurred_at      TIMESTAMPTZ NOT NULL
	)
`

// EnsureSchema creates the journal table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, faultSchema); err != nil {
		db.log.Error().Err(err).Msg("Failed to create subscriber_faults table")
		return err
	}
	return nil
}

// Close gracefully closes the connection pool.
func (db *DB) Close() {
	db.log.Info().Msg("Closing database connection pool")
	db.pool.Close()
}
