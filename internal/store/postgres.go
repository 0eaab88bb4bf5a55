package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS transactions (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL DEFAULT '',
    amount      NUMERIC NOT NULL,
    "timestamp" TIMESTAMPTZ NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions (user_id, "timestamp");
`

const pgUniqueViolation = "23505"

// PostgresStore persists transactions in Postgres through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// OpenPostgres connects to dsn, verifies the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, logger logging.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 2 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}

	logger.Info("Connected to Postgres transaction store")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Insert implements TransactionStore.
func (s *PostgresStore) Insert(ctx context.Context, tx models.Transaction) error {
	return s.InsertBatch(ctx, []models.Transaction{tx})
}

// InsertBatch implements TransactionStore.
func (s *PostgresStore) InsertBatch(ctx context.Context, txs []models.Transaction) error {
	for _, tx := range txs {
		if err := validate(tx); err != nil {
			return err
		}
	}

	return pgx.BeginFunc(ctx, s.pool, func(dbtx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, tx := range txs {
			batch.Queue(
				`INSERT INTO transactions (id, user_id, amount, "timestamp", description, type)
				 VALUES ($1, $2, $3::numeric, $4, $5, $6)`,
				tx.ID, tx.UserID, tx.Amount.String(), tx.Timestamp.UTC(), tx.Description, tx.Type)
		}

		br := dbtx.SendBatch(ctx, batch)
		for _, tx := range txs {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
					return ErrDuplicateID
				}
				return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close insert batch: %w", err)
		}
		s.logger.Debug("Stored transactions", logging.Field{Key: logging.FieldCount, Value: len(txs)})
		return nil
	})
}

// ListByUser implements TransactionStore.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, amount::text, "timestamp", description, type
		 FROM transactions
		 WHERE user_id = $1 AND "timestamp" BETWEEN $2 AND $3
		 ORDER BY "timestamp", id`,
		userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amount string
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &tx.Timestamp, &tx.Description, &tx.Type); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s has invalid amount %q: %w", tx.ID, amount, err)
		}
		tx.Amount = dec
		tx.Timestamp = tx.Timestamp.UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Close implements TransactionStore.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
