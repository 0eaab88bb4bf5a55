package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // register sqlite driver
)

const sqlitePragmas = "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)"

// SQLiteStore persists transactions in a SQLite file. Timestamps are stored
// as UTC nanoseconds and amounts as decimal strings.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// OpenSQLite opens or creates the database at dbPath and migrates it.
func OpenSQLite(ctx context.Context, dbPath string, logger logging.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	logger.Info("Opened SQLite transaction store", logging.Field{Key: logging.FieldFile, Value: dbPath})
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Insert implements TransactionStore.
func (s *SQLiteStore) Insert(ctx context.Context, tx models.Transaction) error {
	return s.InsertBatch(ctx, []models.Transaction{tx})
}

// InsertBatch implements TransactionStore.
func (s *SQLiteStore) InsertBatch(ctx context.Context, txs []models.Transaction) error {
	for _, tx := range txs {
		if err := validate(tx); err != nil {
			return err
		}
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = dbtx.Rollback() }()

	stmt, err := dbtx.PrepareContext(ctx,
		`INSERT INTO transactions (id, user_id, amount, timestamp_ns, description, type)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, tx := range txs {
		_, err := stmt.ExecContext(ctx,
			tx.ID, tx.UserID, tx.Amount.String(), tx.Timestamp.UTC().UnixNano(), tx.Description, tx.Type)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateID
			}
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	s.logger.Debug("Stored transactions", logging.Field{Key: logging.FieldCount, Value: len(txs)})
	return nil
}

// ListByUser implements TransactionStore.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, amount, timestamp_ns, description, type
		 FROM transactions
		 WHERE user_id = ? AND timestamp_ns BETWEEN ? AND ?
		 ORDER BY timestamp_ns, id`,
		userID, from.UTC().UnixNano(), to.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amount string
		var ts int64
		if err := rows.Scan(&tx.ID, &tx.UserID, &amount, &ts, &tx.Description, &tx.Type); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s has invalid amount %q: %w", tx.ID, amount, err)
		}
		tx.Amount = dec
		tx.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Close implements TransactionStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
