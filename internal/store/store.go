// Package store persists transactions and serves them back by user and date
// range. Three backends share the TransactionStore contract: an in-process
// map, SQLite and Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var (
	// ErrDuplicateID is returned when a transaction ID is already stored.
	ErrDuplicateID = errors.New("store: duplicate transaction id")
	// ErrMissingID is returned when a transaction without ID is inserted.
	ErrMissingID = errors.New("store: transaction id is required")
)

// TransactionStore reads and writes transactions.
type TransactionStore interface {
	// Insert stores one transaction.
	Insert(ctx context.Context, tx models.Transaction) error
	// InsertBatch stores all transactions or none.
	InsertBatch(ctx context.Context, txs []models.Transaction) error
	// ListByUser returns the user's transactions with timestamps in the
	// inclusive range [from, to], oldest first.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error)
	// Close releases the backend's resources.
	Close() error
}

// History exposes a TransactionStore as the forecast pipeline's history source.
type History struct {
	Store TransactionStore
}

// FetchHistory returns the user's transactions in [from, to].
func (h History) FetchHistory(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	return h.Store.ListByUser(ctx, userID, from, to)
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	MaxConns    int32
}

// Open returns the backend named by opts.Backend, ready for use.
func Open(ctx context.Context, opts Options, logger logging.Logger) (TransactionStore, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithFields(
		logging.Field{Key: logging.FieldComponent, Value: logging.ComponentStore},
		logging.Field{Key: logging.FieldBackend, Value: opts.Backend})

	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		logger.Debug("Using in-memory transaction store")
		return NewMemoryStore(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, opts.SQLitePath, logger)
	case BackendPostgres:
		return OpenPostgres(ctx, opts.PostgresDSN, opts.MaxConns, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

func validate(tx models.Transaction) error {
	if tx.ID == "" {
		return ErrMissingID
	}
	return nil
}
