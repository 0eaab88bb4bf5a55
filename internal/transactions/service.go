// Package transactions records and lists a user's transactions and announces
// new ones on the event bus.
package transactions

import (
	"context"
	"strings"
	"time"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/events"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"
	"smart-budget-planner/internal/store"

	"github.com/google/uuid"
)

const (
	opCreate = "create transaction"
	opList   = "list transactions"
)

// Service implements the transaction endpoints over a store.
type Service struct {
	store     store.TransactionStore
	publisher events.Publisher
	logger    logging.Logger
	now       func() time.Time
	newID     func() string
}

// NewService creates a Service. A nil publisher disables events.
func NewService(s store.TransactionStore, publisher events.Publisher, logger logging.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		store:     s,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create stores a new transaction stamped with the current time. Publishing
// failures are logged; the stored transaction is still returned.
func (s *Service) Create(ctx context.Context, userID string, in models.NewTransactionInput) (models.Transaction, error) {
	if userID == "" {
		return models.Transaction{}, forecasterror.Unauth(opCreate, "no user resolved for request")
	}

	tx := models.Transaction{
		ID:          s.newID(),
		UserID:      userID,
		Amount:      in.Amount,
		Timestamp:   s.now().UTC(),
		Description: strings.TrimSpace(in.Description),
		Type:        strings.TrimSpace(in.Type),
	}
	if err := s.store.Insert(ctx, tx); err != nil {
		return models.Transaction{}, forecasterror.StorageFailure(opCreate, err)
	}

	log := s.logger.WithFields(
		logging.Field{Key: logging.FieldTransactionID, Value: tx.ID},
		logging.Field{Key: logging.FieldUserID, Value: userID})
	if err := s.publisher.PublishTransactionCreated(ctx, tx); err != nil {
		log.WithError(err).Warn("Failed to publish transaction.created")
	}
	log.Info("Transaction created")
	return tx, nil
}

// List returns the user's transactions between two ISO dates, both
// inclusive: from starts at 00:00 UTC and to ends at 23:59:59.999999999 UTC.
func (s *Service) List(ctx context.Context, userID, fromStr, toStr string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, forecasterror.Unauth(opList, "no user resolved for request")
	}
	if fromStr == "" || toStr == "" {
		return nil, forecasterror.Malformed(opList, "query parameters 'from' and 'to' are required")
	}
	from, err := dateutils.ParseISODate(fromStr)
	if err != nil {
		return nil, forecasterror.Malformedf(opList, "from: %v", err)
	}
	to, err := dateutils.ParseISODate(toStr)
	if err != nil {
		return nil, forecasterror.Malformedf(opList, "to: %v", err)
	}
	from, to = dateutils.StartOfDay(from), dateutils.EndOfDay(to)
	if to.Before(from) {
		return nil, forecasterror.Malformed(opList, "'to' is before 'from'")
	}

	txs, err := s.store.ListByUser(ctx, userID, from, to)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, forecasterror.Deadline(opList, ctxErr)
		}
		return nil, forecasterror.StorageFailure(opList, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	s.logger.Debug("Listed transactions",
		logging.Field{Key: logging.FieldUserID, Value: userID},
		logging.Field{Key: logging.FieldCount, Value: len(txs)})
	return txs, nil
}
