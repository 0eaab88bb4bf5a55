package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/models"
)

// MemoryStore keeps transactions in process memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]models.Transaction
	ids    map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string][]models.Transaction),
		ids:    make(map[string]struct{}),
	}
}

// Insert implements TransactionStore.
func (s *MemoryStore) Insert(ctx context.Context, tx models.Transaction) error {
	return s.InsertBatch(ctx, []models.Transaction{tx})
}

// InsertBatch implements TransactionStore.
func (s *MemoryStore) InsertBatch(ctx context.Context, txs []models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if err := validate(tx); err != nil {
			return err
		}
		if _, dup := s.ids[tx.ID]; dup {
			return ErrDuplicateID
		}
		if _, dup := seen[tx.ID]; dup {
			return ErrDuplicateID
		}
		seen[tx.ID] = struct{}{}
	}
	for _, tx := range txs {
		s.ids[tx.ID] = struct{}{}
		s.byUser[tx.UserID] = append(s.byUser[tx.UserID], tx)
	}
	return nil
}

// ListByUser implements TransactionStore.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	for _, tx := range s.byUser[userID] {
		if dateutils.InRange(tx.Timestamp, from, to) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Close implements TransactionStore.
func (s *MemoryStore) Close() error {
	return nil
}
