package store

import (
	"context"
	"time"

	"smart-budget-planner/internal/models"
)

// MockStore wraps a MemoryStore and lets tests inject failures.
type MockStore struct {
	*MemoryStore

	InsertError error
	ListError   error
	ListDelay   time.Duration
	ListCalls   int
}

// NewMockStore returns a MockStore backed by an empty MemoryStore.
func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: NewMemoryStore()}
}

// Insert returns InsertError when set.
func (m *MockStore) Insert(ctx context.Context, tx models.Transaction) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	return m.MemoryStore.Insert(ctx, tx)
}

// InsertBatch returns InsertError when set.
func (m *MockStore) InsertBatch(ctx context.Context, txs []models.Transaction) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	return m.MemoryStore.InsertBatch(ctx, txs)
}

// ListByUser waits ListDelay (or until ctx is done) and returns ListError when set.
func (m *MockStore) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	m.ListCalls++
	if m.ListDelay > 0 {
		select {
		case <-time.After(m.ListDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.MemoryStore.ListByUser(ctx, userID, from, to)
}
