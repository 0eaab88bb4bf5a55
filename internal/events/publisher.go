package events

import (
	"context"
	"sync"

	"smart-budget-planner/internal/models"
)

// Publisher announces stored transactions.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, tx models.Transaction) error
	Close() error
}

// NopPublisher drops every event. It is used when publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishTransactionCreated(context.Context, models.Transaction) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}

// RecordingPublisher keeps published events in memory for tests.
type RecordingPublisher struct {
	mu        sync.Mutex
	Published []*TransactionCreated
	Err       error
}

// PublishTransactionCreated records the event, or returns Err when set.
func (p *RecordingPublisher) PublishTransactionCreated(_ context.Context, tx models.Transaction) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, NewTransactionCreated(tx))
	return nil
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []*TransactionCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*TransactionCreated(nil), p.Published...)
}

// Close implements Publisher.
func (p *RecordingPublisher) Close() error { return nil }
