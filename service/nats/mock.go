package nats

import (
	"context"
	"sync"
)

// MockPublisher records published events in memory. Use it in tests in
// place of a JetStreamPublisher.
type MockPublisher struct {
	mu     sync.RWMutex
	events []*TransactionEvent
	err    error
	closed bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishTransaction records the event and returns any configured error.
func (m *MockPublisher) PublishTransaction(ctx context.Context, event *TransactionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// PublishTransactionBatch records the events and returns any configured error.
func (m *MockPublisher) PublishTransactionBatch(ctx context.Context, events []*TransactionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetError makes every later publish fail with err.
func (m *MockPublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns a copy of everything published so far.
func (m *MockPublisher) Events() []*TransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*TransactionEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsForWallet returns the events published for one wallet.
func (m *MockPublisher) EventsForWallet(address string) []*TransactionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*TransactionEvent
	for _, e := range m.events {
		if e.WalletAddress == address {
			out = append(out, e)
		}
	}
	return out
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
