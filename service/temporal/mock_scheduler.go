package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is an in-memory Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]time.Duration // map[scheduleID]interval
	upsertErr map[string]error
	deleteErr error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]time.Duration),
		upsertErr: make(map[string]error),
	}
}

// UpsertWalletSchedule records the schedule and its interval.
func (m *MockScheduler) UpsertWalletSchedule(ctx context.Context, address string, interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.upsertErr[address]; err != nil {
		return err
	}
	m.schedules[scheduleID(address)] = interval
	return nil
}

// DeleteWalletSchedule removes the schedule for address.
func (m *MockScheduler) DeleteWalletSchedule(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	id := scheduleID(address)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	delete(m.schedules, id)
	return nil
}

// SetUpsertError makes UpsertWalletSchedule fail for address.
func (m *MockScheduler) SetUpsertError(address string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertErr[address] = err
}

// SetDeleteError makes DeleteWalletSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// ScheduleInterval returns the interval of a wallet's schedule.
func (m *MockScheduler) ScheduleInterval(address string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	interval, exists := m.schedules[scheduleID(address)]
	return interval, exists
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}
