package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReminder struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (m *mockReminder) RemindPendingPayments(_ context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, olderThan)
	return len(m.calls), m.err
}

func (m *mockReminder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestPaymentReminderJob(t *testing.T) {
	reminder := &mockReminder{}
	s := New()
	require.NoError(t, s.AddPaymentReminder("@every 1s", reminder, 24*time.Hour))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return reminder.count() > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, 24*time.Hour, reminder.calls[0])
}

func TestInvalidSchedule(t *testing.T) {
	assert.Error(t, New().AddPaymentReminder("every now and then", &mockReminder{}, time.Hour))
}

func TestFailedRunIsLogged(t *testing.T) {
	reminder := &mockReminder{err: errors.New("mongo down")}
	New().remind(reminder, time.Hour)
	assert.Equal(t, 1, reminder.count())
}
