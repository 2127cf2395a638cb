package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLifecycle struct {
	completeCalls int
	expireTTL     time.Duration
	err           error
}

func (m *mockLifecycle) CompleteEndedBookings(ctx context.Context) (int, error) {
	m.completeCalls++
	return 2, m.err
}

func (m *mockLifecycle) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	m.expireTTL = ttl
	return 1, m.err
}

func TestNewScheduler_RegistersJobs(t *testing.T) {
	c, err := NewScheduler(&mockLifecycle{}, time.Hour)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)
}

func TestJobs_CallService(t *testing.T) {
	m := &mockLifecycle{}

	CompleteEnded(m)
	ExpirePending(m, 48*time.Hour)

	assert.Equal(t, 1, m.completeCalls)
	assert.Equal(t, 48*time.Hour, m.expireTTL)
}

func TestJobs_ErrorsAreSwallowed(t *testing.T) {
	m := &mockLifecycle{err: errors.New("db down")}

	assert.NotPanics(t, func() {
		CompleteEnded(m)
		ExpirePending(m, time.Minute)
	})
}
