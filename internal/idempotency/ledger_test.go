package idempotency

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReserveCompleteReplay(t *testing.T) {
	l := NewLedger()

	res := l.Reserve("key-1", 0)
	assert.Equal(t, OutcomeAcquired, res.Outcome)

	// Second reserve while the first attempt runs.
	res = l.Reserve("key-1", 0)
	assert.Equal(t, OutcomeInProgress, res.Outcome)

	l.Complete("key-1", map[string]string{"booking_id": "b-1"}, 0)

	res = l.Reserve("key-1", 0)
	assert.Equal(t, OutcomeReplay, res.Outcome)
	assert.Equal(t, map[string]string{"booking_id": "b-1"}, res.Response)
}

func TestReleaseMakesKeyRetryable(t *testing.T) {
	l := NewLedger()

	assert.Equal(t, OutcomeAcquired, l.Reserve("key-1", 0).Outcome)
	l.Release("key-1")
	assert.Equal(t, OutcomeAcquired, l.Reserve("key-1", 0).Outcome)
}

func TestLazyExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := NewLedgerWithClock(func() time.Time { return now })

	assert.Equal(t, OutcomeAcquired, l.Reserve("stuck", time.Minute).Outcome)
	l.Complete("done", "resp", time.Minute)
	assert.Equal(t, 2, l.Len())

	// Within TTL: both survive.
	now = now.Add(30 * time.Second)
	assert.Equal(t, OutcomeInProgress, l.Reserve("stuck", time.Minute).Outcome)
	assert.Equal(t, OutcomeReplay, l.Reserve("done", time.Minute).Outcome)

	// Past TTL: the next reserve purges everything expired, so a wedged
	// IN_PROGRESS key becomes retryable and a completed key re-executes.
	now = now.Add(2 * time.Minute)
	assert.Equal(t, OutcomeAcquired, l.Reserve("stuck", time.Minute).Outcome)
	assert.Equal(t, OutcomeAcquired, l.Reserve("done", time.Minute).Outcome)
}

func TestCompleteRefreshesExpiry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := NewLedgerWithClock(func() time.Time { return now })

	l.Reserve("key", time.Minute)
	now = now.Add(50 * time.Second)
	l.Complete("key", "resp", time.Minute)

	// 50s after Complete the original reservation would have lapsed, but
	// the refreshed expiry keeps the replay alive.
	now = now.Add(50 * time.Second)
	assert.Equal(t, OutcomeReplay, l.Reserve("key", time.Minute).Outcome)
}

func TestConcurrentReserveAdmitsExactlyOne(t *testing.T) {
	l := NewLedger()

	const goroutines = 32
	var wg sync.WaitGroup
	acquired := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Reserve("contested", 0).Outcome == OutcomeAcquired {
				acquired <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(acquired)

	count := 0
	for range acquired {
		count++
	}
	assert.Equal(t, 1, count, "exactly one goroutine may own the attempt")
}

func TestDistinctKeysAreIndependent(t *testing.T) {
	l := NewLedger()
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		assert.Equal(t, OutcomeAcquired, l.Reserve(key, 0).Outcome)
	}
	assert.Equal(t, 5, l.Len())
}
