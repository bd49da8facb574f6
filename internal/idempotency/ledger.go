package idempotency

import (
	"sync"
	"time"
)

// State of a ledger entry.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
)

// Outcome of a Reserve call.
type Outcome string

const (
	// OutcomeAcquired means the key was new; the caller owns the attempt.
	OutcomeAcquired Outcome = "ACQUIRED"
	// OutcomeInProgress means another attempt with this key is still
	// running; the caller must not re-process.
	OutcomeInProgress Outcome = "IN_PROGRESS"
	// OutcomeReplay means a prior attempt completed; the stored response
	// is returned instead of re-executing.
	OutcomeReplay Outcome = "REPLAY"
)

// DefaultTTL bounds how long an entry lives in either state.
const DefaultTTL = 10 * time.Minute

// Reservation is the result of Reserve.
type Reservation struct {
	Outcome  Outcome
	Response any // populated on OutcomeReplay
}

type entry struct {
	state     State
	response  any
	createdAt time.Time
	expiresAt time.Time
}

// Ledger is a short-TTL key -> state map providing at-most-once admission
// for retried requests. It is purely in-process: a multi-node deployment
// needs this backed by a shared store with compare-and-swap semantics.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewLedgerWithClock injects a clock for tests.
func NewLedgerWithClock(now func() time.Time) *Ledger {
	l := NewLedger()
	if now != nil {
		l.now = now
	}
	return l
}

// Reserve admits the key. Expired entries are purged first, so memory is
// bounded without a background sweeper and a key whose earlier attempt
// timed out becomes retryable again.
func (l *Ledger) Reserve(key string, ttl time.Duration) Reservation {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.purgeLocked(now)

	if e, ok := l.entries[key]; ok {
		if e.state == StateCompleted {
			return Reservation{Outcome: OutcomeReplay, Response: e.response}
		}
		return Reservation{Outcome: OutcomeInProgress}
	}

	l.entries[key] = entry{
		state:     StateInProgress,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	return Reservation{Outcome: OutcomeAcquired}
}

// Complete transitions the key to COMPLETED, storing the response for
// replay and refreshing the expiry.
func (l *Ledger) Complete(key string, response any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e := l.entries[key]
	e.state = StateCompleted
	e.response = response
	if e.createdAt.IsZero() {
		e.createdAt = now
	}
	e.expiresAt = now.Add(ttl)
	l.entries[key] = e
}

// Release removes the entry outright so the key can be retried. Used to
// unwind a failed IN_PROGRESS attempt; failures never poison a key.
func (l *Ledger) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len reports live entries, for tests and metrics.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked(l.now())
	return len(l.entries)
}

func (l *Ledger) purgeLocked(now time.Time) {
	for k, e := range l.entries {
		if !e.expiresAt.After(now) {
			delete(l.entries, k)
		}
	}
}
