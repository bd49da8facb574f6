package locking

import (
	"context"
	"errors"
	"sync"
)

// ErrLockNotAcquired signals that another request currently holds the key.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Locker serializes critical sections per key. Acquisition is
// non-blocking: a contended key returns ErrLockNotAcquired so the caller
// can surface a transient conflict instead of queueing writers.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// MemoryLocker is the single-process implementation: a held-key set under
// one mutex.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

// WithLock runs fn while holding key, or returns ErrLockNotAcquired.
func (l *MemoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, taken := l.held[key]; taken {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

var _ Locker = (*MemoryLocker)(nil)
