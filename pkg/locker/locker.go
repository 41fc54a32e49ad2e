package locker

import (
	"context"
	"sync"
)

// Locker serializes check-then-write sequences for a given key. Booking
// uses the doctor ID as the key, so requests for different doctors never
// contend.
type Locker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// UnlockFunc releases a held lock.
type UnlockFunc func()

type memoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLocker returns an in-process locker keyed by string. Suitable
// for single-instance deployments; multi-instance deployments should use
// the redis locker.
func NewMemoryLocker() Locker {
	return &memoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memoryLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return m.Unlock, nil
	case <-ctx.Done():
		// The goroutine will eventually acquire the mutex; release it
		// again so the key is not wedged.
		go func() {
			<-acquired
			m.Unlock()
		}()
		return nil, ctx.Err()
	}
}
