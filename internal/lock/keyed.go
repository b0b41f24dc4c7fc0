package lock

import (
	"context"
	"sync"
)

// Keyed serializes work per key. The scheduler uses one Keyed lock
// with repository names as keys: the global concurrency budget bounds
// how many runs execute, this bounds runs per repository to exactly
// one, so two runners never write the same repository concurrently.
type Keyed struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{slots: make(map[string]chan struct{})}
}

func (k *Keyed) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		k.slots[key] = s
	}
	return s
}

// Acquire blocks until the key is free or ctx is done.
func (k *Keyed) Acquire(ctx context.Context, key string) error {
	select {
	case k.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the key. Releasing a key that is not held panics:
// that is always a caller bug.
func (k *Keyed) Release(key string) {
	select {
	case <-k.slot(key):
	default:
		panic("lock: release of unheld key " + key)
	}
}

// For adapts one key to the Locker interface.
func (k *Keyed) For(key string) Locker {
	return keyedLocker{keyed: k, key: key}
}

type keyedLocker struct {
	keyed *Keyed
	key   string
}

func (l keyedLocker) Acquire(ctx context.Context) error {
	return l.keyed.Acquire(ctx, l.key)
}

func (l keyedLocker) Release(context.Context) error {
	l.keyed.Release(l.key)
	return nil
}
