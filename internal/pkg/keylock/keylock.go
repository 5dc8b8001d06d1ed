// Package keylock serializes work per key (an order id, a rider id) without a global lock.
//
// Lock acquisition honours the caller's context, so a command blocked behind another one on
// the same key gives up when its deadline passes instead of waiting forever.
package keylock

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Locker hands out exclusive per-key locks. Entries are reference counted and dropped once
// nobody holds or waits for them. The zero value is not usable; call New.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{entries: make(map[string]*entry)}
}

// Lock acquires every key, in sorted order, and returns the function that releases them.
// Duplicate keys are collapsed. On failure nothing stays held and ctx.Err() is returned.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		e := l.acquireRef(key)
		if err := e.sem.Acquire(ctx, 1); err != nil {
			l.releaseRef(key)
			l.unlock(held)
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.unlock(held) })
	}, nil
}

// Len reports how many keys are currently held or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locker) unlock(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		e := l.entries[keys[i]]
		l.mu.Unlock()

		e.sem.Release(1)
		l.releaseRef(keys[i])
	}
}

func (l *Locker) acquireRef(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseRef(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
