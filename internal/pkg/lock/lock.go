// Package lock serializes allocation-affecting mutations per key.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Locker acquires an exclusive lock on key until the returned func is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func EquipmentKey(id int64) string   { return fmt.Sprintf("equipment:%d", id) }
func ReservationKey(id int64) string { return fmt.Sprintf("reservation:%d", id) }

// LockAll acquires every key in sorted order so concurrent callers never deadlock,
// and releases them in reverse order.
func LockAll(ctx context.Context, l Locker, keys []string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("acquire lock %s: %w", k, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

// Local is an in-process keyed mutex.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	slot chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
