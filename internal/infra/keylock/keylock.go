// Package keylock serializes mutations per key. All writes for one user
// (or one user+challenge pair) go through a single-writer lock; writes on
// different keys never block each other. Critical sections stay short —
// nothing but the persistence write happens while a key is held.
package keylock

import (
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a key could not be acquired in time.
// Callers may retry; the engine retries once before surfacing it.
var ErrTimeout = errors.New("keylock: acquire timed out")

// Locker hands out one mutex per key, created on demand and reclaimed
// when the last holder releases it.
type Locker struct {
	mu   sync.Mutex
	keys map[string]*entry
}

type entry struct {
	ch   chan struct{} // capacity 1; holding the token = holding the lock
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{keys: make(map[string]*entry)}
}

// Acquire takes the lock for key, waiting at most timeout. On success it
// returns a release func that must be called exactly once.
func (l *Locker) Acquire(key string, timeout time.Duration) (func(), error) {
	e := l.ref(key)

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.unref(key)
			})
		}, nil
	case <-time.After(timeout):
		l.unref(key)
		return nil, ErrTimeout
	}
}

func (l *Locker) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.keys[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// Len returns the number of keys currently tracked. For tests and metrics.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
