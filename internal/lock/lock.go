// Package lock provides exclusive locks keyed by process definition id. A
// reject operation holds its definition's lock for the whole
// rewire/drive/restore window, so no other operation observes the temporarily
// rewritten graph.
package lock

import (
	"context"
	"sync"
)

// Locker hands out exclusive locks per key. Lock blocks until the lock is
// acquired or ctx is done; the returned function releases it and must be
// called on every exit path.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker returns an in-process Locker. It is the default; sharing one
// definition across processes requires a cross-process Locker such as the
// redis one.
func NewKeyedLocker() Locker {
	return &keyedLocker{
		locks: map[string]*keyedLock{},
	}
}

func (kl *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		kl.locks[key] = l
	}
	l.refs++
	kl.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		kl.release(key, l, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.release(key, l, true)
		})
	}, nil
}

func (kl *keyedLocker) release(key string, l *keyedLock, held bool) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if held {
		<-l.ch
	}

	l.refs--
	if l.refs == 0 {
		delete(kl.locks, key)
	}
}
