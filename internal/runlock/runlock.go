package runlock

import (
	"context"
	"sync"
)

const (
	KeyPull    = "pull"
	KeyAnalyze = "analyze"
)

// Locker grants at most one holder per key. TryLock never blocks waiting for a
// holder; ok is false when the key is already taken.
type Locker interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocal() *Local {
	return &Local{held: make(map[string]bool)}
}

func (l *Local) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true, nil
}

// Noop grants every request. It keeps the unguarded behavior where concurrent
// runs of the same job are allowed.
type Noop struct{}

func (Noop) TryLock(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}
