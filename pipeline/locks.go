package pipeline

import (
	"context"
	"sync"
)

// threadLocks serializes turns per thread. Entries are reference counted
// and removed once no turn holds or awaits them.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	sem  chan struct{}
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// Lock blocks until the thread is free or ctx is done. The returned
// function releases the lock.
func (l *threadLocks) Lock(ctx context.Context, threadID string) (func(), error) {
	l.mu.Lock()
	tl, ok := l.locks[threadID]
	if !ok {
		tl = &threadLock{sem: make(chan struct{}, 1)}
		l.locks[threadID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	select {
	case tl.sem <- struct{}{}:
		return func() {
			<-tl.sem
			l.release(threadID, tl)
		}, nil
	case <-ctx.Done():
		l.release(threadID, tl)
		return nil, ctx.Err()
	}
}

func (l *threadLocks) release(threadID string, tl *threadLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, threadID)
	}
}

// size returns the number of tracked threads.
func (l *threadLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
