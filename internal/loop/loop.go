// Package loop provides a single-goroutine event loop. Every closure posted to
// a Loop runs to completion before the next one starts, so state touched only
// from loop closures needs no locking.
package loop

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Run when the loop has already been stopped
var ErrClosed = errors.New("loop closed")

// Loop serializes closures onto one goroutine
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// New creates a loop with a queue of the given capacity
func New(size int) *Loop {
	if size <= 0 {
		size = 256
	}
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues fn for execution on the loop goroutine. It blocks while the
// queue is full and reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted closures until ctx is cancelled or Stop is called
func (l *Loop) Run(ctx context.Context) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// Call posts fn and waits for it to finish. It must not be called from the
// loop goroutine.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop terminates Run. Closures still queued are discarded.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed once the loop has stopped
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
