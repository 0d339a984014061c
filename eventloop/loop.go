// Package eventloop runs posted callbacks one at a time on a single
// goroutine, in the order they were posted.
package eventloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Run when called on a loop that was already stopped.
var ErrStopped = errors.New("eventloop: loop stopped")

// Loop is a FIFO queue of callbacks. Post never blocks, so it is safe to
// call from the loop itself, from worker flows and from I/O goroutines.
type Loop struct {
	lk      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
	running bool
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post schedules fn to run later on the loop goroutine. Callbacks posted
// after Stop are dropped.
func (l *Loop) Post(fn func()) {
	l.lk.Lock()
	if l.stopped {
		l.lk.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.lk.Unlock()

	// do not block
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Stop makes Run return once the callback currently executing (if any)
// completes. Pending callbacks are discarded.
func (l *Loop) Stop() {
	l.lk.Lock()
	l.stopped = true
	l.queue = nil
	l.lk.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of callbacks waiting to run.
func (l *Loop) Pending() int {
	l.lk.Lock()
	defer l.lk.Unlock()
	return len(l.queue)
}

// Run executes callbacks until Stop is called or ctx is done. The calling
// goroutine becomes the loop goroutine.
func (l *Loop) Run(ctx context.Context) error {
	l.lk.Lock()
	if l.stopped {
		l.lk.Unlock()
		return ErrStopped
	}
	if l.running {
		l.lk.Unlock()
		return errors.New("eventloop: already running")
	}
	l.running = true
	l.lk.Unlock()

	defer func() {
		l.lk.Lock()
		l.running = false
		l.lk.Unlock()
	}()

	for {
		fn, stopped := l.next()
		if stopped {
			return nil
		}
		if fn != nil {
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.lk.Lock()
	defer l.lk.Unlock()

	if l.stopped {
		return nil, true
	}
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, false
}
