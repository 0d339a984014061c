package remotetag

import (
	"io"
	"sync"
	"sync/atomic"
)

// DiagWriter is a best-effort io.Writer for diagnostics. Writes are queued
// and copied to the underlying writer by a background goroutine; when the
// queue is full the message is dropped instead of blocking the caller.
type DiagWriter struct {
	w       io.Writer
	ch      chan []byte
	done    chan struct{}
	dropped uint64

	lk     sync.RWMutex
	closed bool
}

// NewDiagWriter returns a DiagWriter queueing up to size messages for w.
func NewDiagWriter(w io.Writer, size int) *DiagWriter {
	if size <= 0 {
		size = 256
	}
	d := &DiagWriter{
		w:    w,
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
	go d.drain()
	return d
}

func (d *DiagWriter) drain() {
	defer close(d.done)
	for msg := range d.ch {
		d.w.Write(msg)
	}
}

// Write queues a copy of p. It never blocks and always reports success.
// Messages written after Close are dropped.
func (d *DiagWriter) Write(p []byte) (int, error) {
	d.lk.RLock()
	defer d.lk.RUnlock()

	if d.closed {
		atomic.AddUint64(&d.dropped, 1)
		return len(p), nil
	}

	msg := append([]byte(nil), p...)

	// do not block
	select {
	case d.ch <- msg:
	default:
		atomic.AddUint64(&d.dropped, 1)
	}
	return len(p), nil
}

// Dropped returns the number of messages discarded because the queue was
// full.
func (d *DiagWriter) Dropped() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

// Close flushes queued messages and stops the background goroutine.
func (d *DiagWriter) Close() error {
	d.lk.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.lk.Unlock()

	<-d.done
	return nil
}
