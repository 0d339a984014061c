// Package coroutine lets a single logical worker flow be suspended and
// resumed from an event loop, so that code written against blocking calls
// can run on top of completion callbacks.
//
// Exactly two contexts exist at any time: the "main" context (whoever calls
// Create or Resume, usually the event loop) and one "worker" flow. Control
// is handed back and forth explicitly, so the two never run in parallel.
package coroutine

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	ErrBusy         = errors.New("coroutine: a flow is already running or suspended")
	ErrNotRunning   = errors.New("coroutine: no running flow to block")
	ErrNotSuspended = errors.New("coroutine: no suspended flow to resume")
)

// State describes what the worker flow of a Switch is doing.
type State int

const (
	Idle State = iota
	Running
	Suspended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Switch holds the two save points ("main" and "worker"). The zero value is
// not usable, use New.
type Switch struct {
	// Logger receives panics recovered from worker flows. nil disables it.
	Logger *log.Logger

	lk    sync.Mutex
	state State

	toWorker chan struct{}
	toMain   chan struct{}
}

// Default is the process-wide switch used by the package level functions.
var Default = New()

func New() *Switch {
	return &Switch{
		Logger:   log.Default(),
		toWorker: make(chan struct{}),
		toMain:   make(chan struct{}),
	}
}

// State returns the current state of the worker flow.
func (s *Switch) State() State {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.state
}

// Create starts entry(arg) as the worker flow and returns once it has either
// finished or called Block. Only one flow may exist at a time: calling
// Create while another flow is running or suspended returns ErrBusy.
func (s *Switch) Create(entry func(arg any), arg any) error {
	s.lk.Lock()
	if s.state != Idle {
		s.lk.Unlock()
		return ErrBusy
	}
	s.state = Running
	s.lk.Unlock()

	go s.run(entry, arg)

	// wait for first suspend or completion
	<-s.toMain
	return nil
}

func (s *Switch) run(entry func(arg any), arg any) {
	defer func() {
		if r := recover(); r != nil {
			s.logf("coroutine: worker flow panicked: %v", r)
		}
		s.lk.Lock()
		s.state = Idle
		s.lk.Unlock()
		s.toMain <- struct{}{}
	}()

	entry(arg)
}

// Block suspends the calling worker flow and hands control back to the
// context that last called Create or Resume. It returns once Resume is
// called. Block must only be called from the worker flow.
func (s *Switch) Block() error {
	s.lk.Lock()
	if s.state != Running {
		s.lk.Unlock()
		return ErrNotRunning
	}
	s.state = Suspended
	s.lk.Unlock()

	s.toMain <- struct{}{}
	<-s.toWorker
	return nil
}

// Resume transfers control into the suspended worker flow, right after its
// Block call, and returns when the flow blocks again or finishes.
func (s *Switch) Resume() error {
	s.lk.Lock()
	if s.state != Suspended {
		s.lk.Unlock()
		return ErrNotSuspended
	}
	s.state = Running
	s.lk.Unlock()

	s.toWorker <- struct{}{}
	<-s.toMain
	return nil
}

func (s *Switch) logf(format string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Printf(format, args...)
}

// Create starts a flow on Default.
func Create(entry func(arg any), arg any) error {
	return Default.Create(entry, arg)
}

// Block suspends the flow running on Default.
func Block() error {
	return Default.Block()
}

// Resume resumes the flow suspended on Default.
func Resume() error {
	return Default.Resume()
}
