package coroutine

import (
	"errors"
	"testing"
)

func TestCreateRunsToCompletion(t *testing.T) {
	s := New()
	s.Logger = nil

	var got any
	if err := s.Create(func(arg any) { got = arg }, 42); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got != 42 {
		t.Errorf("entry received %v, want 42", got)
	}
	if st := s.State(); st != Idle {
		t.Errorf("state after completion is %s, want idle", st)
	}
}

func TestBlockAndResume(t *testing.T) {
	s := New()
	s.Logger = nil

	var trace []string
	err := s.Create(func(any) {
		trace = append(trace, "worker:start")
		if err := s.Block(); err != nil {
			t.Errorf("Block failed: %v", err)
		}
		trace = append(trace, "worker:resumed")
		if err := s.Block(); err != nil {
			t.Errorf("Block failed: %v", err)
		}
		trace = append(trace, "worker:end")
	}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	trace = append(trace, "main:after-create")
	if st := s.State(); st != Suspended {
		t.Fatalf("state is %s, want suspended", st)
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	trace = append(trace, "main:after-resume")

	if err := s.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	trace = append(trace, "main:done")

	want := []string{
		"worker:start",
		"main:after-create",
		"worker:resumed",
		"main:after-resume",
		"worker:end",
		"main:done",
	}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
	if st := s.State(); st != Idle {
		t.Errorf("state is %s, want idle", st)
	}
}

func TestCreateWhileSuspendedIsRejected(t *testing.T) {
	s := New()
	s.Logger = nil

	if err := s.Create(func(any) { s.Block() }, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ran := false
	err := s.Create(func(any) { ran = true }, nil)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second Create returned %v, want ErrBusy", err)
	}
	if ran {
		t.Error("second flow should not have run")
	}

	// finish the first flow, after which a new one is accepted
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if err := s.Create(func(any) { ran = true }, nil); err != nil {
		t.Fatalf("Create after completion failed: %v", err)
	}
	if !ran {
		t.Error("flow did not run")
	}
}

func TestMisuse(t *testing.T) {
	s := New()
	s.Logger = nil

	if err := s.Resume(); !errors.Is(err, ErrNotSuspended) {
		t.Errorf("Resume on idle switch returned %v, want ErrNotSuspended", err)
	}
	if err := s.Block(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Block on idle switch returned %v, want ErrNotRunning", err)
	}
}

func TestPanicEndsFlow(t *testing.T) {
	s := New()
	s.Logger = nil

	if err := s.Create(func(any) { panic("boom") }, nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if st := s.State(); st != Idle {
		t.Errorf("state after panic is %s, want idle", st)
	}
}

func TestDefaultSwitch(t *testing.T) {
	steps := 0
	err := Create(func(any) {
		steps++
		Block()
		steps++
	}, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if steps != 1 {
		t.Fatalf("steps = %d, want 1", steps)
	}
	if err := Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if steps != 2 {
		t.Errorf("steps = %d, want 2", steps)
	}
}
