package process

import (
	"os/exec"
	"sync"
	"time"
)

// Instance is the mutable record owned by the Instance Table (C2).
// Only C4 (the flag flip) and C5/C6/C8 (stop requests) mutate it after C3 creates it.
type Instance struct {
	mu sync.Mutex

	Index int
	Name  string // base program name

	cmd     *exec.Cmd
	waitCh  chan struct{} // closed by the background waiter once cmd.Wait() returns

	StartTime           time.Time
	SuccessfullyStarted bool
	StopRequested       bool
	TimeStoppedAt       time.Time

	exited   bool
	exitCode int
}

// newInstance wires up the background waiter that turns the blocking cmd.Wait()
// into something the reaper sweep can poll without holding the supervisory lock
// for the duration of a child's lifetime.
func newInstance(index int, name string, cmd *exec.Cmd, startTime time.Time) *Instance {
	r := &Instance{
		Index:     index,
		Name:      name,
		cmd:       cmd,
		waitCh:    make(chan struct{}),
		StartTime: startTime,
	}
	go func() {
		_ = cmd.Wait()
		close(r.waitCh)
	}()
	return r
}

// PID returns the child's process id, or 0 if unavailable.
func (r *Instance) PID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.cmd.Process == nil {
		return 0
	}
	return r.cmd.Process.Pid
}

// MarkStartedFlag flips SuccessfullyStarted. Called only by the validator (C4).
func (r *Instance) MarkStartedFlag() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SuccessfullyStarted = true
}

// IsSuccessfullyStarted reports the current flag value.
func (r *Instance) IsSuccessfullyStarted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.SuccessfullyStarted
}

// RequestStop sets StopRequested and TimeStoppedAt together, per the §5 ordering
// guarantee that the reaper observes a consistent record.
func (r *Instance) RequestStop(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StopRequested = true
	r.TimeStoppedAt = at
}

// WasStopRequested reports whether the supervisor already asked this instance to stop.
func (r *Instance) WasStopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.StopRequested
}

// TryWait is the reaper's non-blocking check for child exit. Safe to call
// repeatedly; once exited it keeps returning the same code.
func (r *Instance) TryWait() (exited bool, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exited {
		return true, r.exitCode
	}
	select {
	case <-r.waitCh:
		r.exited = true
		r.exitCode = exitCodeOf(r.cmd)
		return true, r.exitCode
	default:
		return false, 0
	}
}

// Wait blocks until the child has exited, returning its exit code.
// Used by the interactive "restart" command so it does not race the reaper.
func (r *Instance) Wait() int {
	r.mu.Lock()
	cmd := r.cmd
	ch := r.waitCh
	already := r.exited
	code := r.exitCode
	r.mu.Unlock()
	if already {
		return code
	}
	<-ch
	r.mu.Lock()
	r.exited = true
	r.exitCode = exitCodeOf(cmd)
	code = r.exitCode
	r.mu.Unlock()
	return code
}

func exitCodeOf(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
