package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskmastergo/taskmaster/internal/process"
)

// excludedFromRouting are never dispatched: KILL/STOP cannot be caught at
// all, and ILL/FPE/SEGV are synchronous crash signals the supervisor leaves
// to the default disposition, per §6.
var excludedFromRouting = map[syscall.Signal]bool{
	syscall.SIGKILL: true,
	syscall.SIGSTOP: true,
	syscall.SIGILL:  true,
	syscall.SIGFPE:  true,
	syscall.SIGSEGV: true,
}

// RunSignalRouter implements C6: a long-lived task dispatching SIGHUP to
// reload and any other signal to a per-program graceful stop.
func (s *Supervisor) RunSignalRouter(ctx context.Context, reload func()) {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-ch:
			sig, ok := raw.(syscall.Signal)
			if !ok || excludedFromRouting[sig] {
				continue
			}
			if sig == syscall.SIGHUP {
				reload()
				continue
			}
			s.dispatchGracefulStop(sig)
		}
	}
}

// dispatchGracefulStop schedules one stopper task per program whose
// stopsignal matches sig. Multiple matching programs are all stopped.
func (s *Supervisor) dispatchGracefulStop(sig syscall.Signal) {
	s.mu.Lock()
	var matches []process.ProgramDefinition
	for _, def := range s.reg.snapshot() {
		if def.StopSignal == sig {
			matches = append(matches, def)
		}
	}
	s.mu.Unlock()

	for _, def := range matches {
		go s.gracefulStopProgram(def)
	}
}

// gracefulStopProgram implements the stopper task described in §4.6: forward
// stopsignal immediately, wait stoptime, then forcefully kill. stop_requested
// is set on every targeted instance before the signal is forwarded, not after
// the sleep, so the reaper suppresses auto-restart for the whole window even
// if the child exits in response to the forwarded signal itself.
func (s *Supervisor) gracefulStopProgram(def process.ProgramDefinition) {
	s.log("Program", fmt.Sprintf("stopping %s via signal %d (stoptime %ds)", def.Name, def.StopSignal, def.StopTime))

	s.mu.Lock()
	snapshot := append([]*process.Instance(nil), s.table.get(def.Name)...)
	now := time.Now()
	for _, inst := range snapshot {
		inst.RequestStop(now)
	}
	s.mu.Unlock()

	for _, inst := range snapshot {
		_ = inst.Signal(def.StopSignal)
	}

	time.Sleep(time.Duration(def.StopTime) * time.Second)

	s.mu.Lock()
	live := s.table.get(def.Name)
	killAt := time.Now()
	for _, inst := range live {
		if !inst.WasStopRequested() {
			inst.RequestStop(killAt)
		}
		if err := inst.Kill(); err != nil {
			s.log("Failed", fmt.Sprintf("Failed to stop %s instance %d: %v", def.Name, inst.Index, err))
			continue
		}
		s.log("Stopped", fmt.Sprintf("%s instance %d", def.Name, inst.Index))
	}
	s.mu.Unlock()
}
