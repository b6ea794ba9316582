// Package supervisor implements the core engine described in SPEC_FULL.md
// §2-§5: the Program Registry (C1) and Instance Table (C2) behind a single
// coarse lock, with the Process Launcher (C3), Startup Validator (C4),
// Reaper/Restart Loop (C5), Signal Router (C6), Config Reconciler (C7) and
// Command Surface (C8) all operating over that shared state.
package supervisor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskmastergo/taskmaster/internal/history"
	"github.com/taskmastergo/taskmaster/internal/metrics"
	"github.com/taskmastergo/taskmaster/internal/process"
)

// LogFunc emits one tagged line to the operator log (C10). Aliased to
// process.LogFunc so values flow between the two packages (e.g. into
// process.Validate) without a conversion at every call site.
type LogFunc = process.LogFunc

// Supervisor owns the single supervisory lock guarding the (registry, table)
// pair, per §5. All mutation of either structure happens with mu held.
type Supervisor struct {
	mu sync.Mutex

	reg   *registry
	table *instanceTable

	launcher *process.Launcher
	log      LogFunc
	hist     history.Sink // optional, may be nil
}

func New(launcher *process.Launcher, log LogFunc, hist history.Sink) *Supervisor {
	if log == nil {
		log = func(string, string) {}
	}
	return &Supervisor{
		reg:      newRegistry(),
		table:    newInstanceTable(),
		launcher: launcher,
		log:      log,
		hist:     hist,
	}
}

// Bootstrap installs the initial Program Registry (no locking needed, no
// other task is running yet) and spawns every autostart program.
func (s *Supervisor) Bootstrap(defs map[string]process.ProgramDefinition) {
	s.mu.Lock()
	s.reg.replace(defs)
	s.mu.Unlock()

	s.autostartAll()
}

func (s *Supervisor) autostartAll() {
	s.mu.Lock()
	var toStart []process.ProgramDefinition
	for _, def := range s.reg.snapshot() {
		if !def.AutoStart {
			continue
		}
		if list := s.table.get(def.Name); len(list) > 0 {
			continue
		}
		toStart = append(toStart, def)
	}
	s.mu.Unlock()

	for _, def := range toStart {
		s.startDefLocking(def, 0)
	}
}

// startDefLocking spawns def.NumProcs instances (with retry) starting at
// startIndex and installs the resulting list into the table. It acquires the
// lock only around the install, per §5's "no spawn while holding the lock".
func (s *Supervisor) startDefLocking(def process.ProgramDefinition, startIndex int) []*process.Instance {
	insts := s.spawnRange(def, startIndex, def.NumProcs)
	s.mu.Lock()
	existing := s.table.get(def.Name)
	s.table.set(def.Name, append(existing, insts...))
	s.mu.Unlock()
	return insts
}

// spawnRange runs the §4.8 retry algorithm for instance indices
// [startIndex, startIndex+count) and returns the successfully spawned ones.
// Never called with the lock held.
func (s *Supervisor) spawnRange(def process.ProgramDefinition, startIndex, count int) []*process.Instance {
	out := make([]*process.Instance, 0, count)
	for i := 0; i < count; i++ {
		idx := startIndex + i
		if inst := s.spawnOneWithRetry(def, idx); inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

func (s *Supervisor) spawnOneWithRetry(def process.ProgramDefinition, index int) *process.Instance {
	label := fmt.Sprintf("%s instance %d", def.Name, index)
	attempts := 0
	retries := def.StartRetries
	if retries <= 0 {
		retries = 1
	}
	for attempts < retries {
		inst, err := s.launcher.Spawn(def, index)
		if err == nil {
			process.Validate(inst, def.StartTime, def.Name, s.log)
			metrics.IncStart(def.Name)
			s.recordEvent(history.EventStart, def.Name, inst, nil)
			return inst
		}
		attempts++
		if attempts < retries {
			s.log("Retry", fmt.Sprintf("failed to start %s (attempt %d/%d): %v", label, attempts, retries, err))
		}
	}
	s.log("Failed", fmt.Sprintf("Failed to start %s after %d attempts", label, retries))
	return nil
}

func (s *Supervisor) recordEvent(typ history.EventType, name string, inst *process.Instance, exitCode *int) {
	if s.hist == nil {
		return
	}
	code := -1
	if exitCode != nil {
		code = *exitCode
	}
	ev := history.Event{Type: typ, Record: history.Record{
		Program: name, Index: inst.Index, PID: inst.PID(), At: time.Now(), ExitCode: code,
	}}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.hist.Send(ctx, ev); err != nil {
			s.log("Failed", fmt.Sprintf("history sink error: %v", err))
		}
	}()
}

// StatusLines implements C8's `status` verb.
func (s *Supervisor) StatusLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.reg.defs))
	for n := range s.reg.defs {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, n := range names {
		list, ok := s.table.getOK(n)
		switch {
		case len(list) > 0:
			out = append(out, fmt.Sprintf("%s status: running (%d instances)", n, len(list)))
		case ok:
			out = append(out, fmt.Sprintf("%s status: exited", n))
		default:
			out = append(out, fmt.Sprintf("%s status: not running", n))
		}
	}
	return out
}

// StartProgram implements C8's `start <name>` verb.
func (s *Supervisor) StartProgram(name string) string {
	s.mu.Lock()
	def, ok := s.reg.get(name)
	if !ok {
		s.mu.Unlock()
		return "Program not found"
	}
	if _, tableOK := s.table.getOK(name); tableOK {
		s.mu.Unlock()
		return fmt.Sprintf("Program %s is already running", name)
	}
	s.mu.Unlock()

	insts := s.startDefLocking(def, 0)
	return fmt.Sprintf("Started %s (%d instances)", name, len(insts))
}

// StopProgram implements C8's `stop <name>` verb: removes the list, requests
// stop on each record, and forcefully kills it. Failures are reinserted
// (the child is presumed still alive), per §7's KillError policy.
func (s *Supervisor) StopProgram(name string) []string {
	s.mu.Lock()
	list := s.table.remove(name)
	s.mu.Unlock()

	var msgs []string
	var keep []*process.Instance
	now := time.Now()
	for _, inst := range list {
		inst.RequestStop(now)
		if err := inst.Kill(); err != nil {
			msgs = append(msgs, fmt.Sprintf("Failed to stop %s instance %d: %v", name, inst.Index, err))
			keep = append(keep, inst)
			continue
		}
		msgs = append(msgs, fmt.Sprintf("Stopped %s instance %d", name, inst.Index))
		s.log("Stopped", fmt.Sprintf("%s instance %d", name, inst.Index))
		code := inst.Wait()
		metrics.IncStop(name)
		s.recordEvent(history.EventStop, name, inst, &code)
	}
	if len(keep) > 0 {
		s.mu.Lock()
		existing := s.table.get(name)
		s.table.set(name, append(existing, keep...))
		s.mu.Unlock()
	}
	return msgs
}

// RestartProgram implements C8's `restart <name>` verb: stop-then-wait every
// existing instance, then start fresh, with indices restarting from 0.
func (s *Supervisor) RestartProgram(name string) []string {
	s.mu.Lock()
	def, ok := s.reg.get(name)
	list := s.table.remove(name)
	s.mu.Unlock()

	var msgs []string
	now := time.Now()
	for _, inst := range list {
		inst.RequestStop(now)
		_ = inst.Kill()
	}
	for _, inst := range list {
		code := inst.Wait()
		msgs = append(msgs, fmt.Sprintf("Stopped %s instance %d", name, inst.Index))
		s.log("Stopped", fmt.Sprintf("%s instance %d", name, inst.Index))
		metrics.IncStop(name)
		s.recordEvent(history.EventStop, name, inst, &code)
	}

	if !ok {
		return append(msgs, "Program not found")
	}

	insts := s.startDefLocking(def, 0)
	for _, inst := range insts {
		msgs = append(msgs, fmt.Sprintf("Started %s instance %d", name, inst.Index))
		s.log("Restarted", fmt.Sprintf("%s instance %d", name, inst.Index))
	}
	return msgs
}

// KillAll stops every running instance of every program, used on shutdown
// (C8's exit/quit verb).
func (s *Supervisor) KillAll() []string {
	s.mu.Lock()
	drained := s.table.drain()
	s.mu.Unlock()

	var msgs []string
	now := time.Now()
	for name, list := range drained {
		for _, inst := range list {
			inst.RequestStop(now)
			_ = inst.Kill()
			msgs = append(msgs, fmt.Sprintf("Killed %s instance %d", name, inst.Index))
			s.log("Killed", fmt.Sprintf("%s instance %d", name, inst.Index))
		}
	}
	return msgs
}

// Snapshot returns a copy of the current registry.
func (s *Supervisor) Snapshot() map[string]process.ProgramDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.snapshot()
}

// ResourceSamples returns a read-only snapshot of live instances for the
// resource observer (C13), taking the lock only briefly.
func (s *Supervisor) ResourceSamples() []metrics.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []metrics.Sample
	for name, list := range s.table.byName {
		for _, inst := range list {
			if pid := inst.PID(); pid > 0 {
				out = append(out, metrics.Sample{Name: name, Index: inst.Index, PID: int32(pid)})
			}
		}
	}
	return out
}
