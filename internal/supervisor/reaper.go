package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/taskmastergo/taskmaster/internal/history"
	"github.com/taskmastergo/taskmaster/internal/metrics"
	"github.com/taskmastergo/taskmaster/internal/process"
)

// restartJob is a program instance awaiting a fresh spawn after the sweep
// released the lock, per §4.5 step 4.
type restartJob struct {
	def   process.ProgramDefinition
	index int
}

// RunReaper implements C5: one sweep per tick until ctx is cancelled.
func (s *Supervisor) RunReaper(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapOnce()
		}
	}
}

func (s *Supervisor) reapOnce() {
	var jobs []restartJob

	s.mu.Lock()
	defs := s.reg.snapshot()
	for name, list := range s.table.byName {
		kept := list[:0:0]
		exitedThisSweep := false
		for _, inst := range list {
			exited, code := inst.TryWait()
			if !exited {
				def := defs[name]
				process.Validate(inst, def.StartTime, name, s.log)
				kept = append(kept, inst)
				continue
			}

			exitedThisSweep = true
			def, defExists := defs[name]
			stopRequested := inst.WasStopRequested()
			if !stopRequested {
				s.log("Program", fmt.Sprintf("%s exited with status %d", name, code))
				restart := false
				if defExists {
					switch def.AutoRestart {
					case process.RestartAlways:
						restart = true
					case process.RestartUnexpected:
						restart = !def.ExpectedExit(code)
					}
				}
				if restart {
					metrics.IncRestart(name)
					jobs = append(jobs, restartJob{def: def, index: inst.Index})
				}
			}
			codeCopy := code
			s.recordEvent(history.EventStop, name, inst, &codeCopy)
		}
		s.table.set(name, kept)
		metrics.SetRunningInstances(name, len(kept))
		setProgramState(name, kept, exitedThisSweep)
	}
	s.table.retainNonEmpty()
	s.mu.Unlock()

	for _, job := range jobs {
		// The definition may have been removed or changed between exit
		// detection and here; re-check under the lock before spawning.
		s.mu.Lock()
		cur, ok := s.reg.get(job.def.Name)
		stillWanted := ok && cur.Equal(job.def)
		s.mu.Unlock()
		if !stillWanted {
			continue
		}
		// One attempt per restart: the startretries budget belongs to the
		// start paths, not to the reaper.
		inst, err := s.launcher.Spawn(job.def, job.index)
		if err != nil {
			s.log("Failed", fmt.Sprintf("Failed to restart %s instance %d: %v", job.def.Name, job.index, err))
			continue
		}
		process.Validate(inst, job.def.StartTime, job.def.Name, s.log)
		metrics.IncStart(job.def.Name)
		s.recordEvent(history.EventStart, job.def.Name, inst, nil)
		s.mu.Lock()
		s.table.insert(job.def.Name, inst)
		kept := s.table.get(job.def.Name)
		s.mu.Unlock()
		metrics.SetRunningInstances(job.def.Name, len(kept))
		setProgramState(job.def.Name, kept, false)
	}
}

// setProgramState keeps the current_state gauge (C12) in sync with the
// §4.9 state machine: starting, running, and exited are mutually exclusive
// per program. Called at the end of every reaper sweep and after a restart
// spawn, alongside the validator flip and the exit classification above.
func setProgramState(name string, kept []*process.Instance, exitedThisSweep bool) {
	if len(kept) == 0 {
		if exitedThisSweep {
			metrics.SetCurrentState(name, "starting", false)
			metrics.SetCurrentState(name, "running", false)
			metrics.SetCurrentState(name, "exited", true)
		}
		return
	}
	running := true
	for _, inst := range kept {
		if !inst.IsSuccessfullyStarted() {
			running = false
			break
		}
	}
	metrics.SetCurrentState(name, "exited", false)
	metrics.SetCurrentState(name, "running", running)
	metrics.SetCurrentState(name, "starting", !running)
}
