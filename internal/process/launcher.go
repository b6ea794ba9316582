package process

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/taskmastergo/taskmaster/internal/env"
)

// Launcher spawns children for a ProgramDefinition (C3). A Launcher holds no
// mutable state of its own; the composer and the umask wrapping are the only
// moving parts, so a zero-value *Launcher with an env.Env is usable.
type Launcher struct {
	Env *env.Env
}

func NewLauncher(e *env.Env) *Launcher {
	if e == nil {
		e = env.New()
	}
	return &Launcher{Env: e}
}

// Spawn starts instance number index of def and returns its Instance record.
// Errors are always *SpawnError so callers can classify BadCommand/RedirectIoError/OsError.
func (l *Launcher) Spawn(def ProgramDefinition, index int) (*Instance, error) {
	name, args, err := def.Argv()
	if err != nil {
		return nil, newSpawnError(ErrBadCommand, err)
	}

	mask, err := ParseUmask(def.Umask)
	if err != nil {
		return nil, newSpawnError(ErrBadCommand, err)
	}
	if strings.TrimSpace(def.Umask) == "" {
		mask = -1 // no umask configured: exec directly
	}

	cmd := l.buildCommand(name, args, mask)

	if def.WorkingDir != "" {
		cmd.Dir = def.WorkingDir
	}
	cmd.Env = l.Env.Merge(def.EnvSlice())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = nil

	outF, errF, err := openRedirect(def.Stdout, def.Stderr)
	if err != nil {
		return nil, newSpawnError(ErrRedirectIO, err)
	}
	cmd.Stdout = outF
	cmd.Stderr = errF

	if err := cmd.Start(); err != nil {
		if outF != nil {
			_ = outF.Close()
		}
		if errF != nil {
			_ = errF.Close()
		}
		return nil, newSpawnError(ErrOS, err)
	}
	startTime := time.Now()

	inst := newInstance(index, def.Name, cmd, startTime)
	return inst, nil
}

// buildCommand wraps the child in a shell only when a umask must be applied
// between fork and exec; Go's SysProcAttr has no portable hook for that, so
// the child performs its own umask as the first action of a tiny launcher
// shell before exec'ing the real program. Otherwise the executable is invoked
// directly, avoiding an unnecessary shell and the injection surface it opens.
func (l *Launcher) buildCommand(name string, args []string, mask int) *exec.Cmd {
	if mask < 0 {
		// #nosec G204 -- name/args come from operator-controlled configuration.
		return exec.Command(name, args...)
	}
	shArgs := make([]string, 0, len(args)+3)
	shArgs = append(shArgs, "-c", fmt.Sprintf("umask %04o; exec \"$@\"", mask), "--", name)
	shArgs = append(shArgs, args...)
	// #nosec G204
	return exec.Command("/bin/sh", shArgs...)
}

func openRedirect(stdout, stderr string) (*os.File, *os.File, error) {
	var outF, errF *os.File
	var err error
	if stdout != "" {
		outF, err = os.OpenFile(stdout, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
	}
	if stderr != "" {
		errF, err = os.OpenFile(stderr, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			if outF != nil {
				_ = outF.Close()
			}
			return nil, nil, err
		}
	}
	return outF, errF, nil
}

// Signal sends sig to the instance's whole process group, matching the
// Setpgid:true spawn so descendants are reached too.
func (r *Instance) Signal(sig syscall.Signal) error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("instance has no process")
	}
	return syscall.Kill(-cmd.Process.Pid, sig)
}

// Kill forcefully terminates the instance with SIGKILL.
func (r *Instance) Kill() error {
	return r.Signal(syscall.SIGKILL)
}
