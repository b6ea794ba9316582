package process

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/taskmastergo/taskmaster/internal/env"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a unix-like environment")
	}
}

func TestLauncherSpawnAndWait(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.log")
	errp := filepath.Join(dir, "err.log")

	l := NewLauncher(env.New())
	def := ProgramDefinition{
		Name:   "hi",
		Cmd:    "/bin/echo hi",
		Stdout: out,
		Stderr: errp,
	}
	inst, err := l.Spawn(def, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	code := inst.Wait()
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if string(data) != "hi\n" {
		t.Fatalf("stdout = %q, want %q", data, "hi\n")
	}
}

func TestLauncherSpawnBadCommand(t *testing.T) {
	l := NewLauncher(env.New())
	_, err := l.Spawn(ProgramDefinition{Cmd: "   "}, 0)
	if err == nil {
		t.Fatalf("expected error for empty command")
	}
	var se *SpawnError
	if !asSpawnError(err, &se) {
		t.Fatalf("expected *SpawnError, got %T", err)
	}
	if se.Kind != ErrBadCommand {
		t.Fatalf("expected ErrBadCommand, got %v", se.Kind)
	}
}

func TestLauncherSpawnMissingExecutable(t *testing.T) {
	requireUnix(t)
	l := NewLauncher(env.New())
	_, err := l.Spawn(ProgramDefinition{Cmd: "/no/such/executable-taskmaster"}, 0)
	if err == nil {
		t.Fatalf("expected error for missing executable")
	}
}

func TestLauncherUmaskWrapping(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "touched")
	l := NewLauncher(env.New())
	def := ProgramDefinition{
		Name:  "touch",
		Cmd:   "/usr/bin/touch " + out,
		Umask: "0077",
	}
	inst, err := l.Spawn(def, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if code := inst.Wait(); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	time.Sleep(10 * time.Millisecond)
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm()&0o077 != 0 {
		t.Fatalf("umask not applied, perm = %o", fi.Mode().Perm())
	}
}

func asSpawnError(err error, target **SpawnError) bool {
	se, ok := err.(*SpawnError)
	if ok {
		*target = se
	}
	return ok
}
