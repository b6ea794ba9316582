package process

import (
	"os/exec"
	"testing"
	"time"
)

func TestInstanceTryWaitAndExitCode(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("/bin/sh", "-c", "exit 3")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	inst := newInstance(0, "x", cmd, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if exited, _ := inst.TryWait(); exited {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	exited, code := inst.TryWait()
	if !exited {
		t.Fatalf("expected exited=true")
	}
	if code != 3 {
		t.Fatalf("code = %d, want 3", code)
	}
	// idempotent
	if exited2, code2 := inst.TryWait(); !exited2 || code2 != 3 {
		t.Fatalf("second TryWait mismatch: %v %d", exited2, code2)
	}
}

func TestInstanceRequestStop(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("/bin/sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	inst := newInstance(0, "x", cmd, time.Now())
	defer func() { _ = inst.Kill() }()

	if inst.WasStopRequested() {
		t.Fatalf("expected WasStopRequested=false initially")
	}
	now := time.Now()
	inst.RequestStop(now)
	if !inst.WasStopRequested() {
		t.Fatalf("expected WasStopRequested=true after RequestStop")
	}
	if inst.TimeStoppedAt != now {
		t.Fatalf("TimeStoppedAt not recorded")
	}
}

func TestInstanceMarkStartedFlagIdempotent(t *testing.T) {
	requireUnix(t)
	cmd := exec.Command("/bin/sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	inst := newInstance(0, "x", cmd, time.Now())
	defer func() { _ = inst.Kill() }()

	if inst.IsSuccessfullyStarted() {
		t.Fatalf("expected false before flip")
	}
	inst.MarkStartedFlag()
	inst.MarkStartedFlag()
	if !inst.IsSuccessfullyStarted() {
		t.Fatalf("expected true after flip")
	}
}
