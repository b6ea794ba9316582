package supervisor

import (
	"testing"

	"github.com/taskmastergo/taskmaster/internal/process"
)

func TestReconcileSkipsUnchangedDefinition(t *testing.T) {
	requireUnix(t)
	sup := newTestSupervisor()
	def := process.ProgramDefinition{Name: "svc", Cmd: "/bin/sleep 30", NumProcs: 1, StartRetries: 1}
	sup.startDefLocking(def, 0)
	sup.mu.Lock()
	sup.reg.replace(map[string]process.ProgramDefinition{"svc": def})
	before := sup.table.get("svc")[0].PID()
	sup.mu.Unlock()

	sup.Reconcile(map[string]process.ProgramDefinition{"svc": def})

	sup.mu.Lock()
	after := sup.table.get("svc")[0].PID()
	sup.mu.Unlock()
	if before != after {
		t.Fatalf("expected unchanged definition to leave the running instance untouched")
	}
}

func TestReconcileKillsRemovedProgram(t *testing.T) {
	requireUnix(t)
	sup := newTestSupervisor()
	def := process.ProgramDefinition{Name: "svc", Cmd: "/bin/sleep 30", NumProcs: 1, AutoStart: true, StartRetries: 1}
	sup.Bootstrap(map[string]process.ProgramDefinition{"svc": def})
	sup.mu.Lock()
	running := len(sup.table.get("svc"))
	sup.mu.Unlock()
	if running != 1 {
		t.Fatalf("expected one instance running before reload, got %d", running)
	}

	sup.Reconcile(map[string]process.ProgramDefinition{})

	sup.mu.Lock()
	_, ok := sup.table.getOK("svc")
	_, regOK := sup.reg.get("svc")
	sup.mu.Unlock()
	if ok || regOK {
		t.Fatalf("expected removed program to be killed and dropped from the registry")
	}
}
