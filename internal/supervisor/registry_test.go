package supervisor

import (
	"testing"

	"github.com/taskmastergo/taskmaster/internal/process"
)

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := newRegistry()
	r.replace(map[string]process.ProgramDefinition{
		"a": {Name: "a", NumProcs: 1},
	})

	snap := r.snapshot()
	snap["a"] = process.ProgramDefinition{Name: "a", NumProcs: 99}

	got, ok := r.get("a")
	if !ok || got.NumProcs != 1 {
		t.Fatalf("mutating a snapshot must not affect the registry, got %+v", got)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := newRegistry()
	if _, ok := r.get("nope"); ok {
		t.Fatalf("expected missing definition")
	}
}

func TestRegistryReplaceDropsStaleEntries(t *testing.T) {
	r := newRegistry()
	r.replace(map[string]process.ProgramDefinition{"a": {Name: "a"}})
	r.replace(map[string]process.ProgramDefinition{"b": {Name: "b"}})
	if _, ok := r.get("a"); ok {
		t.Fatalf("expected a to be gone after replace")
	}
	if _, ok := r.get("b"); !ok {
		t.Fatalf("expected b to be present after replace")
	}
}
