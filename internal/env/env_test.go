package env

import (
	"os"
	"strings"
	"testing"
)

func TestEnvMergePrecedence(t *testing.T) {
	_ = os.Setenv("TASKMASTER_ENV_TEST_BASE", "base")
	defer func() { _ = os.Unsetenv("TASKMASTER_ENV_TEST_BASE") }()

	e := New().WithSet("GLOBAL_KEY", "global")
	merged := e.Merge([]string{"GLOBAL_KEY=perproc", "ONLY_PER_PROC=x"})

	got := toMap(merged)
	if got["GLOBAL_KEY"] != "perproc" {
		t.Fatalf("per-process override did not win: %v", got["GLOBAL_KEY"])
	}
	if got["ONLY_PER_PROC"] != "x" {
		t.Fatalf("expected per-process-only var present")
	}
	if got["TASKMASTER_ENV_TEST_BASE"] != "base" {
		t.Fatalf("expected base OS env to be present")
	}
}

func TestEnvExpandsVariables(t *testing.T) {
	e := New().WithSet("HOSTROOT", "/srv")
	merged := e.Merge([]string{"DATA_DIR=${HOSTROOT}/data"})
	got := toMap(merged)
	if got["DATA_DIR"] != "/srv/data" {
		t.Fatalf("expected expansion, got %q", got["DATA_DIR"])
	}
}

func toMap(kvs []string) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}
