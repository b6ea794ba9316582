package supervisor

import "github.com/taskmastergo/taskmaster/internal/process"

// registry is the Program Registry (C1): the current desired set of program
// definitions. It supports only atomic replacement; callers serialize access
// through the supervisor's single lock, so registry itself holds no lock.
type registry struct {
	defs map[string]process.ProgramDefinition
}

func newRegistry() *registry {
	return &registry{defs: make(map[string]process.ProgramDefinition)}
}

// snapshot returns a shallow copy of the current definitions.
func (r *registry) snapshot() map[string]process.ProgramDefinition {
	out := make(map[string]process.ProgramDefinition, len(r.defs))
	for k, v := range r.defs {
		out[k] = v
	}
	return out
}

// replace atomically swaps the registry contents.
func (r *registry) replace(next map[string]process.ProgramDefinition) {
	r.defs = next
}

func (r *registry) get(name string) (process.ProgramDefinition, bool) {
	d, ok := r.defs[name]
	return d, ok
}
