package supervisor

import (
	"fmt"
	"time"

	"github.com/taskmastergo/taskmaster/internal/process"
)

// Reconcile implements C7's reload(): diff newDefs against the current
// registry, kill removed/changed programs, replace the registry, and refill
// newly-autostart programs. Killing is done under the lock (kill is treated
// as non-blocking per §5); spawning fresh instances happens after release.
func (s *Supervisor) Reconcile(newDefs map[string]process.ProgramDefinition) {
	var toStart []process.ProgramDefinition

	s.mu.Lock()
	old := s.reg.snapshot()
	now := time.Now()

	for name, oldDef := range old {
		newDef, stillPresent := newDefs[name]
		if stillPresent && oldDef.Equal(newDef) {
			continue // unchanged, explicit design choice to avoid churn (§4.7)
		}
		// Either removed entirely, or structurally changed: kill every
		// current instance and drop its list.
		for _, inst := range s.table.remove(name) {
			inst.RequestStop(now)
			_ = inst.Kill()
			s.log("Killed", fmt.Sprintf("%s instance %d", name, inst.Index))
		}
	}

	s.reg.replace(newDefs)

	for name, def := range newDefs {
		if !def.AutoStart {
			continue
		}
		if list, ok := s.table.getOK(name); ok && len(list) > 0 {
			continue
		}
		toStart = append(toStart, def)
	}
	s.mu.Unlock()

	for _, def := range toStart {
		s.startDefLocking(def, 0)
	}
}
