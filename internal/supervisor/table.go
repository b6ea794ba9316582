package supervisor

import "github.com/taskmastergo/taskmaster/internal/process"

// instanceTable is the Instance Table (C2): program name -> ordered list of
// live instance records. Insertion order is meaningful (instance index).
// All mutation happens under the supervisor's single lock.
type instanceTable struct {
	byName map[string][]*process.Instance
}

func newInstanceTable() *instanceTable {
	return &instanceTable{byName: make(map[string][]*process.Instance)}
}

func (t *instanceTable) get(name string) []*process.Instance {
	return t.byName[name]
}

// getOK distinguishes an absent entry from a present-but-empty one, used by
// the status command to tell "not running" apart from "exited".
func (t *instanceTable) getOK(name string) ([]*process.Instance, bool) {
	list, ok := t.byName[name]
	return list, ok
}

func (t *instanceTable) insert(name string, inst *process.Instance) {
	t.byName[name] = append(t.byName[name], inst)
}

// set replaces the full list for name (used to remove a single reaped entry
// or to install a freshly-reindexed list after reconciliation).
func (t *instanceTable) set(name string, list []*process.Instance) {
	if len(list) == 0 {
		delete(t.byName, name)
		return
	}
	t.byName[name] = list
}

func (t *instanceTable) remove(name string) []*process.Instance {
	list := t.byName[name]
	delete(t.byName, name)
	return list
}

// drain removes and returns every list in the table.
func (t *instanceTable) drain() map[string][]*process.Instance {
	out := t.byName
	t.byName = make(map[string][]*process.Instance)
	return out
}

// retainNonEmpty drops empty lists. Called at the end of the reaper sweep.
func (t *instanceTable) retainNonEmpty() {
	for name, list := range t.byName {
		if len(list) == 0 {
			delete(t.byName, name)
		}
	}
}

func (t *instanceTable) names() []string {
	out := make([]string, 0, len(t.byName))
	for name := range t.byName {
		out = append(out, name)
	}
	return out
}
