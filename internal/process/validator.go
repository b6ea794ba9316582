package process

import (
	"fmt"
	"time"
)

// LogFunc is how the validator (and the rest of this package) emits tagged
// log lines without importing the log sink package directly.
type LogFunc func(tag, message string)

// Validate implements C4: once an instance has lived at least starttimeSecs
// since it was spawned, flip SuccessfullyStarted and log the milestone.
// Idempotent: subsequent calls on an already-flipped record are no-ops.
// Never blocks, never touches the child.
func Validate(inst *Instance, starttimeSecs int, name string, log LogFunc) {
	if inst.IsSuccessfullyStarted() {
		return
	}
	elapsed := time.Since(inst.StartTime)
	if elapsed < time.Duration(starttimeSecs)*time.Second {
		return
	}
	inst.MarkStartedFlag()
	if log != nil {
		log("Started", fmt.Sprintf("%s successfully started (%.0fs)", name, elapsed.Seconds()))
	}
}
