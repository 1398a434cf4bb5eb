// Package worker implements the worker-side execution half of the engine:
// the OrchestrationCursor that replays and advances one orchestration turn,
// and the ActivityRunner that invokes a single activity. It is the
// load-bearing counterpart to backend's ActionApplier: the backend decides
// what history means, the cursor decides what user code does with it.
package worker

import (
	"encoding/json"
	"fmt"
)

// taskResult is the resolved value or error a task settles with.
type taskResult struct {
	payload []byte
	err     error
}

// taskHandle is the concrete Task implementation returned by every
// task.OrchestrationContext method that suspends. It is always constructed
// already knowing whether history has a matching completion: a resolved
// handle's Await returns immediately, an unresolved one's Await parks the
// whole turn (see errUnresolvedAwait).
type taskHandle struct {
	resolved bool
	result   taskResult
}

func newTask() *taskHandle {
	return &taskHandle{}
}

// resolve settles t. It is only ever called before t is handed to user code
// (for already-completed history) or never at all (for a pending one) —
// the cursor's replay index is built in full before the orchestrator
// function runs, so there is no concurrent-resolution case to guard here.
func (t *taskHandle) resolve(payload []byte, err error) {
	t.resolved = true
	t.result = taskResult{payload: payload, err: err}
}

// Await implements task.Task.
func (t *taskHandle) Await(v interface{}) error {
	if !t.resolved {
		panic(errUnresolvedAwait)
	}
	if t.result.err != nil {
		return t.result.err
	}
	if v == nil || len(t.result.payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.result.payload, v); err != nil {
		return fmt.Errorf("worker: failed to decode task result: %w", err)
	}
	return nil
}

// errUnresolvedAwait is the sentinel panic value a pending task's Await
// raises to unwind the call stack back to OrchestrationCursor.Run without
// needing a second goroutine or channel handshake per suspension point —
// see the recover in Run. Every turn replays the orchestrator function from
// the top, so there is nothing to resume: a parked turn's only remaining
// job is to report the actions collected so far.
var errUnresolvedAwait = &parkSignal{}

// parkSignal is a distinct type (not error) so a recover() can tell "the
// orchestrator parked on an unresolved task" apart from an actual user-code
// panic, which must propagate as a failed execution rather than be
// silently swallowed.
type parkSignal struct{}
