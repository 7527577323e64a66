package api

import (
	"sync/atomic"
	"time"

	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
)

// resetTracker lets readiness and status requests observe resets without
// waiting on the reset lock.
type resetTracker struct {
	running atomic.Bool
	last    atomic.Pointer[ResetStatus]
}

func (t *resetTracker) begin() {
	t.running.Store(true)
}

func (t *resetTracker) finish(result *reset.Result, err error) {
	finished := time.Now()
	status := &ResetStatus{Finished: &finished, Result: result}
	if err != nil {
		status.Error = err.Error()
	}
	t.last.Store(status)
	t.running.Store(false)
}

func (t *resetTracker) snapshot() ResetStatus {
	var status ResetStatus
	if last := t.last.Load(); last != nil {
		status = *last
	}
	status.Running = t.running.Load()
	return status
}
