package events

import "github.com/go-logr/logr"

// Record writes evs to rec. The event log is an audit trail of resets, so a
// failed write is logged at V(1) and never fails the caller. A nil recorder
// drops the events.
func Record(rec Recorder, logger logr.Logger, evs ...Event) {
	if rec == nil || len(evs) == 0 {
		return
	}

	var err error
	if len(evs) == 1 {
		err = rec.StoreEvent(evs[0])
	} else {
		err = rec.StoreEventsBatch(evs)
	}
	if err != nil {
		first := evs[0]
		logger.V(1).Info("dropping reset events",
			"error", err,
			"count", len(evs),
			"resourceKey", first.ResourceKey,
			"operation", first.Operation())
	}
}
