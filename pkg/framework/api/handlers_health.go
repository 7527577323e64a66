package api

import (
	"fmt"
	"net/http"
	"time"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, h.logger, http.StatusOK, HealthStatus{
		Status:    statusHealthy,
		Version:   h.version,
		Timestamp: time.Now(),
	})
}

// Readyz always answers 200 so test runners can poll it while a reset is in
// flight. A missing event store or a failed last reset marks the node
// degraded.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	components := map[string]ComponentStatus{
		"repository": h.repositoryStatus(),
		"eventStore": h.eventStoreStatus(),
		"reset":      h.resetStatus(),
	}

	status := HealthStatus{
		Status:     statusHealthy,
		Version:    h.version,
		Timestamp:  time.Now(),
		Components: components,
	}
	for _, c := range components {
		if c.Status == "unavailable" || c.Status == "failed" {
			status.Status = statusDegraded
		}
	}

	WriteJSONResponse(w, h.logger, http.StatusOK, status)
}

func (h *Handler) repositoryStatus() ComponentStatus {
	return ComponentStatus{
		Status:  statusHealthy,
		Message: fmt.Sprintf("%d cartridges indexed", len(h.repo.List())),
	}
}

func (h *Handler) eventStoreStatus() ComponentStatus {
	if h.eventStore == nil {
		return ComponentStatus{Status: "unavailable", Message: "Event store not initialized"}
	}
	if _, err := h.eventStore.GetRecentErrors(1); err != nil {
		return ComponentStatus{Status: "unavailable", Message: err.Error()}
	}
	return ComponentStatus{Status: "available"}
}

func (h *Handler) resetStatus() ComponentStatus {
	last := h.resets.snapshot()
	switch {
	case last.Running:
		return ComponentStatus{Status: "running"}
	case last.Finished == nil:
		return ComponentStatus{Status: "idle"}
	case last.Error != "":
		return ComponentStatus{Status: "failed", Message: last.Error}
	}
	return ComponentStatus{
		Status:  "succeeded",
		Message: "last reset finished " + last.Finished.Format(time.RFC3339),
	}
}
