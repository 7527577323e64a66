package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
)

// serveEvents writes the result of query, or the error mapped to a status.
// Requests without an event store get 503 before query runs.
func (h *Handler) serveEvents(w http.ResponseWriter, query func(events.Reader) ([]events.Event, error), logMsg string, kv ...interface{}) {
	if h.eventStore == nil {
		WriteError(w, h.logger, fmt.Errorf("%w: event store not available", apperrors.ErrEventStore))
		return
	}

	eventList, err := query(h.eventStore)
	if err != nil {
		h.logger.Error(err, logMsg, kv...)
		WriteError(w, h.logger, err)
		return
	}
	WriteJSONResponse(w, h.logger, http.StatusOK, eventList)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := ParseQueryParams(r)
	if err != nil {
		WriteError(w, h.logger, fmt.Errorf("%w: invalid query parameters: %w", apperrors.ErrInvalid, err))
		return
	}

	h.serveEvents(w, func(store events.Reader) ([]events.Event, error) {
		return store.ListEvents(filters)
	}, "failed to list events")
}

// resourceKeyFromRequest reads the wildcard part of /api/events/*. Resource
// keys contain slashes, e.g. cartridges/mock/0.1/0.0.2.
func resourceKeyFromRequest(r *http.Request) string {
	if key := chi.URLParam(r, "*"); key != "" {
		return key
	}
	return strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"), "api/events/")
}

func (h *Handler) GetEventsByResource(w http.ResponseWriter, r *http.Request) {
	h.eventsForKey(w, r, resourceKeyFromRequest(r))
}

// GetCartridgeEvents lists what resets did to one cartridge identity.
func (h *Handler) GetCartridgeEvents(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromRequest(r)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	h.eventsForKey(w, r, id.Key())
}

func (h *Handler) eventsForKey(w http.ResponseWriter, r *http.Request, key string) {
	if err := ValidateKey(key); err != nil {
		WriteError(w, h.logger, fmt.Errorf("%w: invalid resourceKey: %w", apperrors.ErrInvalid, err))
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultEventLimit)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.serveEvents(w, func(store events.Reader) ([]events.Event, error) {
		return store.GetEventsByResource(key, limit)
	}, "failed to get events by resource", "resource", key)
}

func (h *Handler) GetRecentErrors(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultErrorLimit)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	h.serveEvents(w, func(store events.Reader) ([]events.Event, error) {
		return store.GetRecentErrors(limit)
	}, "failed to get recent errors")
}

// cleanupCutoff reads either an absolute before=RFC3339 or a relative
// olderThan=duration such as 72h.
func cleanupCutoff(r *http.Request, now time.Time) (time.Time, error) {
	q := r.URL.Query()
	beforeStr, olderThan := q.Get("before"), q.Get("olderThan")

	switch {
	case beforeStr != "" && olderThan != "":
		return time.Time{}, fmt.Errorf("%w: before and olderThan are mutually exclusive", apperrors.ErrInvalidParameter)
	case beforeStr != "":
		before, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid before parameter format (use RFC3339): %w", apperrors.ErrInvalidParameter, err)
		}
		return before, nil
	case olderThan != "":
		age, err := time.ParseDuration(olderThan)
		if err != nil || age <= 0 {
			return time.Time{}, fmt.Errorf("%w: olderThan must be a positive duration", apperrors.ErrInvalidParameter)
		}
		return now.Add(-age), nil
	}
	return time.Time{}, fmt.Errorf("%w: before or olderThan parameter is required", apperrors.ErrMissingParameter)
}

func (h *Handler) CleanupEvents(w http.ResponseWriter, r *http.Request) {
	before, err := cleanupCutoff(r, time.Now())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if h.eventStore == nil {
		WriteError(w, h.logger, fmt.Errorf("%w: event store not available", apperrors.ErrEventStore))
		return
	}

	if err := h.eventStore.CleanupOldEvents(before); err != nil {
		h.logger.Error(err, "failed to cleanup events")
		WriteError(w, h.logger, err)
		return
	}

	WriteMessage(w, h.logger, "Events recorded before "+before.Format(time.RFC3339)+" removed")
}

// DeleteEvent removes one event. The timestamp query parameter is the
// event's recorded timestamp, which locates its key.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if err := ValidateKey(id); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	tsStr := r.URL.Query().Get("timestamp")
	if tsStr == "" {
		WriteError(w, h.logger, fmt.Errorf("%w: timestamp parameter is required", apperrors.ErrMissingParameter))
		return
	}
	timestamp, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		WriteError(w, h.logger, fmt.Errorf("%w: invalid timestamp parameter format (use RFC3339): %w", apperrors.ErrInvalidParameter, err))
		return
	}

	if h.eventStore == nil {
		WriteError(w, h.logger, fmt.Errorf("%w: event store not available", apperrors.ErrEventStore))
		return
	}

	if err := h.eventStore.DeleteEvent(id, timestamp); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	WriteMessage(w, h.logger, "Event "+id+" removed")
}
