package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
)

// Reset runs the cartridge repository reset. The body is optional; when it
// lists candidates they replace the configured ones for this request.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := h.parseJSONRequest(r, &req); err != nil {
			WriteError(w, h.logger, err)
			return
		}
	}
	for _, id := range req.Candidates {
		if err := id.Validate(); err != nil {
			WriteError(w, h.logger, fmt.Errorf("%w: invalid candidate: %w", apperrors.ErrInvalidRequest, err))
			return
		}
	}

	result, err := h.runReset(r.Context(), func(ctx context.Context) (*reset.Result, error) {
		if len(req.Candidates) > 0 {
			return h.hook.ResetCandidates(ctx, req.Candidates)
		}
		return h.hook.Reset(ctx)
	})
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	WriteJSONResponse(w, h.logger, http.StatusOK, result)
}

// runReset serializes resets and records their outcome for ResetStatus.
// The reset is detached from ctx: once started it runs to the end even if
// the client goes away, bounded by the hook's own readiness timeout.
func (h *Handler) runReset(ctx context.Context, run func(context.Context) (*reset.Result, error)) (*reset.Result, error) {
	h.resetMu.Lock()
	defer h.resetMu.Unlock()

	h.resets.begin()
	result, err := run(context.WithoutCancel(ctx))
	h.resets.finish(result, err)
	if err != nil {
		h.logger.Error(err, "cartridge repository reset failed")
	}
	return result, err
}

// Scenario is the remote form of the Before and After hooks. The reset runs
// only when the scenario carries the configured tag.
func (h *Handler) Scenario(w http.ResponseWriter, r *http.Request) {
	phase := chi.URLParam(r, "phase")
	if phase != "before" && phase != "after" {
		WriteError(w, h.logger, fmt.Errorf("%w: phase must be before or after, got %q", apperrors.ErrInvalidParameter, phase))
		return
	}

	var req ScenarioRequest
	if err := h.parseJSONRequest(r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resp := ScenarioResponse{Phase: phase}
	if !h.hook.Applies(req.Tags) {
		resp.Skipped = true
		WriteJSONResponse(w, h.logger, http.StatusOK, resp)
		return
	}

	h.logger.V(1).Info("running scenario reset", "phase", phase, "tags", req.Tags)
	result, err := h.runReset(r.Context(), h.hook.Reset)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	resp.Result = result
	WriteJSONResponse(w, h.logger, http.StatusOK, resp)
}

// ResetStatus reports whether a reset is running and how the last one ended.
func (h *Handler) ResetStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, h.logger, http.StatusOK, h.resets.snapshot())
}

// Reload rebuilds the repository index from disk without erasing anything.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.resetMu.Lock()
	defer h.resetMu.Unlock()

	h.repo.Clear()
	if err := h.repo.Load(context.WithoutCancel(r.Context())); err != nil {
		h.logger.Error(err, "failed to reload cartridge repository")
		WriteError(w, h.logger, err)
		return
	}

	cartridges := len(h.repo.List())
	WriteJSONResponse(w, h.logger, http.StatusOK, ReloadResponse{
		Message:    "Cartridge repository reloaded",
		Cartridges: cartridges,
	})
}
