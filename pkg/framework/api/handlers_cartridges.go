package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

func (h *Handler) ListCartridges(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, h.logger, http.StatusOK, CartridgeListResponse{Cartridges: h.repo.List()})
}

func identityFromRequest(r *http.Request) (cartridge.Identity, error) {
	id := cartridge.Identity{
		Name:    chi.URLParam(r, "name"),
		Version: chi.URLParam(r, "version"),
		Release: chi.URLParam(r, "release"),
	}
	if err := id.Validate(); err != nil {
		return cartridge.Identity{}, err
	}
	return id, nil
}

func (h *Handler) GetCartridge(w http.ResponseWriter, r *http.Request) {
	id, err := identityFromRequest(r)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	data, ok := h.repo.Get(id)
	if !ok {
		WriteError(w, h.logger, fmt.Errorf("%w: cartridge %s", apperrors.ErrNotFound, id))
		return
	}

	WriteYAMLResponse(w, h.logger, data)
}
