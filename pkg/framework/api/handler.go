package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-logr/logr"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
)

type Handler struct {
	logger     logr.Logger
	appName    string
	version    string
	hook       *reset.Hook
	repo       repository.Repository
	eventStore events.EventStorage

	// resetMu serializes resets and reloads
	resetMu sync.Mutex
	resets  resetTracker
}

func NewHandler(hook *reset.Hook, repo repository.Repository, eventStore events.EventStorage, logger logr.Logger, appName, version string) (*Handler, error) {
	if hook == nil {
		return nil, fmt.Errorf("handler requires a reset hook")
	}
	if repo == nil {
		return nil, fmt.Errorf("handler requires a cartridge repository")
	}

	if appName == "" {
		appName = "cartfixture"
	}

	return &Handler{
		logger:     logger,
		appName:    appName,
		version:    version,
		hook:       hook,
		repo:       repo,
		eventStore: eventStore,
	}, nil
}

func (h *Handler) parseJSONRequest(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes)).Decode(v)
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: invalid request body: JSON syntax error at position %d: %w", apperrors.ErrInvalidRequest, syntaxErr.Offset, syntaxErr)
		}
		var unmarshalTypeErr *json.UnmarshalTypeError
		if errors.As(err, &unmarshalTypeErr) {
			return fmt.Errorf("%w: invalid request body: JSON type error for field %s: expected %s, got %s", apperrors.ErrInvalidRequest, unmarshalTypeErr.Field, unmarshalTypeErr.Type, unmarshalTypeErr.Value)
		}
		return fmt.Errorf("%w: invalid request body: %w", apperrors.ErrInvalidRequest, err)
	}
	return nil
}
