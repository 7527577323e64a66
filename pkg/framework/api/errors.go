package api

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// errorClass maps a sentinel to its response. The first match wins, so the
// narrower sentinels come before the ones they are wrapped with.
type errorClass struct {
	target error
	status int
	code   string
}

var errorClasses = []errorClass{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrMissingParameter, http.StatusBadRequest, "missing_parameter"},
	{apperrors.ErrInvalidParameter, http.StatusBadRequest, "invalid_parameter"},
	{apperrors.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{apperrors.ErrInvalid, http.StatusBadRequest, "validation_error"},
	{apperrors.ErrInvalidYAML, http.StatusBadRequest, "invalid_yaml"},
	{apperrors.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	{apperrors.ErrRestart, http.StatusBadGateway, "restart_failed"},
	{apperrors.ErrStorage, http.StatusInternalServerError, "storage_error"},
	{apperrors.ErrKubernetes, http.StatusInternalServerError, "kubernetes_error"},
	{apperrors.ErrEventStore, http.StatusServiceUnavailable, "event_store_unavailable"},
}

func classify(err error) (int, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	status, _ := classify(err)
	return status
}

func extractErrorCode(err error) string {
	if err == nil {
		return "unknown_error"
	}
	_, code := classify(err)
	return code
}
