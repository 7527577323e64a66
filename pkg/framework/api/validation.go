package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
)

const maxKeyLength = 512

func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", apperrors.ErrInvalid)
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: key must be %d characters or less", apperrors.ErrInvalid, maxKeyLength)
	}
	return nil
}

func parseLimit(limitStr string, defaultLimit int) (int, error) {
	if limitStr == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", apperrors.ErrInvalid)
	}
	if limit > maxEventLimit {
		return 0, fmt.Errorf("%w: limit cannot exceed %d", apperrors.ErrInvalid, maxEventLimit)
	}
	return limit, nil
}

func parseTimeParam(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339: %w", apperrors.ErrInvalid, name, err)
	}
	return t, nil
}

func ParseQueryParams(r *http.Request) (events.EventFilters, error) {
	return ParseEventQueryParams(r.URL.Query())
}

// ParseEventQueryParams builds event filters from a query string. The
// resource can be given as a raw key, as cartridge=name/version/release or
// as service=name; only one of them may be set.
func ParseEventQueryParams(queryParams map[string][]string) (events.EventFilters, error) {
	q := url.Values(queryParams)
	filters := events.EventFilters{}

	resource, err := resourceFilter(q)
	if err != nil {
		return filters, err
	}
	filters.ResourceKey = resource

	if typeStr := q.Get("type"); typeStr != "" {
		eventType := events.EventType(typeStr)
		if !eventType.Valid() {
			return filters, fmt.Errorf("%w: invalid event type: %s (must be one of: error, success, info, warning)", apperrors.ErrInvalid, typeStr)
		}
		filters.Type = eventType
	}

	if op := q.Get("operation"); op != "" {
		if !events.ValidOperation(op) {
			return filters, fmt.Errorf("%w: unknown operation %q", apperrors.ErrInvalid, op)
		}
		filters.Operation = op
	}

	if filters.Since, err = parseTimeParam("since", q.Get("since")); err != nil {
		return filters, err
	}
	if filters.Until, err = parseTimeParam("until", q.Get("until")); err != nil {
		return filters, err
	}
	if !filters.Since.IsZero() && !filters.Until.IsZero() && filters.Until.Before(filters.Since) {
		return filters, fmt.Errorf("%w: until must not be before since", apperrors.ErrInvalid)
	}

	if filters.Limit, err = parseLimit(q.Get("limit"), defaultEventLimit); err != nil {
		return filters, err
	}

	if offsetStr := q.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filters, fmt.Errorf("%w: invalid offset parameter: must be a non-negative integer", apperrors.ErrInvalid)
		}
		filters.Offset = offset
	}

	return filters, nil
}

func resourceFilter(q url.Values) (string, error) {
	var keys []string

	if resource := q.Get("resource"); resource != "" {
		if err := ValidateKey(resource); err != nil {
			return "", fmt.Errorf("%w: invalid resource parameter: %w", apperrors.ErrInvalid, err)
		}
		keys = append(keys, resource)
	}
	if ref := q.Get("cartridge"); ref != "" {
		id, err := cartridge.ParseKey(cartridge.KeyPrefix + ref)
		if err != nil {
			return "", fmt.Errorf("%w: invalid cartridge parameter: %w", apperrors.ErrInvalid, err)
		}
		keys = append(keys, id.Key())
	}
	if name := q.Get("service"); name != "" {
		keys = append(keys, events.ServiceKey(name))
	}

	if len(keys) > 1 {
		return "", fmt.Errorf("%w: resource, cartridge and service are mutually exclusive", apperrors.ErrInvalid)
	}
	if len(keys) == 0 {
		return "", nil
	}
	return keys[0], nil
}
