package api

import "time"

const (
	// HealthRequestTimeout bounds liveness and readiness probes.
	HealthRequestTimeout = 10 * time.Second

	// DefaultRequestTimeout is the default timeout for read-only API requests
	DefaultRequestTimeout = 5 * time.Second

	// EventsRequestTimeout covers event queries, which scan the event log.
	EventsRequestTimeout = 30 * time.Second

	// ResetRequestTimeout bounds a reset, which includes the service readiness wait
	ResetRequestTimeout = 2 * time.Minute
)

const maxRequestBodyBytes = 1 << 20

const (
	defaultEventLimit = 100
	defaultErrorLimit = 50
	maxEventLimit     = 1000
)
