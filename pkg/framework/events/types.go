package events

import "time"

type EventType string

const (
	EventTypeError   EventType = "error"
	EventTypeSuccess EventType = "success"
	EventTypeInfo    EventType = "info"
	EventTypeWarning EventType = "warning"
)

// Operations recorded while resetting the cartridge repository.
const (
	OperationErase   = "erase"
	OperationRestore = "restore"
	OperationRestart = "restart"
	OperationReady   = "ready"
	OperationReload  = "reload"
	OperationReset   = "reset"
)

type Event struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Type        EventType              `json:"type"`
	ResourceKey string                 `json:"resourceKey,omitempty"`
	Message     string                 `json:"message"`
	Error       string                 `json:"error,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

type EventFilters struct {
	ResourceKey string
	Type        EventType
	Operation   string
	Since       time.Time
	Until       time.Time
	Limit       int
	Offset      int
}

// Operation returns the reset step the event was recorded for.
func (e Event) Operation() string {
	op, _ := e.Details["operation"].(string)
	return op
}

// ValidOperation reports whether op is a step the reset hook records.
func ValidOperation(op string) bool {
	switch op {
	case OperationErase, OperationRestore, OperationRestart, OperationReady, OperationReload, OperationReset:
		return true
	}
	return false
}

func (t EventType) Valid() bool {
	switch t {
	case EventTypeError, EventTypeSuccess, EventTypeInfo, EventTypeWarning:
		return true
	}
	return false
}
