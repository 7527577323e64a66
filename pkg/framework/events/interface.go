package events

import "time"

// Recorder appends entries to the reset event log.
type Recorder interface {
	StoreEvent(event Event) error
	StoreEventsBatch(events []Event) error
}

// Reader queries the reset event log. Results are newest first.
type Reader interface {
	ListEvents(filters EventFilters) ([]Event, error)
	GetEventsByResource(key string, limit int) ([]Event, error)
	GetRecentErrors(limit int) ([]Event, error)
}

// EventStorage is the full event log, including retention.
type EventStorage interface {
	Recorder
	Reader

	// CleanupOldEvents drops events recorded before the cutoff.
	CleanupOldEvents(before time.Time) error
	DeleteEvent(id string, timestamp time.Time) error
}

var _ EventStorage = (*Storage)(nil)
