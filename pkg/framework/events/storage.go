package events

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/garunski/cartridge-fixture/pkg/framework/database"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

const (
	keyPrefix        = "events/"
	byResourcePrefix = keyPrefix + "by-resource/"
	byTypePrefix     = keyPrefix + "by-type/"
	defaultListLimit = 100
)

type Storage struct {
	db     *database.DB
	logger logr.Logger
}

func NewStorage(db *database.DB, logger logr.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

func primaryKey(event Event) string {
	return fmt.Sprintf("%s%020d/%s", keyPrefix, event.Timestamp.UnixNano(), event.ID)
}

func resourceKey(event Event) string {
	return fmt.Sprintf("%s%s/%020d/%s", byResourcePrefix, event.ResourceKey, event.Timestamp.UnixNano(), event.ID)
}

func typeKey(event Event) string {
	return fmt.Sprintf("%s%s/%020d/%s", byTypePrefix, event.Type, event.Timestamp.UnixNano(), event.ID)
}

// indexKeys returns every key an event is written under.
func indexKeys(event Event) []string {
	keys := []string{primaryKey(event), typeKey(event)}
	if event.ResourceKey != "" {
		keys = append(keys, resourceKey(event))
	}
	return keys
}

func normalize(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return event
}

func (s *Storage) StoreEvent(event Event) error {
	event = normalize(event)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal event: %w", apperrors.ErrEventStore, err)
	}

	if err := s.db.Set(primaryKey(event), data); err != nil {
		return fmt.Errorf("%w: failed to store event: %w", apperrors.ErrEventStore, err)
	}

	for _, key := range indexKeys(event)[1:] {
		if err := s.db.Set(key, data); err != nil {
			s.logger.Error(err, "failed to store event index", "key", key)
		}
	}

	return nil
}

func (s *Storage) StoreEventsBatch(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batchItems := make(map[string][]byte)
	for _, event := range events {
		event = normalize(event)

		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Error(err, "failed to marshal event in batch", "eventID", event.ID)
			continue
		}

		for _, key := range indexKeys(event) {
			batchItems[key] = data
		}
	}

	if err := s.db.BatchSet(batchItems); err != nil {
		return fmt.Errorf("%w: failed to store events batch: %w", apperrors.ErrEventStore, err)
	}

	return nil
}

func (s *Storage) ListEvents(filters EventFilters) ([]Event, error) {
	prefix := keyPrefix
	if filters.ResourceKey != "" {
		prefix = byResourcePrefix + filters.ResourceKey + "/"
	} else if filters.Type != "" {
		prefix = byTypePrefix + string(filters.Type) + "/"
	}

	start, end := timeRange(prefix, filters.Since, filters.Until)
	allItems, err := s.db.ListRange(prefix, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list events: %w", apperrors.ErrEventStore, err)
	}

	events := []Event{}
	for key, data := range allItems {
		// the unfiltered prefix also covers the secondary indexes
		if prefix == keyPrefix && isIndexKey(key) {
			continue
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Error(err, "failed to unmarshal event", "key", key)
			continue
		}

		if filters.ResourceKey != "" && event.ResourceKey != filters.ResourceKey {
			continue
		}
		if filters.Type != "" && event.Type != filters.Type {
			continue
		}
		if filters.Operation != "" && event.Operation() != filters.Operation {
			continue
		}
		if !filters.Since.IsZero() && event.Timestamp.Before(filters.Since) {
			continue
		}
		if !filters.Until.IsZero() && event.Timestamp.After(filters.Until) {
			continue
		}

		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(events) {
		return []Event{}, nil
	}
	events = events[offset:]

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}

// timeRange narrows a scan of prefix to the keys stamped inside
// [since, until]. Every key under an events prefix carries the timestamp
// right after the prefix.
func timeRange(prefix string, since, until time.Time) (string, string) {
	var start, end string
	if !since.IsZero() && since.UnixNano() > 0 {
		start = fmt.Sprintf("%s%020d", prefix, since.UnixNano())
	}
	if !until.IsZero() && until.UnixNano() > 0 {
		end = fmt.Sprintf("%s%020d", prefix, until.UnixNano()+1)
	}
	return start, end
}

func (s *Storage) GetEventsByResource(key string, limit int) ([]Event, error) {
	return s.ListEvents(EventFilters{
		ResourceKey: key,
		Limit:       limit,
	})
}

func (s *Storage) GetRecentErrors(limit int) ([]Event, error) {
	return s.ListEvents(EventFilters{
		Type:  EventTypeError,
		Limit: limit,
	})
}

func (s *Storage) DeleteEvent(id string, timestamp time.Time) error {
	event := Event{ID: id, Timestamp: timestamp}

	data, err := s.db.Get(primaryKey(event))
	if err != nil {
		return fmt.Errorf("%w: event %s: %w", apperrors.ErrNotFound, id, err)
	}
	if err := json.Unmarshal(data, &event); err != nil {
		// without the body only the primary key is known
		return s.db.Delete(primaryKey(event))
	}

	return s.db.BatchDelete(indexKeys(event))
}
