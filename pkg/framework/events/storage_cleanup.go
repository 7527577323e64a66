package events

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// DefaultBatchSize bounds how many events a cleanup deletes per write batch.
const DefaultBatchSize = 1000

func isIndexKey(key string) bool {
	return strings.HasPrefix(key, byResourcePrefix) || strings.HasPrefix(key, byTypePrefix)
}

func (s *Storage) CleanupOldEvents(before time.Time) error {
	allItems, err := s.db.List(keyPrefix)
	if err != nil {
		return apperrors.WrapStorage(err, "failed to list events for cleanup")
	}

	var keysToDelete []string
	processed := 0
	for key, data := range allItems {
		if isIndexKey(key) {
			continue
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil || event.ID == "" {
			// unreadable records are dropped with the expired ones
			keysToDelete = append(keysToDelete, key)
			processed++
			continue
		}

		if event.Timestamp.Before(before) {
			keysToDelete = append(keysToDelete, indexKeys(event)...)
			processed++
		}
	}

	deletedCount := 0
	for i := 0; i < len(keysToDelete); i += DefaultBatchSize {
		end := min(i+DefaultBatchSize, len(keysToDelete))
		batch := keysToDelete[i:end]

		if err := s.db.BatchDelete(batch); err != nil {
			s.logger.Error(err, "failed to batch delete events", "count", len(batch))

			for _, key := range batch {
				if err := s.db.Delete(key); err != nil {
					if isIndexKey(key) {
						s.logger.V(1).Info("failed to delete event index entry (non-critical)", "key", key, "error", err)
					} else {
						s.logger.Error(err, "failed to delete event", "key", key)
					}
					continue
				}
				deletedCount++
			}
			continue
		}
		deletedCount += len(batch)
	}

	s.logger.Info("Cleaned up old events", "deleted", deletedCount, "processed", processed, "before", before)
	return nil
}
