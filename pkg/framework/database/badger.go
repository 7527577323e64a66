// Package database wraps BadgerDB as the key/value store behind the event log.
package database

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

var ErrNotFound = errors.New("key not found")

// valueLogFileSize keeps the on-disk footprint small; the event log holds
// short JSON records, not bulk data.
const valueLogFileSize = 64 << 20

type DB struct {
	db     *badger.DB
	logger logr.Logger
}

func NewDB(path string, logger logr.Logger) (*DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("%w: storage create directory: failed to create DB directory at %s: %w", apperrors.ErrStorage, path, err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ValueLogFileSize = valueLogFileSize

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: storage open database: failed to open BadgerDB at %s: %w", apperrors.ErrStorage, path, err)
	}

	logger.V(1).Info("opened event database", "path", path)
	return &DB{db: db, logger: logger}, nil
}

func (d *DB) Get(key string) ([]byte, error) {
	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("key not found: %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: storage get %s: %w", apperrors.ErrStorage, key, err)
	}

	return value, nil
}

func (d *DB) update(operation string, key string, fn func(*badger.Txn) error) error {
	if err := d.db.Update(fn); err != nil {
		return fmt.Errorf("%w: storage %s %s: %w", apperrors.ErrStorage, operation, key, err)
	}
	return nil
}

func (d *DB) Set(key string, value []byte) error {
	return d.update("set", key, func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (d *DB) Delete(key string) error {
	return d.update("delete", key, func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// List returns every key/value pair under prefix.
func (d *DB) List(prefix string) (map[string][]byte, error) {
	return d.ListRange(prefix, "", "")
}

// ListRange returns the pairs under prefix whose keys fall in [start, end).
// An empty start begins at the prefix and an empty end runs to its last key.
func (d *DB) ListRange(prefix, start, end string) (map[string][]byte, error) {
	if start == "" || start < prefix {
		start = prefix
	}

	results := make(map[string][]byte)
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(start)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			if end != "" && key >= end {
				break
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			results[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: storage list %s: %w", apperrors.ErrStorage, prefix, err)
	}
	return results, nil
}

// Count returns the number of keys under prefix without reading values.
func (d *DB) Count(prefix string) (int, error) {
	count := 0
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: storage count %s: %w", apperrors.ErrStorage, prefix, err)
	}
	return count, nil
}

func (d *DB) BatchSet(items map[string][]byte) error {
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()

	for key, value := range items {
		if err := wb.Set([]byte(key), value); err != nil {
			return fmt.Errorf("%w: storage batch set %s: %w", apperrors.ErrStorage, key, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: storage batch set flush: %w", apperrors.ErrStorage, err)
	}
	return nil
}

func (d *DB) BatchDelete(keys []string) error {
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if err := wb.Delete([]byte(key)); err != nil {
			d.logger.V(1).Info("failed to delete key in batch", "key", key, "error", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: storage batch delete flush: %w", apperrors.ErrStorage, err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// NewTestDB creates an in-memory database closed when the test ends.
func NewTestDB(t testing.TB) (*DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create test DB: %w", err)
	}
	testDB := &DB{db: db, logger: logr.Discard()}
	if t != nil {
		t.Cleanup(func() { testDB.Close() })
	}
	return testDB, nil
}
