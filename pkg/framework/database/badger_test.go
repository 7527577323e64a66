package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
)

func TestDBGetSet(t *testing.T) {
	db, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	testKey := "events/00000000000000000001/abc"
	testValue := []byte(`{"message":"erased"}`)

	if err := db.Set(testKey, testValue); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	val, err := db.Get(testKey)
	if err != nil {
		t.Fatalf("failed to get value: %v", err)
	}
	if string(val) != string(testValue) {
		t.Errorf("expected %s, got %s", string(testValue), string(val))
	}
}

func TestDBGetNotFound(t *testing.T) {
	db, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	_, err = db.Get("events/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestDBDelete(t *testing.T) {
	db, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	testKey := "events/00000000000000000001/abc"
	if err := db.Set(testKey, []byte("value")); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}
	if err := db.Delete(testKey); err != nil {
		t.Fatalf("failed to delete value: %v", err)
	}

	_, err = db.Get(testKey)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found error after delete, got %v", err)
	}
}

func TestDBListAndCount(t *testing.T) {
	db, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	db.Set("events/by-type/info/1/a", []byte("1"))
	db.Set("events/by-type/info/2/b", []byte("2"))
	db.Set("events/by-type/error/3/c", []byte("3"))

	all, err := db.List("")
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}

	infoItems, err := db.List("events/by-type/info/")
	if err != nil {
		t.Fatalf("failed to list with prefix: %v", err)
	}
	if len(infoItems) != 2 {
		t.Errorf("expected 2 items with prefix, got %d", len(infoItems))
	}

	count, err := db.Count("events/by-type/error/")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestDBBatchOperations(t *testing.T) {
	db, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	items := map[string][]byte{
		"events/1/a": []byte("a"),
		"events/2/b": []byte("b"),
		"events/3/c": []byte("c"),
	}
	if err := db.BatchSet(items); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	if err := db.BatchDelete([]string{"events/1/a", "events/2/b"}); err != nil {
		t.Fatalf("BatchDelete() error = %v", err)
	}

	remaining, err := db.List("events/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("expected 1 remaining item, got %d", len(remaining))
	}
	if string(remaining["events/3/c"]) != "c" {
		t.Errorf("unexpected remaining items: %v", remaining)
	}
}

func TestDBPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test-db")
	logger := logr.Discard()

	db1, err := NewDB(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to create DB: %v", err)
	}
	if err := db1.Set("events/1/a", []byte("value")); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}
	db1.Close()

	db2, err := NewDB(dbPath, logger)
	if err != nil {
		t.Fatalf("failed to reopen DB: %v", err)
	}
	defer db2.Close()

	val, err := db2.Get("events/1/a")
	if err != nil {
		t.Fatalf("failed to get value after reopen: %v", err)
	}
	if string(val) != "value" {
		t.Errorf("expected value, got %s", string(val))
	}
}

func TestNewDBCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new-dir", "test-db")

	db, err := NewDB(dbPath, logr.Discard())
	if err != nil {
		t.Fatalf("failed to create DB: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("directory was not created: %v", err)
	}
}

func TestDBListRange(t *testing.T) {
	db, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	defer db.Close()

	for _, key := range []string{"events/001", "events/002", "events/003", "events/by-type/x", "other/002"} {
		if err := db.Set(key, []byte(key)); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{"whole prefix", "", "", 4},
		{"from start", "events/002", "", 3},
		{"bounded", "events/002", "events/003", 1},
		{"digits only", "events/0", "events/1", 3},
		{"start before prefix", "a", "events/002", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListRange("events/", tt.start, tt.end)
			if err != nil {
				t.Fatalf("ListRange() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListRange(%q, %q) returned %d keys, want %d: %v", tt.start, tt.end, len(got), tt.want, got)
			}
			if _, ok := got["other/002"]; ok {
				t.Error("ListRange() returned a key outside the prefix")
			}
		})
	}
}
