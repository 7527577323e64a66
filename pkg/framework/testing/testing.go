// Package testing provides fixtures shared by the framework's tests.
package testing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/garunski/cartridge-fixture/pkg/framework/database"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/index"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
)

// NewTestLogger creates a development logger for tests that want output
func NewTestLogger() logr.Logger {
	zapLog, _ := zap.NewDevelopment()
	return zapr.NewLogger(zapLog)
}

// NewTestDB creates an in-memory database
func NewTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	return db
}

// NewTestIndex creates an empty cartridge index
func NewTestIndex() *index.CartridgeIndex {
	return index.NewIndex()
}

// NewTestEventStore creates an event store over an in-memory database
func NewTestEventStore(t *testing.T) *events.Storage {
	return events.NewStorage(NewTestDB(t), logr.Discard())
}

// NewTestRepository creates a repository rooted in a temp directory and
// returns it with that directory.
func NewTestRepository(t *testing.T) (*repository.CartridgeRepository, string) {
	t.Helper()
	root := t.TempDir()
	return repository.New(root, NewTestIndex(), logr.Discard()), root
}

// WriteManifest installs a manifest at <root>/<name>/<release>/metadata/manifest.yml.
func WriteManifest(t *testing.T, root, name, release string, versions ...string) string {
	t.Helper()
	if len(versions) == 0 {
		t.Fatalf("WriteManifest needs at least one version")
	}

	var b strings.Builder
	b.WriteString("Name: " + name + "\n")
	b.WriteString("Cartridge-Vendor: redhat\n")
	b.WriteString("Version: '" + versions[0] + "'\n")
	b.WriteString("Cartridge-Version: " + release + "\n")
	if len(versions) > 1 {
		b.WriteString("Versions:\n")
		for _, v := range versions {
			b.WriteString("  - '" + v + "'\n")
		}
	}

	return WriteFile(t, filepath.Join(root, name, release, "metadata", "manifest.yml"), b.String())
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// FakeController records restarts and reports readiness from ReadyAfter.
type FakeController struct {
	mu sync.Mutex

	// RestartErr is returned by Restart when set
	RestartErr error
	// ReadyAfter is the number of Ready calls that report false first;
	// negative means never ready
	ReadyAfter int

	Restarts    []string
	ReadyChecks int
}

func (f *FakeController) Restart(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restarts = append(f.Restarts, name)
	return f.RestartErr
}

func (f *FakeController) Ready(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadyChecks++
	if f.ReadyAfter < 0 {
		return false, nil
	}
	return f.ReadyChecks > f.ReadyAfter, nil
}

func (f *FakeController) RestartCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Restarts)
}
