package api

import (
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
	fwtesting "github.com/garunski/cartridge-fixture/pkg/framework/testing"
)

type testHandlerConfig struct {
	appName       string
	version       string
	logger        logr.Logger
	repo          *repository.CartridgeRepository
	repoRoot      string
	manifestRoot  string
	controller    *fwtesting.FakeController
	eventStore    events.EventStorage
	eventStoreSet bool // Track if eventStore was explicitly set (even if nil)
}

type testHandlerOption func(*testHandlerConfig)

func WithTestEventStore(eventStore events.EventStorage) testHandlerOption {
	return func(cfg *testHandlerConfig) {
		cfg.eventStore = eventStore
		cfg.eventStoreSet = true
	}
}

func WithNilEventStore() testHandlerOption {
	return func(cfg *testHandlerConfig) {
		cfg.eventStore = nil
		cfg.eventStoreSet = true
	}
}

func WithTestController(controller *fwtesting.FakeController) testHandlerOption {
	return func(cfg *testHandlerConfig) {
		cfg.controller = controller
	}
}

// newTestEnv builds a handler over a temp repository, a temp manifest root
// and a fake service controller, and returns the config it used.
func newTestEnv(t *testing.T, opts ...testHandlerOption) (*Handler, *testHandlerConfig) {
	t.Helper()

	cfg := &testHandlerConfig{
		appName:      "test-app",
		version:      "test-version",
		logger:       logr.Discard(),
		manifestRoot: t.TempDir(),
		controller:   &fwtesting.FakeController{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.repo, cfg.repoRoot = fwtesting.NewTestRepository(t)
	if cfg.eventStore == nil && !cfg.eventStoreSet {
		cfg.eventStore = fwtesting.NewTestEventStore(t)
	}

	hookConfig := reset.DefaultConfig()
	hookConfig.ManifestRoot = cfg.manifestRoot
	hookConfig.ReadyInterval = time.Millisecond
	hookConfig.ReadyTimeout = 50 * time.Millisecond

	hook, err := reset.NewHook(cfg.repo, cfg.controller, cfg.eventStore, cfg.logger, hookConfig)
	if err != nil {
		t.Fatalf("NewHook() error = %v", err)
	}

	handler, err := NewHandler(hook, cfg.repo, cfg.eventStore, cfg.logger, cfg.appName, cfg.version)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return handler, cfg
}

func newTestHandler(t *testing.T, opts ...testHandlerOption) (*Handler, error) {
	t.Helper()
	handler, _ := newTestEnv(t, opts...)
	return handler, nil
}

func setupTestHandlerWithEventStore(t *testing.T) (*Handler, events.EventStorage) {
	t.Helper()
	eventStore := fwtesting.NewTestEventStore(t)
	handler, err := newTestHandler(t, WithTestEventStore(eventStore))
	if err != nil {
		t.Fatalf("newTestHandler() error = %v", err)
	}
	return handler, eventStore
}
