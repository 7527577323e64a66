package reset

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/manifest"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
	fwtesting "github.com/garunski/cartridge-fixture/pkg/framework/testing"
)

var (
	mockTest   = cartridge.Identity{Name: "mock", Version: "0.1", Release: "0.0.2"}
	pluginTest = cartridge.Identity{Name: "mock-plugin", Version: "0.1", Release: "0.0.2"}
)

// fakeRepository records calls in order.
type fakeRepository struct {
	installed map[cartridge.Identity]bool
	eraseErr  map[cartridge.Identity]error
	loadErr   error
	calls     []string
	erased    []cartridge.Identity
}

func newFakeRepository(installed ...cartridge.Identity) *fakeRepository {
	r := &fakeRepository{
		installed: make(map[cartridge.Identity]bool),
		eraseErr:  make(map[cartridge.Identity]error),
	}
	for _, id := range installed {
		r.installed[id] = true
	}
	return r
}

func (r *fakeRepository) Exists(id cartridge.Identity) bool {
	r.calls = append(r.calls, "exists "+id.Name)
	return r.installed[id]
}

func (r *fakeRepository) Erase(ctx context.Context, id cartridge.Identity) error {
	r.calls = append(r.calls, "erase "+id.Name)
	if err := r.eraseErr[id]; err != nil {
		return err
	}
	r.erased = append(r.erased, id)
	delete(r.installed, id)
	return nil
}

func (r *fakeRepository) Clear() {
	r.calls = append(r.calls, "clear")
}

func (r *fakeRepository) Load(ctx context.Context) error {
	r.calls = append(r.calls, "load")
	return r.loadErr
}

func testConfig(root string) Config {
	cfg := DefaultConfig()
	cfg.ManifestRoot = root
	cfg.ReadyInterval = time.Millisecond
	cfg.ReadyTimeout = 50 * time.Millisecond
	return cfg
}

func newTestHook(t *testing.T, repo Repository, controller *fwtesting.FakeController, eventStore events.EventStorage, cfg Config) *Hook {
	t.Helper()
	hook, err := NewHook(repo, controller, eventStore, logr.Discard(), cfg)
	if err != nil {
		t.Fatalf("NewHook() error = %v", err)
	}
	return hook
}

func TestNewHook_Validation(t *testing.T) {
	cfg := DefaultConfig()

	if _, err := NewHook(nil, &fwtesting.FakeController{}, nil, logr.Discard(), cfg); err == nil {
		t.Error("NewHook() should require a repository")
	}
	if _, err := NewHook(newFakeRepository(), nil, nil, logr.Discard(), cfg); err == nil {
		t.Error("NewHook() should require a controller when a service is configured")
	}

	cfg.Candidates = []cartridge.Identity{{Name: "mock"}}
	_, err := NewHook(newFakeRepository(), &fwtesting.FakeController{}, nil, logr.Discard(), cfg)
	if !errors.Is(err, apperrors.ErrInvalid) {
		t.Errorf("NewHook() error = %v, want ErrInvalid for an incomplete candidate", err)
	}

	noService := DefaultConfig()
	noService.ServiceName = ""
	if _, err := NewHook(newFakeRepository(), nil, nil, logr.Discard(), noService); err != nil {
		t.Errorf("NewHook() error = %v, want nil without a service", err)
	}
}

func TestReset_NothingToClean(t *testing.T) {
	repo := newFakeRepository()
	controller := &fwtesting.FakeController{}
	hook := newTestHook(t, repo, controller, nil, testConfig(t.TempDir()))

	result, err := hook.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	wantCalls := []string{"exists mock", "exists mock-plugin", "clear", "load"}
	if !reflect.DeepEqual(repo.calls, wantCalls) {
		t.Errorf("repository calls = %v, want %v", repo.calls, wantCalls)
	}
	if controller.RestartCount() != 0 {
		t.Errorf("Restart() called %d times, want 0", controller.RestartCount())
	}
	if len(result.Erased) != 0 || len(result.Restored) != 0 || result.Restarted {
		t.Errorf("Reset() result = %+v, want no changes", result)
	}
}

func TestReset_OtherVersionsAreIgnored(t *testing.T) {
	repo := newFakeRepository(
		cartridge.Identity{Name: "mock", Version: "0.1", Release: "0.0.1"},
		cartridge.Identity{Name: "mock", Version: "0.2", Release: "0.0.2"},
	)
	controller := &fwtesting.FakeController{}
	hook := newTestHook(t, repo, controller, nil, testConfig(t.TempDir()))

	if _, err := hook.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(repo.erased) != 0 {
		t.Errorf("erased %v, want nothing", repo.erased)
	}
	if controller.RestartCount() != 0 {
		t.Error("Restart() should not be called when nothing was erased")
	}
}

func TestReset_MockWithBackup(t *testing.T) {
	root := t.TempDir()
	live := manifest.Path(root, "mock")
	fwtesting.WriteFile(t, live, "Name: mock\nmodified: true\n")
	fwtesting.WriteFile(t, manifest.BackupPath(live, ""), "Name: mock\n")

	repo := newFakeRepository(mockTest)
	controller := &fwtesting.FakeController{ReadyAfter: 2}
	eventStore := fwtesting.NewTestEventStore(t)
	hook := newTestHook(t, repo, controller, eventStore, testConfig(root))

	result, err := hook.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if !reflect.DeepEqual(repo.erased, []cartridge.Identity{mockTest}) {
		t.Errorf("erased = %v, want [%v]", repo.erased, mockTest)
	}

	data, err := os.ReadFile(live)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if string(data) != "Name: mock\n" {
		t.Errorf("manifest = %q, want backup content", string(data))
	}

	if !reflect.DeepEqual(controller.Restarts, []string{"mcollective"}) {
		t.Errorf("restarts = %v, want [mcollective]", controller.Restarts)
	}
	if controller.ReadyChecks != 3 {
		t.Errorf("ready checks = %d, want 3", controller.ReadyChecks)
	}

	last := repo.calls[len(repo.calls)-2:]
	if !reflect.DeepEqual(last, []string{"clear", "load"}) {
		t.Errorf("reset should finish with clear+load, calls = %v", repo.calls)
	}

	if !result.Restarted || len(result.Restored) != 1 || result.Restored[0] != live {
		t.Errorf("Reset() result = %+v", result)
	}

	recorded, err := eventStore.GetEventsByResource(mockTest.Key(), 10)
	if err != nil {
		t.Fatalf("GetEventsByResource() error = %v", err)
	}
	if len(recorded) != 2 {
		t.Errorf("recorded %d events for %s, want erase and restore", len(recorded), mockTest.Key())
	}
}

func TestReset_MatchWithoutBackup(t *testing.T) {
	root := t.TempDir()
	live := manifest.Path(root, "mock")
	fwtesting.WriteFile(t, live, "modified")

	repo := newFakeRepository(mockTest)
	controller := &fwtesting.FakeController{}
	hook := newTestHook(t, repo, controller, nil, testConfig(root))

	result, err := hook.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	data, _ := os.ReadFile(live)
	if string(data) != "modified" {
		t.Errorf("manifest changed without a backup: %q", string(data))
	}
	if len(result.Restored) != 0 {
		t.Errorf("Restored = %v, want none", result.Restored)
	}
	if controller.RestartCount() != 1 {
		t.Errorf("Restart() called %d times, want 1", controller.RestartCount())
	}
}

func TestReset_RestartsOnceForSeveralMatches(t *testing.T) {
	repo := newFakeRepository(mockTest, pluginTest)
	controller := &fwtesting.FakeController{}
	hook := newTestHook(t, repo, controller, nil, testConfig(t.TempDir()))

	result, err := hook.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if len(result.Erased) != 2 {
		t.Errorf("Erased = %v, want both candidates", result.Erased)
	}
	if controller.RestartCount() != 1 {
		t.Errorf("Restart() called %d times, want 1", controller.RestartCount())
	}
}

func TestReset_EraseFailureAborts(t *testing.T) {
	repo := newFakeRepository(mockTest, pluginTest)
	eraseErr := errors.New("permission denied")
	repo.eraseErr[mockTest] = eraseErr
	controller := &fwtesting.FakeController{}
	hook := newTestHook(t, repo, controller, nil, testConfig(t.TempDir()))

	_, err := hook.Reset(context.Background())
	if !errors.Is(err, eraseErr) {
		t.Fatalf("Reset() error = %v, want erase error", err)
	}

	wantCalls := []string{"exists mock", "erase mock"}
	if !reflect.DeepEqual(repo.calls, wantCalls) {
		t.Errorf("repository calls = %v, want %v", repo.calls, wantCalls)
	}
	if controller.RestartCount() != 0 {
		t.Error("Restart() should not run after an aborted reset")
	}
}

func TestReset_RestoreFailureAborts(t *testing.T) {
	root := t.TempDir()
	live := fwtesting.WriteFile(t, manifest.Path(root, "mock"), "modified")
	if err := os.Mkdir(manifest.BackupPath(live, ""), 0755); err != nil {
		t.Fatalf("failed to create backup dir: %v", err)
	}

	repo := newFakeRepository(mockTest)
	hook := newTestHook(t, repo, &fwtesting.FakeController{}, nil, testConfig(root))

	_, err := hook.Reset(context.Background())
	if !errors.Is(err, apperrors.ErrInvalid) {
		t.Errorf("Reset() error = %v, want restore failure", err)
	}
}

func TestReset_RestartExitStatusContinues(t *testing.T) {
	repo := newFakeRepository(mockTest)
	controller := &fwtesting.FakeController{
		RestartErr: apperrors.WrapRestart(&exec.ExitError{}, "service mcollective restart"),
	}
	eventStore := fwtesting.NewTestEventStore(t)
	hook := newTestHook(t, repo, controller, eventStore, testConfig(t.TempDir()))

	result, err := hook.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v, want nil for a non-zero restart exit", err)
	}
	if !result.Restarted {
		t.Error("Result.Restarted = false, want true")
	}
	if got := repo.calls[len(repo.calls)-2:]; !reflect.DeepEqual(got, []string{"clear", "load"}) {
		t.Errorf("last calls = %v, want [clear load]", got)
	}

	recentErrors, err := eventStore.GetRecentErrors(10)
	if err != nil {
		t.Fatalf("GetRecentErrors() error = %v", err)
	}
	if len(recentErrors) != 1 || recentErrors[0].Operation() != events.OperationRestart {
		t.Errorf("recent errors = %+v, want the restart exit", recentErrors)
	}
}

func TestReset_RestartCommandExitsNonZero(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if slices.Contains(args, "restart") {
			return []byte("warn\n"), &exec.ExitError{}
		}
		return nil, nil
	}
	controller, err := service.NewCommandController(service.ManagerService, logr.Discard(), service.WithRunner(runner))
	if err != nil {
		t.Fatalf("NewCommandController() error = %v", err)
	}

	repo := newFakeRepository(mockTest, pluginTest)
	hook, err := NewHook(repo, controller, nil, logr.Discard(), testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewHook() error = %v", err)
	}

	if _, err := hook.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	want := []string{"exists mock", "erase mock", "exists mock-plugin", "erase mock-plugin", "clear", "load"}
	if !reflect.DeepEqual(repo.calls, want) {
		t.Errorf("calls = %v, want %v", repo.calls, want)
	}
}

func TestReset_RestartStartFailureAborts(t *testing.T) {
	repo := newFakeRepository(mockTest)
	controller := &fwtesting.FakeController{
		RestartErr: apperrors.WrapRestart(exec.ErrNotFound, "service mcollective restart"),
	}
	hook := newTestHook(t, repo, controller, nil, testConfig(t.TempDir()))

	_, err := hook.Reset(context.Background())
	if !errors.Is(err, apperrors.ErrRestart) {
		t.Fatalf("Reset() error = %v, want ErrRestart", err)
	}
	if slices.Contains(repo.calls, "load") {
		t.Error("repository should not be reloaded when the restart command cannot run")
	}
}

func TestReset_ReadyTimeout(t *testing.T) {
	repo := newFakeRepository(mockTest)
	controller := &fwtesting.FakeController{ReadyAfter: -1}
	eventStore := fwtesting.NewTestEventStore(t)
	hook := newTestHook(t, repo, controller, eventStore, testConfig(t.TempDir()))

	_, err := hook.Reset(context.Background())
	if !errors.Is(err, apperrors.ErrTimeout) {
		t.Fatalf("Reset() error = %v, want ErrTimeout", err)
	}

	recentErrors, err := eventStore.GetRecentErrors(10)
	if err != nil {
		t.Fatalf("GetRecentErrors() error = %v", err)
	}
	if len(recentErrors) != 1 || recentErrors[0].ResourceKey != events.ServiceKey("mcollective") {
		t.Errorf("recent errors = %+v, want the readiness failure", recentErrors)
	}
}

func TestReset_ServiceDisabled(t *testing.T) {
	repo := newFakeRepository(mockTest)
	cfg := testConfig(t.TempDir())
	cfg.ServiceName = ""
	hook, err := NewHook(repo, nil, nil, logr.Discard(), cfg)
	if err != nil {
		t.Fatalf("NewHook() error = %v", err)
	}

	result, err := hook.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if result.Restarted {
		t.Error("Restarted = true, want false without a service")
	}
}

func TestReset_LoadFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.loadErr = apperrors.WrapStorage(errors.New("read-only file system"), "load")
	hook := newTestHook(t, repo, &fwtesting.FakeController{}, nil, testConfig(t.TempDir()))

	_, err := hook.Reset(context.Background())
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Errorf("Reset() error = %v, want ErrStorage", err)
	}
}

func TestReset_CanceledContext(t *testing.T) {
	repo := newFakeRepository(mockTest)
	hook := newTestHook(t, repo, &fwtesting.FakeController{}, nil, testConfig(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := hook.Reset(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Reset() error = %v, want context.Canceled", err)
	}
	if len(repo.calls) != 0 {
		t.Errorf("repository calls = %v, want none", repo.calls)
	}
}

func TestResetCandidates_ExplicitList(t *testing.T) {
	custom := cartridge.Identity{Name: "php", Version: "5.4", Release: "0.0.9"}
	repo := newFakeRepository(custom, mockTest)
	hook := newTestHook(t, repo, &fwtesting.FakeController{}, nil, testConfig(t.TempDir()))

	result, err := hook.ResetCandidates(context.Background(), []cartridge.Identity{custom})
	if err != nil {
		t.Fatalf("ResetCandidates() error = %v", err)
	}
	if !reflect.DeepEqual(result.Erased, []cartridge.Identity{custom}) {
		t.Errorf("Erased = %v, want only the explicit candidate", result.Erased)
	}
	if !repo.installed[mockTest] {
		t.Error("configured candidates should be untouched by an explicit list")
	}
}

func TestBeforeAfter_TagGating(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		wantReset bool
	}{
		{"tagged", []string{"@other", DefaultTag}, true},
		{"untagged", []string{"@other"}, false},
		{"no tags", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, phase := range []string{"before", "after"} {
				repo := newFakeRepository(mockTest)
				hook := newTestHook(t, repo, &fwtesting.FakeController{}, nil, testConfig(t.TempDir()))
				if got := hook.Applies(tt.tags); got != tt.wantReset {
					t.Errorf("Applies(%v) = %v, want %v", tt.tags, got, tt.wantReset)
				}

				var err error
				if phase == "before" {
					err = hook.Before(context.Background(), tt.tags)
				} else {
					err = hook.After(context.Background(), tt.tags)
				}
				if err != nil {
					t.Fatalf("%s() error = %v", phase, err)
				}

				ran := len(repo.calls) > 0
				if ran != tt.wantReset {
					t.Errorf("%s() ran reset = %v, want %v", phase, ran, tt.wantReset)
				}
			}
		})
	}
}
