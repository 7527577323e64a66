// Package reset returns a cartridge repository to its baseline between test
// scenarios that install throwaway cartridge versions.
//
// For every candidate identity that is installed, the hook erases it, puts
// the cartridge's backed-up manifest back in place and remembers that the
// messaging service has to be restarted. After the candidates are processed
// it restarts the service at most once, waits for it to report ready, and
// rebuilds the repository index from disk. A restart command that runs but
// exits non-zero is logged and the reset carries on. Any other failure stops
// the reset and is returned.
package reset

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/manifest"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
)

// DefaultTag marks scenarios that manipulate the cartridge repository.
const DefaultTag = "@manipulates_cart_repo"

// DefaultCandidates are the versions the end-to-end suite installs.
func DefaultCandidates() []cartridge.Identity {
	return []cartridge.Identity{
		{Name: "mock", Version: "0.1", Release: "0.0.2"},
		{Name: "mock-plugin", Version: "0.1", Release: "0.0.2"},
	}
}

// Repository is the part of the cartridge repository the hook drives.
type Repository interface {
	Exists(id cartridge.Identity) bool
	Erase(ctx context.Context, id cartridge.Identity) error
	Clear()
	Load(ctx context.Context) error
}

type Config struct {
	Candidates   []cartridge.Identity
	ManifestRoot string
	BackupSuffix string

	// ServiceName is restarted after an erase. Empty disables the restart.
	ServiceName   string
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration

	Tag string
}

func DefaultConfig() Config {
	return Config{
		Candidates:    DefaultCandidates(),
		ManifestRoot:  manifest.DefaultRoot,
		BackupSuffix:  manifest.DefaultBackupSuffix,
		ServiceName:   "mcollective",
		ReadyTimeout:  service.DefaultReadyTimeout,
		ReadyInterval: service.DefaultReadyInterval,
		Tag:           DefaultTag,
	}
}

// Result describes what a reset changed.
type Result struct {
	Erased    []cartridge.Identity `json:"erased"`
	Restored  []string             `json:"restored"`
	Restarted bool                 `json:"restarted"`
	Duration  time.Duration        `json:"duration"`
}

type Hook struct {
	repo       Repository
	controller service.Controller
	eventStore events.EventStorage
	logger     logr.Logger
	config     Config
}

// NewHook builds a hook. controller may be nil when config.ServiceName is
// empty; eventStore may be nil to skip the audit log.
func NewHook(repo Repository, controller service.Controller, eventStore events.EventStorage, logger logr.Logger, config Config) (*Hook, error) {
	if repo == nil {
		return nil, fmt.Errorf("reset hook requires a repository")
	}
	if config.ServiceName != "" && controller == nil {
		return nil, fmt.Errorf("reset hook requires a service controller to restart %s", config.ServiceName)
	}
	for _, id := range config.Candidates {
		if err := id.Validate(); err != nil {
			return nil, fmt.Errorf("invalid reset candidate: %w", err)
		}
	}
	if config.ManifestRoot == "" {
		config.ManifestRoot = manifest.DefaultRoot
	}
	if config.Tag == "" {
		config.Tag = DefaultTag
	}

	return &Hook{
		repo:       repo,
		controller: controller,
		eventStore: eventStore,
		logger:     logger,
		config:     config,
	}, nil
}

func (h *Hook) Config() Config {
	return h.config
}

// Before runs Reset when the scenario carries the hook's tag.
func (h *Hook) Before(ctx context.Context, tags []string) error {
	return h.runTagged(ctx, "before", tags)
}

// After runs Reset when the scenario carries the hook's tag.
func (h *Hook) After(ctx context.Context, tags []string) error {
	return h.runTagged(ctx, "after", tags)
}

// Applies reports whether a scenario with tags is one the hook resets for.
func (h *Hook) Applies(tags []string) bool {
	return slices.Contains(tags, h.config.Tag)
}

func (h *Hook) runTagged(ctx context.Context, phase string, tags []string) error {
	if !h.Applies(tags) {
		return nil
	}
	h.logger.V(1).Info("running cartridge repository reset", "phase", phase, "tag", h.config.Tag)
	_, err := h.Reset(ctx)
	return err
}

// Reset cleans up the configured candidates.
func (h *Hook) Reset(ctx context.Context) (*Result, error) {
	return h.ResetCandidates(ctx, h.config.Candidates)
}

// ResetCandidates cleans up the given candidates in order. The first error
// aborts the reset; candidates after it are left untouched.
func (h *Hook) ResetCandidates(ctx context.Context, candidates []cartridge.Identity) (*Result, error) {
	start := time.Now()
	result := &Result{
		Erased:   []cartridge.Identity{},
		Restored: []string{},
	}

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := h.resetCandidate(ctx, id, result); err != nil {
			return result, err
		}
	}

	if len(result.Erased) > 0 && h.config.ServiceName != "" {
		if err := h.restartService(ctx); err != nil {
			return result, err
		}
		result.Restarted = true
	}

	if err := h.reload(ctx); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	h.logger.Info("Cartridge repository reset",
		"erased", len(result.Erased),
		"restored", len(result.Restored),
		"restarted", result.Restarted,
		"duration", result.Duration)
	return result, nil
}

func (h *Hook) resetCandidate(ctx context.Context, id cartridge.Identity, result *Result) error {
	if !h.repo.Exists(id) {
		return nil
	}

	livePath := manifest.Path(h.config.ManifestRoot, id.Name)
	backupPath := manifest.BackupPath(livePath, h.config.BackupSuffix)

	h.logger.Info("Erasing test-generated version", "cartridge", id.String())
	if err := h.repo.Erase(ctx, id); err != nil {
		h.record(events.Error(id.Key(), events.OperationErase, "Failed to erase "+id.String(), err))
		return fmt.Errorf("erase %s: %w", id, err)
	}
	result.Erased = append(result.Erased, id)
	h.record(events.Success(id.Key(), events.OperationErase, "Erased "+id.String()))

	restored, err := manifest.Restore(backupPath, livePath)
	if err != nil {
		h.record(events.Error(id.Key(), events.OperationRestore, "Failed to restore manifest", err).WithDetail("path", livePath))
		return err
	}
	if restored {
		h.logger.Info("Restored manifest", "cartridge", id.Name, "path", livePath)
		result.Restored = append(result.Restored, livePath)
		h.record(events.Success(id.Key(), events.OperationRestore, "Restored "+livePath).WithDetail("backup", backupPath))
	}

	return nil
}

func (h *Hook) restartService(ctx context.Context) error {
	name := h.config.ServiceName
	key := events.ServiceKey(name)

	switch err := h.controller.Restart(ctx, name); {
	case err == nil:
		h.record(events.Success(key, events.OperationRestart, "Restarted "+name))
	case service.IsExitStatus(err):
		h.logger.Error(err, "Service restart exited non-zero, continuing", "service", name)
		h.record(events.Error(key, events.OperationRestart, "Restart of "+name+" exited non-zero", err))
	default:
		h.record(events.Error(key, events.OperationRestart, "Failed to restart "+name, err))
		return err
	}

	if err := service.WaitReady(ctx, h.controller, name, h.config.ReadyInterval, h.config.ReadyTimeout, h.logger); err != nil {
		h.record(events.Error(key, events.OperationReady, name+" did not become ready", err))
		return err
	}
	h.logger.V(1).Info("service ready", "service", name)
	return nil
}

func (h *Hook) reload(ctx context.Context) error {
	h.repo.Clear()
	if err := h.repo.Load(ctx); err != nil {
		h.record(events.Error("", events.OperationReload, "Failed to reload cartridge repository", err))
		return fmt.Errorf("reload cartridge repository: %w", err)
	}
	return nil
}

func (h *Hook) record(event events.Event) {
	events.Record(h.eventStore, h.logger, event)
}
