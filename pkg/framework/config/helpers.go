package config

import (
	"fmt"
	"time"

	"github.com/garunski/cartridge-fixture/pkg/framework"
	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
)

// Builder provides a fluent interface for building framework configuration.
type Builder struct {
	config framework.Config
	err    error
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		config: framework.DefaultConfig(),
	}
}

// WithAppName sets the application name.
func (b *Builder) WithAppName(name string) *Builder {
	b.config.AppName = name
	return b
}

// WithAppVersion sets the application version.
func (b *Builder) WithAppVersion(version string) *Builder {
	b.config.AppVersion = version
	return b
}

// WithRepositoryPath sets the cartridge repository directory.
func (b *Builder) WithRepositoryPath(path string) *Builder {
	b.config.RepositoryPath = path
	return b
}

// WithManifestRoot sets the directory holding the live cartridge manifests.
func (b *Builder) WithManifestRoot(root string) *Builder {
	b.config.ManifestRoot = root
	return b
}

// WithBackupSuffix sets the suffix of manifest backups.
func (b *Builder) WithBackupSuffix(suffix string) *Builder {
	b.config.BackupSuffix = suffix
	return b
}

// WithCandidates replaces the identities a reset cleans up.
func (b *Builder) WithCandidates(candidates ...cartridge.Identity) *Builder {
	b.config.Candidates = candidates
	return b
}

// WithCandidatesFile replaces the candidates with the ones listed in a YAML
// file. A read or parse error is reported by Build.
func (b *Builder) WithCandidatesFile(path string) *Builder {
	candidates, err := LoadCandidatesFile(path)
	if err != nil {
		b.err = err
		return b
	}
	b.config.Candidates = candidates
	return b
}

// WithTag sets the scenario tag that triggers a reset.
func (b *Builder) WithTag(tag string) *Builder {
	b.config.Tag = tag
	return b
}

// WithResetOnStart makes the server reset the repository once at startup.
func (b *Builder) WithResetOnStart(enabled bool) *Builder {
	b.config.ResetOnStart = enabled
	return b
}

// WithService sets the service restarted after an erase and how it is
// managed. An empty name disables the restart.
func (b *Builder) WithService(name string, manager service.Manager) *Builder {
	b.config.ServiceName = name
	b.config.ServiceManager = string(manager)
	return b
}

// WithKubeNamespace sets the namespace of the service Deployment.
func (b *Builder) WithKubeNamespace(namespace string) *Builder {
	b.config.KubeNamespace = namespace
	return b
}

// WithController injects a service controller, overriding the manager.
func (b *Builder) WithController(controller service.Controller) *Builder {
	b.config.Controller = controller
	return b
}

// WithReadyWait sets how long and how often to poll the service after a restart.
func (b *Builder) WithReadyWait(timeout, interval time.Duration) *Builder {
	b.config.ReadyTimeout = timeout
	b.config.ReadyInterval = interval
	return b
}

// WithDataPath sets the data storage path.
func (b *Builder) WithDataPath(path string) *Builder {
	b.config.DataPath = path
	return b
}

// WithPort sets the HTTP server port.
func (b *Builder) WithPort(port string) *Builder {
	b.config.Port = port
	return b
}

// WithLogRetentionDays sets the log retention period in days.
func (b *Builder) WithLogRetentionDays(days int) *Builder {
	b.config.LogRetentionDays = days
	return b
}

// WithLogCleanupInterval sets the log cleanup interval.
func (b *Builder) WithLogCleanupInterval(interval time.Duration) *Builder {
	b.config.LogCleanupInterval = interval
	return b
}

// WithLogFile sets a rotating log file written next to the console output.
func (b *Builder) WithLogFile(path string) *Builder {
	b.config.LogFile = path
	return b
}

// Build returns the configured Config and validates it.
// Returns an error if validation fails.
func (b *Builder) Build() (framework.Config, error) {
	if b.err != nil {
		return framework.Config{}, b.err
	}
	if err := b.config.Validate(); err != nil {
		return framework.Config{}, err
	}
	return b.config, nil
}

// MustBuild returns the configured Config and panics if validation fails.
func (b *Builder) MustBuild() framework.Config {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}
	return cfg
}
