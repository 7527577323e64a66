package framework

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/api"
	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	"github.com/garunski/cartridge-fixture/pkg/framework/manifest"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
	"github.com/garunski/cartridge-fixture/pkg/framework/server"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
)

// EnvPrefix prefixes every environment variable the framework reads.
const EnvPrefix = "CARTFIXTURE_"

// Config holds all framework configuration
type Config struct {
	// Application metadata
	AppName    string
	AppVersion string

	// Cartridge repository
	RepositoryPath string
	ManifestRoot   string
	BackupSuffix   string
	Candidates     []cartridge.Identity
	Tag            string
	ResetOnStart   bool

	// Service restart; an empty ServiceName disables it
	ServiceName    string
	ServiceManager string
	KubeNamespace  string
	ReadyTimeout   time.Duration
	ReadyInterval  time.Duration

	// Controller overrides ServiceManager when set
	Controller service.Controller

	// Storage configuration
	DataPath string

	// Server configuration
	Port string

	// Logging configuration
	LogRetentionDays   int
	LogCleanupInterval time.Duration
	LogFile            string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		AppName:            "cartfixture",
		AppVersion:         getEnvOrDefault("VERSION", "dev"),
		RepositoryPath:     getEnvOrDefault("REPOSITORY_PATH", repository.DefaultPath),
		ManifestRoot:       getEnvOrDefault("MANIFEST_ROOT", manifest.DefaultRoot),
		BackupSuffix:       getEnvOrDefault("BACKUP_SUFFIX", manifest.DefaultBackupSuffix),
		Candidates:         parseCandidatesOrDefault("CANDIDATES", reset.DefaultCandidates()),
		Tag:                getEnvOrDefault("TAG", reset.DefaultTag),
		ResetOnStart:       parseBoolOrDefault("RESET_ON_START", false),
		ServiceName:        getEnvOrDefault("SERVICE_NAME", "mcollective"),
		ServiceManager:     getEnvOrDefault("SERVICE_MANAGER", string(service.ManagerService)),
		KubeNamespace:      getEnvOrDefault("KUBE_NAMESPACE", "default"),
		ReadyTimeout:       parseDurationOrDefault("READY_TIMEOUT", service.DefaultReadyTimeout),
		ReadyInterval:      parseDurationOrDefault("READY_INTERVAL", service.DefaultReadyInterval),
		DataPath:           getEnvOrDefault("DATA_PATH", "/var/lib/cartfixture/badger"),
		Port:               getEnvOrDefault("PORT", "8081"),
		LogRetentionDays:   parseIntOrDefault("LOG_RETENTION_DAYS", 7),
		LogCleanupInterval: parseDurationOrDefault("LOG_CLEANUP_INTERVAL", 1*time.Hour),
		LogFile:            getEnvOrDefault("LOG_FILE", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("AppName cannot be empty")
	}
	if c.RepositoryPath == "" {
		return fmt.Errorf("RepositoryPath cannot be empty")
	}
	if c.ManifestRoot == "" {
		return fmt.Errorf("ManifestRoot cannot be empty")
	}
	for _, id := range c.Candidates {
		if err := id.Validate(); err != nil {
			return fmt.Errorf("invalid candidate: %w", err)
		}
	}
	if c.Controller == nil {
		if _, err := service.ParseManager(c.ServiceManager); err != nil {
			return err
		}
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("ReadyTimeout must be positive")
	}
	if c.ReadyTimeout >= api.ResetRequestTimeout {
		return fmt.Errorf("ReadyTimeout must be shorter than the %v reset request timeout", api.ResetRequestTimeout)
	}
	if c.ReadyInterval <= 0 {
		return fmt.Errorf("ReadyInterval must be positive")
	}
	if c.DataPath == "" {
		return fmt.Errorf("DataPath cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("Port cannot be empty")
	}
	if c.LogRetentionDays < 0 {
		return fmt.Errorf("LogRetentionDays cannot be negative")
	}
	if c.LogCleanupInterval <= 0 {
		return fmt.Errorf("LogCleanupInterval must be positive")
	}
	return nil
}

// ResetConfig returns the reset hook settings carried by c.
func (c *Config) ResetConfig() reset.Config {
	return reset.Config{
		Candidates:    c.Candidates,
		ManifestRoot:  c.ManifestRoot,
		BackupSuffix:  c.BackupSuffix,
		ServiceName:   c.ServiceName,
		ReadyTimeout:  c.ReadyTimeout,
		ReadyInterval: c.ReadyInterval,
		Tag:           c.Tag,
	}
}

// ServerConfig converts c into the server's configuration.
func (c *Config) ServerConfig() *server.Config {
	return &server.Config{
		AppName:            c.AppName,
		AppVersion:         c.AppVersion,
		DataPath:           c.DataPath,
		Port:               c.Port,
		LogRetentionDays:   c.LogRetentionDays,
		LogCleanupInterval: c.LogCleanupInterval,
		RepositoryPath:     c.RepositoryPath,
		Reset:              c.ResetConfig(),
		ResetOnStart:       c.ResetOnStart,
		ServiceManager:     service.Manager(c.ServiceManager),
		KubeNamespace:      c.KubeNamespace,
		Controller:         c.Controller,
	}
}

// Run starts the framework with the given configuration
// It handles the complete lifecycle: initialization, startup, and shutdown
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, flush, err := NewLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer flush()

	logger.Info("Starting framework", "appName", cfg.AppName, "version", cfg.AppVersion,
		"repository", cfg.RepositoryPath, "service", cfg.ServiceName, "manager", cfg.ServiceManager)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv, err := server.NewServer(cfg.ServerConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error(err, "failed to close server")
		}
	}()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := srv.WaitForShutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}

// ResetOnce loads the repository, runs one reset and records it in the
// event log at cfg.DataPath. It is what the CLI runs from a test hook. When
// the event log cannot be opened, for instance because a running server
// holds it, the reset runs without recording events.
func ResetOnce(ctx context.Context, cfg Config, logger logr.Logger) (*reset.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	serverCfg := cfg.ServerConfig()
	storage, err := server.NewStorageComponents(serverCfg, logger)
	if err != nil {
		logger.Error(err, "Event log unavailable, resetting without it", "path", cfg.DataPath)
		storage = server.NewRepositoryComponents(serverCfg, logger)
	} else {
		defer func() {
			if err := storage.DB.Close(); err != nil {
				logger.Error(err, "failed to close database")
			}
		}()
	}

	hook, err := server.NewHook(serverCfg, logger, storage)
	if err != nil {
		return nil, err
	}

	if err := storage.Repository.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load cartridge repository: %w", err)
	}

	return hook.Reset(ctx)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

// parseCandidatesOrDefault reads a comma-separated list of
// name/version/release triples, e.g. "mock/0.1/0.0.2,mock-plugin/0.1/0.0.2".
func parseCandidatesOrDefault(key string, defaultValue []cartridge.Identity) []cartridge.Identity {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}

	var candidates []cartridge.Identity
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, err := cartridge.ParseKey(cartridge.KeyPrefix + item)
		if err != nil {
			return defaultValue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return defaultValue
	}
	return candidates
}
