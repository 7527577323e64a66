package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/api"
	"github.com/garunski/cartridge-fixture/pkg/framework/database"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
	"github.com/garunski/cartridge-fixture/pkg/framework/reset"
	"github.com/garunski/cartridge-fixture/pkg/framework/service"
)

// Config holds server configuration
type Config struct {
	AppName            string
	AppVersion         string
	DataPath           string
	Port               string
	LogRetentionDays   int
	LogCleanupInterval time.Duration

	RepositoryPath string
	Reset          reset.Config
	// ResetOnStart runs one reset after the repository is indexed
	ResetOnStart   bool
	ServiceManager service.Manager
	KubeNamespace  string

	// Controller overrides ServiceManager when set
	Controller service.Controller
}

type Server struct {
	config     *Config
	logger     logr.Logger
	db         *database.DB
	eventStore events.EventStorage
	repo       *repository.CartridgeRepository
	hook       *reset.Hook
	handler    *api.Handler
	httpServer *http.Server

	stopCleanup context.CancelFunc
	cleanupDone chan struct{}
}

// NewServer wires storage, the service controller, the reset hook and the
// HTTP API. The repository is indexed when the server starts.
func NewServer(cfg *Config, logger logr.Logger) (*Server, error) {
	storage, err := NewStorageComponents(cfg, logger)
	if err != nil {
		return nil, err
	}

	hook, err := NewHook(cfg, logger, storage)
	if err != nil {
		_ = storage.DB.Close()
		return nil, err
	}

	handler, err := api.NewHandler(
		hook,
		storage.Repository,
		storage.EventStore,
		logger,
		cfg.AppName,
		cfg.AppVersion,
	)
	if err != nil {
		_ = storage.DB.Close()
		return nil, fmt.Errorf("failed to create handler: %w", err)
	}

	router := handler.SetupRoutes()
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	return &Server{
		config:     cfg,
		logger:     logger,
		db:         storage.DB,
		eventStore: storage.EventStore,
		repo:       storage.Repository,
		hook:       hook,
		handler:    handler,
		httpServer: httpServer,
	}, nil
}

// NewHook builds the reset hook over the storage components and the
// configured service controller.
func NewHook(cfg *Config, logger logr.Logger, storage *StorageComponents) (*reset.Hook, error) {
	controller := cfg.Controller
	if controller == nil && cfg.Reset.ServiceName != "" {
		var err error
		controller, err = NewServiceController(cfg.ServiceManager, cfg.KubeNamespace, logger)
		if err != nil {
			return nil, err
		}
	}

	hook, err := reset.NewHook(storage.Repository, controller, storage.EventStore, logger, cfg.Reset)
	if err != nil {
		return nil, fmt.Errorf("failed to create reset hook: %w", err)
	}
	return hook, nil
}

func (s *Server) Hook() *reset.Hook {
	return s.hook
}

func (s *Server) Repository() *repository.CartridgeRepository {
	return s.repo
}

// Close stops the retention cleanup and closes the event database.
func (s *Server) Close() error {
	s.stopLogCleanup()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
