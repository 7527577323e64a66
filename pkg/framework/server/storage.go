package server

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/database"
	"github.com/garunski/cartridge-fixture/pkg/framework/events"
	"github.com/garunski/cartridge-fixture/pkg/framework/index"
	"github.com/garunski/cartridge-fixture/pkg/framework/repository"
)

// StorageComponents holds all storage-related components. DB and EventStore
// are nil when the event log is not in use.
type StorageComponents struct {
	DB         *database.DB
	Index      *index.CartridgeIndex
	EventStore events.EventStorage
	Repository *repository.CartridgeRepository
}

// NewStorageComponents opens the event database and creates the cartridge
// index and repository. The repository is not loaded yet.
func NewStorageComponents(cfg *Config, logger logr.Logger) (*StorageComponents, error) {
	logger.Info("Opening BadgerDB", "path", cfg.DataPath)
	db, err := database.NewDB(cfg.DataPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	storage := NewRepositoryComponents(cfg, logger)
	storage.DB = db
	storage.EventStore = events.NewStorage(db, logger)
	logger.Info("Event storage initialized")
	return storage, nil
}

// NewRepositoryComponents creates the cartridge index and repository without
// an event log.
func NewRepositoryComponents(cfg *Config, logger logr.Logger) *StorageComponents {
	repoPath := cfg.RepositoryPath
	if repoPath == "" {
		repoPath = repository.DefaultPath
	}
	idx := index.NewIndex()
	return &StorageComponents{
		Index:      idx,
		Repository: repository.New(repoPath, idx, logger),
	}
}
