package repository

import (
	"context"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
)

// Repository defines the cartridge repository operations the reset hook and
// the API depend on.
type Repository interface {
	// Exists reports whether the identity is indexed
	Exists(id cartridge.Identity) bool

	// Erase removes an installed version from the index and, when nothing
	// else refers to it, from disk
	Erase(ctx context.Context, id cartridge.Identity) error

	// Clear drops the in-memory index
	Clear()

	// Load indexes every manifest found on disk
	Load(ctx context.Context) error

	// Get returns the raw manifest for an identity
	Get(id cartridge.Identity) ([]byte, bool)

	// List returns every indexed identity, sorted
	List() []cartridge.Identity
}

// Ensure *CartridgeRepository implements Repository interface
var _ Repository = (*CartridgeRepository)(nil)
