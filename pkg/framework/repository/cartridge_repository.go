// Package repository tracks the cartridge versions installed under a
// repository directory laid out as <name>/<release>/metadata/manifest.yml.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
	"github.com/garunski/cartridge-fixture/pkg/framework/index"
	"github.com/garunski/cartridge-fixture/pkg/framework/manifest"
)

// DefaultPath is the node's cartridge repository.
const DefaultPath = "/var/lib/openshift/.cartridge_repository"

type CartridgeRepository struct {
	path   string
	index  *index.CartridgeIndex
	logger logr.Logger
}

func New(path string, idx *index.CartridgeIndex, logger logr.Logger) *CartridgeRepository {
	return &CartridgeRepository{
		path:   path,
		index:  idx,
		logger: logger,
	}
}

func (r *CartridgeRepository) Path() string {
	return r.path
}

// Load indexes every manifest on disk. It adds to the current index; call
// Clear first to rebuild from scratch.
func (r *CartridgeRepository) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := manifest.LoadTree(os.DirFS(r.path), r.logger)
	if err != nil {
		return apperrors.WrapStorage(err, fmt.Sprintf("load cartridge repository %s", r.path))
	}

	count := 0
	for _, e := range entries {
		for _, id := range e.Manifest.Identities() {
			if err := id.Validate(); err != nil {
				r.logger.Error(err, "skipping cartridge with unusable identity", "dir", e.Dir)
				continue
			}
			r.index.Set(id, index.Entry{Dir: e.Dir, Manifest: e.Data})
			count++
		}
	}

	r.logger.Info("Loaded cartridge repository", "path", r.path, "manifests", len(entries), "versions", count)
	return nil
}

func (r *CartridgeRepository) Clear() {
	r.index.Clear()
}

func (r *CartridgeRepository) Exists(id cartridge.Identity) bool {
	return r.index.Has(id)
}

func (r *CartridgeRepository) Get(id cartridge.Identity) ([]byte, bool) {
	e, ok := r.index.Get(id)
	if !ok {
		return nil, false
	}
	return e.Manifest, true
}

func (r *CartridgeRepository) List() []cartridge.Identity {
	return r.index.List()
}

// Erase removes id from the index. Its release directory is deleted only
// when no other indexed version still lives there.
func (r *CartridgeRepository) Erase(ctx context.Context, id cartridge.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, exists := r.index.Get(id)
	if !exists {
		return fmt.Errorf("%w: cartridge not installed: %s", apperrors.ErrNotFound, id)
	}

	if e.Dir != "" && !r.index.DirInUse(e.Dir, id) {
		dir := filepath.Join(r.path, filepath.FromSlash(e.Dir))
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("cartridge directory already gone, removing from index", "cartridge", id.String(), "dir", dir)
		} else if err := os.RemoveAll(dir); err != nil {
			return apperrors.WrapStorage(err, fmt.Sprintf("erase %s", id))
		} else {
			r.logger.V(1).Info("removed cartridge release directory", "dir", dir)
		}
		r.removeEmptyParents(dir)
	}

	r.index.Delete(id)
	return nil
}

// removeEmptyParents deletes the directories between dir and the repository
// root that the erase left empty, so a cartridge with no releases left has
// no directory either.
func (r *CartridgeRepository) removeEmptyParents(dir string) {
	root := filepath.Clean(r.path)
	for parent := filepath.Dir(dir); parent != root && strings.HasPrefix(parent, root+string(filepath.Separator)); parent = filepath.Dir(parent) {
		entries, err := os.ReadDir(parent)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(parent); err != nil {
			r.logger.V(1).Info("could not remove empty cartridge directory", "dir", parent, "error", err.Error())
			return
		}
		r.logger.V(1).Info("removed empty cartridge directory", "dir", parent)
	}
}
