package index

import (
	"sync"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
)

// Entry is what the index keeps for one cartridge identity.
type Entry struct {
	// Dir is the release directory, relative to the repository root.
	Dir      string
	Manifest []byte
}

type CartridgeIndex struct {
	mu      sync.RWMutex
	entries map[cartridge.Identity]Entry
}

func NewIndex() *CartridgeIndex {
	return &CartridgeIndex{
		entries: make(map[cartridge.Identity]Entry),
	}
}

func copyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

func copyEntry(e Entry) Entry {
	return Entry{Dir: e.Dir, Manifest: copyBytes(e.Manifest)}
}

func (idx *CartridgeIndex) Get(id cartridge.Identity) (Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	if !ok {
		return Entry{}, false
	}

	return copyEntry(e), true
}

func (idx *CartridgeIndex) Has(id cartridge.Identity) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.entries[id]
	return ok
}

func (idx *CartridgeIndex) Set(id cartridge.Identity, e Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[id] = copyEntry(e)
}

func (idx *CartridgeIndex) Delete(id cartridge.Identity) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
}

// List returns the indexed identities sorted by name, version and release.
func (idx *CartridgeIndex) List() []cartridge.Identity {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]cartridge.Identity, 0, len(idx.entries))
	for id := range idx.entries {
		result = append(result, id)
	}
	cartridge.Sort(result)
	return result
}

// DirInUse reports whether any identity other than except still lives in dir.
func (idx *CartridgeIndex) DirInUse(dir string, except cartridge.Identity) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for id, e := range idx.entries {
		if id != except && e.Dir == dir {
			return true
		}
	}
	return false
}

func (idx *CartridgeIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func (idx *CartridgeIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = make(map[cartridge.Identity]Entry)
}
