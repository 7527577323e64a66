// Package cartridge defines how an installed cartridge variant is identified.
package cartridge

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// KeyPrefix is the namespace shared by every identity key.
const KeyPrefix = "cartridges/"

// Identity uniquely identifies one installed cartridge variant. Version is the
// software version the cartridge provides and Release is the cartridge's own
// packaging version (Cartridge-Version in the manifest).
type Identity struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Release string `json:"release" yaml:"release"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s-%s (%s)", id.Name, id.Version, id.Release)
}

// Key is the identity's resource key, used by the event log and the API.
func (id Identity) Key() string {
	return KeyPrefix + id.Name + "/" + id.Version + "/" + id.Release
}

func (id Identity) Validate() error {
	for field, value := range map[string]string{"name": id.Name, "version": id.Version, "release": id.Release} {
		if value == "" {
			return fmt.Errorf("%w: cartridge %s cannot be empty", apperrors.ErrInvalid, field)
		}
		if strings.ContainsAny(value, "/\\") || value == "." || value == ".." {
			return fmt.Errorf("%w: cartridge %s %q must not contain path elements", apperrors.ErrInvalid, field, value)
		}
	}
	return nil
}

// ParseKey reverses Key.
func ParseKey(key string) (Identity, error) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return Identity{}, fmt.Errorf("%w: key %q does not start with %s", apperrors.ErrInvalid, key, KeyPrefix)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: key %q must have name/version/release", apperrors.ErrInvalid, key)
	}
	id := Identity{Name: parts[0], Version: parts[1], Release: parts[2]}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Sort orders identities by name, then version, then release.
func Sort(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		if ids[i].Version != ids[j].Version {
			return ids[i].Version < ids[j].Version
		}
		return ids[i].Release < ids[j].Release
	})
}
