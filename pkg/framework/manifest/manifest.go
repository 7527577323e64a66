package manifest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// Manifest is the subset of a cartridge's metadata/manifest.yml the
// repository needs to index it.
type Manifest struct {
	Name             string   `yaml:"Name"`
	ShortName        string   `yaml:"Cartridge-Short-Name,omitempty"`
	DisplayName      string   `yaml:"Display-Name,omitempty"`
	Vendor           string   `yaml:"Cartridge-Vendor,omitempty"`
	Version          string   `yaml:"Version"`
	Versions         []string `yaml:"Versions,omitempty"`
	CartridgeVersion string   `yaml:"Cartridge-Version"`
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperrors.WrapInvalidYAML(err, "failed to parse manifest")
	}

	if strings.TrimSpace(m.Name) == "" {
		return nil, fmt.Errorf("%w: manifest missing Name", apperrors.ErrInvalid)
	}
	if strings.TrimSpace(m.Version) == "" {
		return nil, fmt.Errorf("%w: manifest %s missing Version", apperrors.ErrInvalid, m.Name)
	}
	if strings.TrimSpace(m.CartridgeVersion) == "" {
		return nil, fmt.Errorf("%w: manifest %s missing Cartridge-Version", apperrors.ErrInvalid, m.Name)
	}

	return &m, nil
}

// Identities returns one identity per software version the manifest provides.
// Versions wins over Version when both are set.
func (m *Manifest) Identities() []cartridge.Identity {
	versions := m.Versions
	if len(versions) == 0 {
		versions = []string{m.Version}
	}

	seen := make(map[string]bool, len(versions))
	ids := make([]cartridge.Identity, 0, len(versions))
	for _, v := range versions {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		ids = append(ids, cartridge.Identity{
			Name:    m.Name,
			Version: v,
			Release: m.CartridgeVersion,
		})
	}
	return ids
}
