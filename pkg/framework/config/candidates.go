package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// candidatesFile is the YAML layout of a candidates file:
//
//	candidates:
//	  - name: mock
//	    version: "0.1"
//	    release: 0.0.2
type candidatesFile struct {
	Candidates []cartridge.Identity `yaml:"candidates"`
}

// LoadCandidatesFile reads the identities a reset should clean up.
func LoadCandidatesFile(path string) ([]cartridge.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapStorage(err, fmt.Sprintf("read candidates file %s", path))
	}
	return ParseCandidates(data)
}

// ParseCandidates decodes and validates a candidates document.
func ParseCandidates(data []byte) ([]cartridge.Identity, error) {
	var file candidatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.WrapInvalidYAML(err, "parse candidates")
	}
	for _, id := range file.Candidates {
		if err := id.Validate(); err != nil {
			return nil, fmt.Errorf("invalid candidate: %w", err)
		}
	}
	return file.Candidates, nil
}
