package manifest

import (
	"testing"
	"testing/fstest"

	"github.com/go-logr/logr"
)

func TestLoadTree(t *testing.T) {
	files := fstest.MapFS{
		"mock/0.0.2/metadata/manifest.yml":        {Data: []byte(mockManifest)},
		"mock/0.0.1/metadata/manifest.yml":        {Data: []byte("Name: mock\nVersion: '0.1'\nCartridge-Version: 0.0.1\n")},
		"mock-plugin/0.0.1/metadata/manifest.yml": {Data: []byte("Name: mock-plugin\nVersion: '0.1'\nCartridge-Version: 0.0.1\n")},
		"mock/0.0.2/metadata/other.yml":           {Data: []byte("ignored: true\n")},
		"mock/0.0.2/bin/setup":                    {Data: []byte("#!/bin/bash\n")},
		"mock/metadata/manifest.yml":              {Data: []byte(mockManifest)},
	}

	entries, err := LoadTree(files, logr.Discard())
	if err != nil {
		t.Fatalf("LoadTree() error = %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("LoadTree() returned %d entries, want 3", len(entries))
	}

	dirs := make(map[string]bool)
	for _, e := range entries {
		dirs[e.Dir] = true
		if len(e.Data) == 0 {
			t.Errorf("entry %s has no data", e.Dir)
		}
	}
	for _, want := range []string{"mock/0.0.2", "mock/0.0.1", "mock-plugin/0.0.1"} {
		if !dirs[want] {
			t.Errorf("LoadTree() missing entry for %s", want)
		}
	}
}

func TestLoadTree_SkipsMalformed(t *testing.T) {
	files := fstest.MapFS{
		"mock/0.0.2/metadata/manifest.yml": {Data: []byte(mockManifest)},
		"bad/0.0.1/metadata/manifest.yml":  {Data: []byte("Name: [")},
	}

	entries, err := LoadTree(files, logr.Discard())
	if err != nil {
		t.Fatalf("LoadTree() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Manifest.Name != "mock" {
		t.Errorf("LoadTree() = %+v, want only the mock entry", entries)
	}
}

func TestLoadTree_Empty(t *testing.T) {
	entries, err := LoadTree(fstest.MapFS{}, logr.Discard())
	if err != nil {
		t.Fatalf("LoadTree() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("LoadTree() returned %d entries, want 0", len(entries))
	}
}
