package manifest

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/go-logr/logr"
)

// Entry is one manifest found in a repository tree.
type Entry struct {
	// Dir is the release directory relative to the tree root, e.g. "mock/0.0.2".
	Dir      string
	Manifest *Manifest
	Data     []byte
}

// LoadTree reads every <name>/<release>/metadata/manifest.yml under files.
// Manifests that cannot be read or parsed are logged and skipped so one bad
// install does not hide the rest of the repository. A tree whose root does
// not exist loads as empty.
func LoadTree(files fs.FS, logger logr.Logger) ([]Entry, error) {
	var entries []Entry

	if _, err := fs.Stat(files, "."); err != nil {
		return entries, nil
	}

	err := fs.WalkDir(files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		depth := 0
		if p != "." {
			depth = strings.Count(p, "/") + 1
		}

		if d.IsDir() {
			// name/release/metadata is as deep as a manifest lives
			if depth > 3 {
				return fs.SkipDir
			}
			return nil
		}

		if depth != 4 || path.Base(p) != FileName || path.Base(path.Dir(p)) != "metadata" {
			return nil
		}

		data, err := fs.ReadFile(files, p)
		if err != nil {
			logger.Error(err, "failed to read cartridge manifest", "path", p)
			return nil
		}

		m, err := Parse(data)
		if err != nil {
			logger.Error(err, "skipping malformed cartridge manifest", "path", p)
			return nil
		}

		entries = append(entries, Entry{
			Dir:      path.Dir(path.Dir(p)),
			Manifest: m,
			Data:     data,
		})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk cartridge repository: %w", err)
	}

	return entries, nil
}
