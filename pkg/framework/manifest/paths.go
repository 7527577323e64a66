package manifest

import "path/filepath"

const (
	// DefaultRoot is where installed cartridges keep their live manifests.
	DefaultRoot = "/usr/libexec/openshift/cartridges"

	// DefaultBackupSuffix marks the copy of a manifest taken before a test
	// rewrote it.
	DefaultBackupSuffix = "~"

	// FileName is the manifest file inside a cartridge's metadata directory.
	FileName = "manifest.yml"
)

// Path returns <root>/<name>/metadata/manifest.yml.
func Path(root, name string) string {
	return filepath.Join(root, name, "metadata", FileName)
}

// BackupPath returns the backup location for a manifest path. An empty
// suffix falls back to DefaultBackupSuffix so the backup never aliases the
// live file.
func BackupPath(path, suffix string) string {
	if suffix == "" {
		suffix = DefaultBackupSuffix
	}
	return path + suffix
}
