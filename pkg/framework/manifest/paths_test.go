package manifest

import "testing"

func TestPath(t *testing.T) {
	got := Path(DefaultRoot, "mock")
	want := "/usr/libexec/openshift/cartridges/mock/metadata/manifest.yml"
	if got != want {
		t.Errorf("Path() = %v, want %v", got, want)
	}
}

func TestBackupPath(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
		want   string
	}{
		{"default suffix", "", "/x/manifest.yml~"},
		{"tilde", "~", "/x/manifest.yml~"},
		{"custom", ".orig", "/x/manifest.yml.orig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BackupPath("/x/manifest.yml", tt.suffix); got != tt.want {
				t.Errorf("BackupPath() = %v, want %v", got, tt.want)
			}
		})
	}
}
