package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "demo"
version = "0.2.0"
entry = "main.ql"

[cache]
enabled = true
path = "build/chunks.db"

[runtime]
strict-globals = true
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Project.Name != "demo" || m.Project.Version != "0.2.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if !m.Cache.Enabled {
		t.Error("cache not enabled")
	}
	if !m.Runtime.StrictGlobals {
		t.Error("strict-globals not set")
	}
	if got, want := m.CachePath(), filepath.Join(m.Dir, "build", "chunks.db"); got != want {
		t.Errorf("CachePath = %s, want %s", got, want)
	}
	if got, want := m.EntryPath(), filepath.Join(m.Dir, "main.ql"); got != want {
		t.Errorf("EntryPath = %s, want %s", got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "bare"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Cache.Enabled {
		t.Error("cache enabled by default")
	}
	if got, want := m.Cache.Path, filepath.Join(".quill", "chunks.db"); got != want {
		t.Errorf("default cache path = %s, want %s", got, want)
	}
	if m.EntryPath() != "" {
		t.Errorf("EntryPath = %s, want empty", m.EntryPath())
	}
}

func TestLoadRejectsBadToml(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `[project`)
	if _, err := Load(dir); err == nil {
		t.Error("malformed toml loaded without error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "walker"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m == nil || m.Project.Name != "walker" {
		t.Errorf("found %+v, want the root manifest", m)
	}
}

func TestFindAndLoadMissing(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if m != nil {
		t.Errorf("found %+v in an empty tree", m)
	}
}
