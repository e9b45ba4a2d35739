package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		CacheDir: "/home/user/.local/share/gonotedb/cache",
		LogDir:   "/home/user/.local/share/gonotedb/log",
		Remotes: Remote{
			AllUsers:    "ssh://gerrit/All-Users.git",
			AllProjects: "ssh://gerrit/All-Projects.git",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.CacheDir != original.CacheDir {
		t.Errorf("CacheDir = %q, want %q", got.CacheDir, original.CacheDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Remotes.AllUsers != original.Remotes.AllUsers {
		t.Errorf("Remotes.AllUsers = %q, want %q", got.Remotes.AllUsers, original.Remotes.AllUsers)
	}
	if got.Remotes.AllProjects != original.Remotes.AllProjects {
		t.Errorf("Remotes.AllProjects = %q, want %q", got.Remotes.AllProjects, original.Remotes.AllProjects)
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig("/data/gonotedb")
	if cfg.CacheDir != filepath.Join("/data/gonotedb", "cache") {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.LogDir != filepath.Join("/data/gonotedb", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gonotedb.toml")
	cfg := NewConfig("/data")

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := Init(path, cfg); err == nil {
		t.Fatal("second Init() should refuse to overwrite")
	}
}

func TestReadFromFile_Missing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("ReadFromFile() on a missing file should fail")
	}
}

func TestReadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gonotedb.toml")
	content := "cache_dir = \"/tmp/cache\"\nlog_dir = \"/tmp/log\"\n\n[remotes]\nall_users = \"/srv/All-Users.git\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if cfg.CacheDir != "/tmp/cache" || cfg.Remotes.AllUsers != "/srv/All-Users.git" {
		t.Errorf("cfg = %+v", cfg)
	}
}
