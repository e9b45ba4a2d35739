package app

import (
	"path/filepath"
	"testing"
)

func TestGetDefaults_EnvOverrides(t *testing.T) {
	t.Setenv("GONOTEDB_CONFIG_PATH", "/etc/gonotedb.toml")
	t.Setenv("GONOTEDB_HOME", "/srv/gonotedb")

	defaults, err := GetDefaults()
	if err != nil {
		t.Fatalf("GetDefaults() error = %v", err)
	}

	if defaults["config_path"] != "/etc/gonotedb.toml" {
		t.Errorf("config_path = %q", defaults["config_path"])
	}
	if defaults["base_dir"] != "/srv/gonotedb" {
		t.Errorf("base_dir = %q", defaults["base_dir"])
	}
	if defaults["cache_dir"] != filepath.Join("/srv/gonotedb", "cache") {
		t.Errorf("cache_dir = %q", defaults["cache_dir"])
	}
	if defaults["log_dir"] != filepath.Join("/srv/gonotedb", "log") {
		t.Errorf("log_dir = %q", defaults["log_dir"])
	}
}

func TestGetDefaults_Home(t *testing.T) {
	t.Setenv("GONOTEDB_CONFIG_PATH", "")
	t.Setenv("GONOTEDB_HOME", "")
	t.Setenv("HOME", "/home/alice")

	defaults, err := GetDefaults()
	if err != nil {
		t.Fatalf("GetDefaults() error = %v", err)
	}

	if defaults["config_path"] != "/home/alice/.config/gonotedb.toml" {
		t.Errorf("config_path = %q", defaults["config_path"])
	}
	if defaults["base_dir"] != "/home/alice/.local/share/gonotedb" {
		t.Errorf("base_dir = %q", defaults["base_dir"])
	}
}
