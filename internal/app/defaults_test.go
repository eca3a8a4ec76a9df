package app

import (
	"path/filepath"
	"testing"
)

func TestGetDefaultsEnvOverrides(t *testing.T) {
	t.Setenv("ZIPDEX_CONFIG_PATH", "/etc/custom/zipdex.toml")
	t.Setenv("ZIPDEX_HOME", "/srv/zipdex")

	defaults, err := GetDefaults()
	if err != nil {
		t.Fatalf("GetDefaults failed: %v", err)
	}

	if defaults["config_path"] != "/etc/custom/zipdex.toml" {
		t.Errorf("config_path = %s", defaults["config_path"])
	}
	if defaults["base_dir"] != "/srv/zipdex" {
		t.Errorf("base_dir = %s", defaults["base_dir"])
	}
	if defaults["log_dir"] != filepath.Join("/srv/zipdex", "log") {
		t.Errorf("log_dir = %s", defaults["log_dir"])
	}
}

func TestGetDefaultsFallsBackToHome(t *testing.T) {
	t.Setenv("ZIPDEX_CONFIG_PATH", "")
	t.Setenv("ZIPDEX_HOME", "")
	t.Setenv("HOME", "/home/tester")

	defaults, err := GetDefaults()
	if err != nil {
		t.Fatalf("GetDefaults failed: %v", err)
	}

	if defaults["config_path"] != "/home/tester/.config/zipdex.toml" {
		t.Errorf("config_path = %s", defaults["config_path"])
	}
	if defaults["base_dir"] != "/home/tester/.local/share/zipdex" {
		t.Errorf("base_dir = %s", defaults["base_dir"])
	}
}
