package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetAppDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		tmpDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", tmpDir)
	}

	dir := GetAppDir()
	if dir == "" {
		t.Error("GetAppDir returned empty string")
	}
	if !strings.Contains(strings.ToLower(dir), "swarmpeer") {
		t.Errorf("Expected path to contain 'swarmpeer', got: %s", dir)
	}
}

func TestGetStateDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		tmpDir := t.TempDir()
		t.Setenv("XDG_STATE_HOME", tmpDir)

		dir := GetStateDir()
		expected := filepath.Join(tmpDir, "swarmpeer")
		if dir != expected {
			t.Errorf("GetStateDir mismatch. Got %s, want %s", dir, expected)
		}
	} else if GetStateDir() != GetAppDir() {
		t.Error("GetStateDir should equal GetAppDir on non-Linux")
	}
}

func TestGetLogsDirAndDBPath(t *testing.T) {
	dir := GetLogsDir()
	if !strings.HasSuffix(dir, "logs") {
		t.Errorf("Expected path to end with 'logs', got: %s", dir)
	}
	if !strings.HasPrefix(dir, GetStateDir()) {
		t.Errorf("LogsDir should be under StateDir. LogsDir: %s", dir)
	}
	if filepath.Dir(GetDefaultDBPath()) != GetStateDir() {
		t.Errorf("DB should live in StateDir, got %s", GetDefaultDBPath())
	}
}

func TestEnsureDirs(t *testing.T) {
	if runtime.GOOS == "linux" {
		baseDir := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", filepath.Join(baseDir, "config"))
		t.Setenv("XDG_STATE_HOME", filepath.Join(baseDir, "state"))
	} else {
		t.Skip("avoid touching real user dirs")
	}

	if err := EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}

	for _, dir := range []string{GetAppDir(), GetStateDir(), GetLogsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("Error checking directory %s: %v", dir, err)
		} else if !info.IsDir() {
			t.Errorf("Path exists but is not a directory: %s", dir)
		}
	}
}
