package config

import (
	"os"
	"path/filepath"
	"strings"
)

// BackendEnvVar overrides the inference server address when set.
const BackendEnvVar = "PLUME_BACKEND"

// configDirOverride is set by tests to redirect ConfigDir.
var configDirOverride string

// ConfigDir returns the config directory for plume.
func ConfigDir() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "plume")
}

// DataDir returns ~/.local/share/plume, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "plume")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// ResolveBackendAddress resolves the inference server address using:
//  1. The PLUME_BACKEND environment variable
//  2. Preferences (backend_address set via /config)
//  3. The default localhost address
func ResolveBackendAddress(prefs Preferences) string {
	if addr := strings.TrimSpace(os.Getenv(BackendEnvVar)); addr != "" {
		return addr
	}
	if addr := strings.TrimSpace(prefs.BackendAddress); addr != "" {
		return addr
	}
	return "http://localhost:7465"
}
