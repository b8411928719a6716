package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DefaultPasteCollapseThreshold is the character count above which a pasted
// text block is collapsed into a summary segment in the composer.
const DefaultPasteCollapseThreshold = 1000

// Preferences holds user-configurable display and behavior settings.
// Persisted to ~/.config/plume/config.json.
type Preferences struct {
	FooterTokens  bool   `json:"footer_tokens"`
	FooterCwd     bool   `json:"footer_cwd"`
	FooterSession bool   `json:"footer_session"`
	Model         string `json:"model"`

	// Backend settings
	BackendAddress string `json:"backend_address,omitempty"`

	// Composer settings
	PasteCollapseThreshold int `json:"paste_collapse_threshold,omitempty"`
}

// DefaultPreferences returns the default set of preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		FooterTokens:           true,
		FooterCwd:              true,
		FooterSession:          true,
		Model:                  "",
		PasteCollapseThreshold: DefaultPasteCollapseThreshold,
	}
}

// LoadPreferences reads preferences from ~/.config/plume/config.json.
// Missing or malformed files fall back to defaults.
func LoadPreferences() Preferences {
	dir := ConfigDir()
	if dir == "" {
		return DefaultPreferences()
	}

	configPath := filepath.Join(dir, "config.json")
	p := DefaultPreferences()

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, &p); err != nil {
			fmt.Fprintf(os.Stderr, "config: parse %s: %v\n", configPath, err)
		}
		warnInsecurePermissions(configPath)
	}

	if p.PasteCollapseThreshold <= 0 {
		p.PasteCollapseThreshold = DefaultPasteCollapseThreshold
	}

	return p
}

// SavePreferences writes preferences to ~/.config/plume/config.json.
func SavePreferences(p Preferences) error {
	dir := ConfigDir()
	if dir == "" {
		return fmt.Errorf("could not determine config directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Set updates a single preference by dotted key and persists the result.
// Returns the updated preferences.
func Set(p Preferences, key, value string) (Preferences, error) {
	switch key {
	case "model":
		p.Model = value
	case "backend.address":
		p.BackendAddress = value
	case "paste.collapse_threshold":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return p, fmt.Errorf("paste.collapse_threshold must be a positive integer")
		}
		p.PasteCollapseThreshold = n
	case "footer.tokens":
		p.FooterTokens = parseBool(value)
	case "footer.cwd":
		p.FooterCwd = parseBool(value)
	case "footer.session":
		p.FooterSession = parseBool(value)
	default:
		return p, fmt.Errorf("unknown config key: %s", key)
	}
	if err := SavePreferences(p); err != nil {
		return p, err
	}
	return p, nil
}

// ValidConfigKeys returns all config keys accepted by Set().
func ValidConfigKeys() []string {
	return []string{
		"backend.address", "footer.cwd", "footer.session", "footer.tokens",
		"model", "paste.collapse_threshold",
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// warnInsecurePermissions prints a warning when the config file is readable
// by other users. No-op on Windows where unix permission bits don't apply.
func warnInsecurePermissions(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		fmt.Fprintf(os.Stderr, "config: %s is readable by other users; consider chmod 600\n", path)
	}
}
