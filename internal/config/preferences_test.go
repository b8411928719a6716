package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDir(t *testing.T) {
	t.Run("returns override when set", func(t *testing.T) {
		orig := configDirOverride
		configDirOverride = "/tmp/test-config"
		t.Cleanup(func() { configDirOverride = orig })

		got := ConfigDir()
		if got != "/tmp/test-config" {
			t.Errorf("expected override dir, got %q", got)
		}
	})

	t.Run("returns home-based path when no override", func(t *testing.T) {
		orig := configDirOverride
		configDirOverride = ""
		t.Cleanup(func() { configDirOverride = orig })

		got := ConfigDir()
		if got == "" {
			t.Fatal("expected non-empty config dir")
		}
		if !strings.HasSuffix(got, filepath.Join(".config", "plume")) {
			t.Errorf("expected path ending in .config/plume, got %q", got)
		}
	})
}

func TestLoadPreferencesDefaults(t *testing.T) {
	orig := configDirOverride
	configDirOverride = t.TempDir()
	t.Cleanup(func() { configDirOverride = orig })

	p := LoadPreferences()
	if p.PasteCollapseThreshold != DefaultPasteCollapseThreshold {
		t.Errorf("PasteCollapseThreshold = %d, want %d", p.PasteCollapseThreshold, DefaultPasteCollapseThreshold)
	}
	if !p.FooterTokens || !p.FooterCwd || !p.FooterSession {
		t.Error("footer toggles should default to true")
	}
}

func TestLoadPreferencesRoundTrip(t *testing.T) {
	orig := configDirOverride
	configDirOverride = t.TempDir()
	t.Cleanup(func() { configDirOverride = orig })

	p := DefaultPreferences()
	p.Model = "sable-large"
	p.BackendAddress = "http://10.0.0.2:7465"
	p.PasteCollapseThreshold = 250
	if err := SavePreferences(p); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got := LoadPreferences()
	if got.Model != "sable-large" {
		t.Errorf("Model = %q, want %q", got.Model, "sable-large")
	}
	if got.BackendAddress != "http://10.0.0.2:7465" {
		t.Errorf("BackendAddress = %q", got.BackendAddress)
	}
	if got.PasteCollapseThreshold != 250 {
		t.Errorf("PasteCollapseThreshold = %d, want 250", got.PasteCollapseThreshold)
	}
}

func TestLoadPreferencesRepairsBadThreshold(t *testing.T) {
	orig := configDirOverride
	dir := t.TempDir()
	configDirOverride = dir
	t.Cleanup(func() { configDirOverride = orig })

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"paste_collapse_threshold": -5}`), 0o600); err != nil {
		t.Fatal(err)
	}
	p := LoadPreferences()
	if p.PasteCollapseThreshold != DefaultPasteCollapseThreshold {
		t.Errorf("negative threshold should reset to default, got %d", p.PasteCollapseThreshold)
	}
}

func TestSet(t *testing.T) {
	orig := configDirOverride
	configDirOverride = t.TempDir()
	t.Cleanup(func() { configDirOverride = orig })

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(Preferences) bool
	}{
		{
			name:  "sets model",
			key:   "model",
			value: "sable-mini",
			check: func(p Preferences) bool { return p.Model == "sable-mini" },
		},
		{
			name:  "sets backend address",
			key:   "backend.address",
			value: "http://example:1",
			check: func(p Preferences) bool { return p.BackendAddress == "http://example:1" },
		},
		{
			name:  "sets paste threshold",
			key:   "paste.collapse_threshold",
			value: "400",
			check: func(p Preferences) bool { return p.PasteCollapseThreshold == 400 },
		},
		{
			name:    "rejects non-numeric threshold",
			key:     "paste.collapse_threshold",
			value:   "lots",
			wantErr: true,
		},
		{
			name:    "rejects unknown key",
			key:     "nope",
			value:   "x",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Set(DefaultPreferences(), tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			if !tt.check(got) {
				t.Errorf("value not applied for key %s", tt.key)
			}
		})
	}
}

func TestResolveBackendAddress(t *testing.T) {
	t.Run("env var wins", func(t *testing.T) {
		t.Setenv(BackendEnvVar, "http://env:9")
		p := Preferences{BackendAddress: "http://prefs:9"}
		if got := ResolveBackendAddress(p); got != "http://env:9" {
			t.Errorf("got %q", got)
		}
	})
	t.Run("prefs next", func(t *testing.T) {
		t.Setenv(BackendEnvVar, "")
		p := Preferences{BackendAddress: "http://prefs:9"}
		if got := ResolveBackendAddress(p); got != "http://prefs:9" {
			t.Errorf("got %q", got)
		}
	})
	t.Run("default last", func(t *testing.T) {
		t.Setenv(BackendEnvVar, "")
		if got := ResolveBackendAddress(Preferences{}); got != "http://localhost:7465" {
			t.Errorf("got %q", got)
		}
	})
}
