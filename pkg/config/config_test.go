package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing config should fall back to defaults: %v", err)
	}
	if cfg.Translator.Timeout.Duration != 15*time.Second {
		t.Errorf("timeout default = %v", cfg.Translator.Timeout.Duration)
	}
	if cfg.Translator.Cooldown.Duration != 30*time.Second {
		t.Errorf("cooldown default = %v", cfg.Translator.Cooldown.Duration)
	}
	if cfg.Cache.TTL.Duration != 30*time.Minute {
		t.Errorf("cache TTL default = %v", cfg.Cache.TTL.Duration)
	}
	if cfg.Cache.MaxEntries != 50 {
		t.Errorf("cache max entries default = %d", cfg.Cache.MaxEntries)
	}
	if cfg.History.MaxEntries != 20 {
		t.Errorf("history max entries default = %d", cfg.History.MaxEntries)
	}
	if cfg.Server.ListenAddr != ":8787" {
		t.Errorf("listen addr default = %q", cfg.Server.ListenAddr)
	}
}

func TestLoadConfigParsesDurations(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
storage_dir = "/tmp/manasearch-test"

[translator]
endpoint = "http://localhost:9999"
timeout = "5s"
cooldown = "1m"

[cache]
ttl = "10m"
max_entries = 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Translator.Endpoint != "http://localhost:9999" {
		t.Errorf("endpoint = %q", cfg.Translator.Endpoint)
	}
	if cfg.Translator.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Translator.Timeout.Duration)
	}
	if cfg.Translator.Cooldown.Duration != time.Minute {
		t.Errorf("cooldown = %v", cfg.Translator.Cooldown.Duration)
	}
	if cfg.Cache.TTL.Duration != 10*time.Minute {
		t.Errorf("ttl = %v", cfg.Cache.TTL.Duration)
	}
	if cfg.Cache.MaxEntries != 5 {
		t.Errorf("max entries = %d", cfg.Cache.MaxEntries)
	}
	// unset sections still pick defaults
	if cfg.Scryfall.MinInterval.Duration != 100*time.Millisecond {
		t.Errorf("min interval = %v", cfg.Scryfall.MinInterval.Duration)
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := GetDefaultConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Translator.Timeout = Duration{7 * time.Second}
	cfg.Cache.Snapshot = true

	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Translator.Timeout.Duration != 7*time.Second {
		t.Errorf("timeout = %v", loaded.Translator.Timeout.Duration)
	}
	if !loaded.Cache.Snapshot {
		t.Error("snapshot flag lost in round trip")
	}
}

func TestSaveTemplateConfigSubstitutesStorageDir(t *testing.T) {
	storage := t.TempDir()
	cfg := &Config{StorageDir: storage}

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := cfg.SaveTemplateConfig(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), storage) {
		t.Error("template should contain the storage directory")
	}

	// the template must itself be loadable
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loading template config: %v", err)
	}
	if loaded.StorageDir != storage {
		t.Errorf("storage dir = %q, want %q", loaded.StorageDir, storage)
	}
}

func TestStoragePaths(t *testing.T) {
	cfg := &Config{StorageDir: "/data/manasearch"}
	if got := cfg.HistoryDBPath(); got != "/data/manasearch/history.db" {
		t.Errorf("history path = %q", got)
	}
	if got := cfg.SnapshotPath(); got != "/data/manasearch/translations.snap.zst" {
		t.Errorf("snapshot path = %q", got)
	}
}
