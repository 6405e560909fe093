package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Config is the full manasearch configuration, loaded from TOML.
type Config struct {
	StorageDir string           `toml:"storage_dir"`
	Translator TranslatorConfig `toml:"translator"`
	Cache      CacheConfig      `toml:"cache"`
	History    HistoryConfig    `toml:"history"`
	Scryfall   ScryfallConfig   `toml:"scryfall"`
	Server     ServerConfig     `toml:"server"`
}

// TranslatorConfig configures the translation backend client and the search
// handler's failure windows.
type TranslatorConfig struct {
	Endpoint string   `toml:"endpoint"`
	APIKey   string   `toml:"api_key"`
	Timeout  Duration `toml:"timeout"`
	Cooldown Duration `toml:"cooldown"`
}

// CacheConfig configures the translation cache.
type CacheConfig struct {
	TTL        Duration `toml:"ttl"`
	MaxEntries int      `toml:"max_entries"`
	Snapshot   bool     `toml:"snapshot"`
}

// HistoryConfig configures the search history store.
type HistoryConfig struct {
	MaxEntries int `toml:"max_entries"`
}

// ScryfallConfig configures the card search API client.
type ScryfallConfig struct {
	Endpoint    string   `toml:"endpoint"`
	MinInterval Duration `toml:"min_interval"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// Duration wraps time.Duration so TOML values read as "15s"-style strings.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns a config with every field at its default.
func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}

	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfig reads configPath, falling back to defaults when the file does
// not exist. Missing fields are filled in with defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		cfg.StorageDir = storageDir
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Translator.Endpoint == "" {
		c.Translator.Endpoint = "https://translate.manasearch.app"
	}
	if c.Translator.Timeout.Duration == 0 {
		c.Translator.Timeout = Duration{15 * time.Second}
	}
	if c.Translator.Cooldown.Duration == 0 {
		c.Translator.Cooldown = Duration{30 * time.Second}
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = Duration{30 * time.Minute}
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 50
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = 20
	}
	if c.Scryfall.Endpoint == "" {
		c.Scryfall.Endpoint = "https://api.scryfall.com"
	}
	if c.Scryfall.MinInterval.Duration == 0 {
		c.Scryfall.MinInterval = Duration{100 * time.Millisecond}
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8787"
	}
}

// HistoryDBPath returns the path of the history database inside StorageDir.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.StorageDir, "history.db")
}

// SnapshotPath returns the path of the translation cache snapshot.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.StorageDir, "translations.snap.zst")
}

// SaveConfig writes the config as TOML, creating parent directories.
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample config with the storage
// directory substituted in.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	storageDir := c.StorageDir
	if storageDir == "" {
		var err error
		storageDir, err = GetDefaultStorageDir()
		if err != nil {
			return fmt.Errorf("getting default storage directory: %w", err)
		}
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/manasearch", storageDir, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// GetDefaultStorageDir returns (and creates) the default storage directory.
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "manasearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory: %w", err)
	}
	return dir, nil
}

// GetDefaultConfigPath returns the default config file location.
func GetDefaultConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "manasearch", "config.toml"), nil
}
