package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	API    APISettings    `json:"api"`
	Cache  CacheSettings  `json:"cache"`
	Search SearchSettings `json:"search"`
	Log    LogConfig      `json:"log"`
}

type APISettings struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type CacheSettings struct {
	Directory      string `json:"directory"`
	DetailDatabase string `json:"detailDatabase"` // filename inside Directory
}

type SearchSettings struct {
	PageSize          int `json:"pageSize"`          // max summaries kept per raw page
	EnrichConcurrency int `json:"enrichConcurrency"` // detail fan-out width
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"` // megabytes
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"` // days
	Compress   bool   `json:"compress"`
	Level      string `json:"level"` // debug | info | warn | error
}

// DefaultSettings returns the configuration used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		API: APISettings{
			BaseURL:        "http://localhost:5231/api",
			TimeoutSeconds: 15,
		},
		Cache: CacheSettings{
			Directory:      "cache",
			DetailDatabase: "details.db",
		},
		Search: SearchSettings{
			PageSize:          20,
			EnrichConcurrency: 8,
		},
		Log: LogConfig{
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
			Level:      "info",
		},
	}
}

// Normalize fills in zero values with defaults so partially edited settings
// files keep working.
func (s *Settings) Normalize() {
	defaults := DefaultSettings()
	if strings.TrimSpace(s.API.BaseURL) == "" {
		s.API.BaseURL = defaults.API.BaseURL
	}
	s.API.BaseURL = strings.TrimRight(s.API.BaseURL, "/")
	if s.API.TimeoutSeconds <= 0 {
		s.API.TimeoutSeconds = defaults.API.TimeoutSeconds
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = defaults.Cache.Directory
	}
	if strings.TrimSpace(s.Cache.DetailDatabase) == "" {
		s.Cache.DetailDatabase = defaults.Cache.DetailDatabase
	}
	if s.Search.PageSize <= 0 {
		s.Search.PageSize = defaults.Search.PageSize
	}
	if s.Search.EnrichConcurrency <= 0 {
		s.Search.EnrichConcurrency = defaults.Search.EnrichConcurrency
	}
	if s.Log.MaxSize <= 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if strings.TrimSpace(s.Log.Level) == "" {
		s.Log.Level = defaults.Log.Level
	}
}

// DetailDatabasePath returns the absolute location of the detail cache db.
func (s Settings) DetailDatabasePath() string {
	return filepath.Join(s.Cache.Directory, s.Cache.DetailDatabase)
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var settings Settings
	if err := json.NewDecoder(f).Decode(&settings); err != nil {
		return Settings{}, err
	}
	settings.Normalize()
	return settings, nil
}

// Save writes settings atomically via a temp file rename.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
