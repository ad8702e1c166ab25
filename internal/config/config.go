package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultConcurrency is the number of simultaneous downloads
	DefaultConcurrency = 4

	// DefaultDownloadTimeout is the per-request timeout in seconds
	DefaultDownloadTimeout = 300
)

// Config holds the application configuration
type Config struct {
	CatalogURL      string             `json:"catalog_url"`      // Release catalog override
	DownloadDir     string             `json:"download_dir"`     // Root of per-package archive directories
	Concurrency     int                `json:"concurrency"`      // Simultaneous downloads
	DownloadTimeout int                `json:"download_timeout"` // Seconds per request
	UserAgent       string             `json:"user_agent"`       // Sent with archive requests
	XamppPath       string             `json:"xampp_path"`       // XAMPP PHP directory override
	Installed       []InstalledPackage `json:"installed"`        // Installs made via xupg install
	UpdateConfig    UpdateConfig       `json:"update_config"`    // Auto-update configuration
	configPath      string
}

// UpdateConfig holds settings for auto-update feature
type UpdateConfig struct {
	Enabled     bool      `json:"enabled"`      // Master toggle for update functionality
	AutoCheck   bool      `json:"auto_check"`   // Check for updates on startup
	LastCheck   time.Time `json:"last_check"`   // Last time update check was performed
	SkipVersion string    `json:"skip_version"` // Version user chose to skip
}

// InstalledPackage records one archive extracted by xupg install
type InstalledPackage struct {
	Package     string `json:"package"`
	Version     string `json:"version"`
	Path        string `json:"path"`
	InstalledAt string `json:"installed_at"`
}

// Load loads the configuration from the user's config directory and
// applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFrom loads the configuration stored at configPath
func LoadFrom(configPath string) (*Config, error) {
	cfg := &Config{
		Installed: make([]InstalledPackage, 0),
		UpdateConfig: UpdateConfig{
			Enabled:   true,
			AutoCheck: true,
		},
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// first run
	case err != nil:
		return nil, err
	default:
		// Remove BOM if present (UTF-8 BOM is EF BB BF)
		// This handles files created by PowerShell with Set-Content -Encoding UTF8
		if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
			data = data[3:]
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("XUPG_CATALOG_URL")); v != "" {
		cfg.CatalogURL = v
	}
	if v := strings.TrimSpace(os.Getenv("XUPG_DOWNLOAD_DIR")); v != "" {
		cfg.DownloadDir = v
	}

	if cfg.DownloadDir != "" {
		cfg.DownloadDir = filepath.Clean(cfg.DownloadDir)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	cfg.configPath = configPath
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	// Ensure config directory exists
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// Path returns the file the configuration is saved to
func (c *Config) Path() string {
	return c.configPath
}

// ResolveDownloadDir returns the configured download root or
// <home>/.xupg/module/downloads.
func (c *Config) ResolveDownloadDir() (string, error) {
	if c.DownloadDir != "" {
		return c.DownloadDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xupg", "module", "downloads"), nil
}

// Timeout returns the per-request download timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.DownloadTimeout) * time.Second
}

// AddInstalled records an install, replacing an earlier one of the same
// package into the same path.
func (c *Config) AddInstalled(pkg InstalledPackage) {
	pkg.Path = filepath.Clean(pkg.Path)

	for i, existing := range c.Installed {
		if strings.EqualFold(existing.Path, pkg.Path) && strings.EqualFold(existing.Package, pkg.Package) {
			c.Installed[i] = pkg
			return
		}
	}

	c.Installed = append(c.Installed, pkg)
}

// InstalledAt returns the last install recorded for path
func (c *Config) InstalledAt(path string) *InstalledPackage {
	path = filepath.Clean(path)

	for i := len(c.Installed) - 1; i >= 0; i-- {
		if strings.EqualFold(c.Installed[i].Path, path) {
			return &c.Installed[i]
		}
	}
	return nil
}

// getConfigPath returns the path to the configuration file
// XDG Base Directory layout
func getConfigPath() string {
	// Try XDG_CONFIG_HOME first (standard on Unix systems)
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome != "" {
		return filepath.Join(configHome, "xupg", "xupg.json")
	}

	// Fallback to $HOME/.config/xupg/xupg.json (XDG default)
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return filepath.Join(homeDir, ".config", "xupg", "xupg.json")
}
