package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XUPG_CATALOG_URL", "")
	t.Setenv("XUPG_DOWNLOAD_DIR", "")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "xupg.json"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Fatalf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.Timeout() != 300*time.Second {
		t.Fatalf("Timeout = %v", cfg.Timeout())
	}
	if !cfg.UpdateConfig.Enabled || !cfg.UpdateConfig.AutoCheck {
		t.Fatal("updates should be enabled by default")
	}
}

func TestLoadFromStripsBOM(t *testing.T) {
	t.Setenv("XUPG_CATALOG_URL", "")
	t.Setenv("XUPG_DOWNLOAD_DIR", "")

	path := filepath.Join(t.TempDir(), "xupg.json")
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"concurrency": 2, "xampp_path": "D:\\xampp\\php"}`)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Concurrency != 2 || cfg.XamppPath != `D:\xampp\php` {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xupg.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XUPG_CATALOG_URL", "http://localhost:9999/releases.json")
	t.Setenv("XUPG_DOWNLOAD_DIR", filepath.Join(dir, "downloads"))

	path := filepath.Join(dir, "xupg.json")
	if err := os.WriteFile(path, []byte(`{"catalog_url": "https://example.com/a.json"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CatalogURL != "http://localhost:9999/releases.json" {
		t.Fatalf("CatalogURL = %q", cfg.CatalogURL)
	}
	got, err := cfg.ResolveDownloadDir()
	if err != nil || got != filepath.Join(dir, "downloads") {
		t.Fatalf("ResolveDownloadDir = %q, %v", got, err)
	}
}

func TestResolveDownloadDirDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cfg := &Config{}
	got, err := cfg.ResolveDownloadDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".xupg", "module", "downloads"); got != want {
		t.Fatalf("ResolveDownloadDir = %q, want %q", got, want)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("XUPG_CATALOG_URL", "")
	t.Setenv("XUPG_DOWNLOAD_DIR", "")

	path := filepath.Join(t.TempDir(), "nested", "xupg.json")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.AddInstalled(InstalledPackage{Package: "php", Version: "8.2.1", Path: "/opt/lampp/php/"})
	cfg.AddInstalled(InstalledPackage{Package: "php", Version: "8.3.0", Path: "/opt/lampp/php"})
	cfg.AddInstalled(InstalledPackage{Package: "mysql", Version: "8.0.36", Path: "/opt/lampp/mysql"})

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Installed) != 2 {
		t.Fatalf("expected 2 installs, got %+v", reloaded.Installed)
	}
	last := reloaded.InstalledAt("/opt/lampp/php")
	if last == nil || last.Version != "8.3.0" {
		t.Fatalf("InstalledAt = %+v", last)
	}
	if reloaded.InstalledAt("/nowhere") != nil {
		t.Fatal("expected no install for unknown path")
	}
}

func TestConfigPathHonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got, want := getConfigPath(), filepath.Join(dir, "xupg", "xupg.json"); got != want {
		t.Fatalf("getConfigPath = %q, want %q", got, want)
	}
}
