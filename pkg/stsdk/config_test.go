package stsdk

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_ProjectConfig(t *testing.T) {
	tempDir := t.TempDir()
	testChdir(t, tempDir)

	projectConfig := `
baseUrl: http://example.com:8000/api/
timeout: 10s
store: memory
`
	os.WriteFile("skintwin.yaml", []byte(projectConfig), 0644)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://example.com:8000/api" {
		t.Errorf("Expected normalized baseUrl http://example.com:8000/api, got %s", cfg.BaseURL)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %s", cfg.Timeout)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Expected store memory, got %s", cfg.Store)
	}
}

func TestLoadConfig_LocalOverride(t *testing.T) {
	tempDir := t.TempDir()
	testChdir(t, tempDir)

	projectConfig := `
baseUrl: http://example.com:8000/api
store: keyring
`
	os.WriteFile("skintwin.yaml", []byte(projectConfig), 0644)

	os.MkdirAll(ConfigRoot, 0755)
	localConfig := `
baseUrl: http://localhost:8080/api
store: valkey
valkey:
  addr: cache:6379
  db: 2
`
	os.WriteFile(filepath.Join(ConfigRoot, "config.yaml"), []byte(localConfig), 0644)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://localhost:8080/api" {
		t.Errorf("Expected baseUrl from local override, got %s", cfg.BaseURL)
	}
	if cfg.Store != StoreValkey {
		t.Errorf("Expected store valkey (from local override), got %s", cfg.Store)
	}
	if cfg.Valkey.Addr != "cache:6379" || cfg.Valkey.DB != 2 {
		t.Errorf("Expected valkey cache:6379 db 2, got %+v", cfg.Valkey)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	tempDir := t.TempDir()
	testChdir(t, tempDir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default baseUrl %s, got %s", DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %s", cfg.Timeout)
	}
	if cfg.Store != StoreKeyring {
		t.Errorf("Expected default store keyring, got %s", cfg.Store)
	}
	if !cfg.CoalesceRenewals {
		t.Error("Expected renewal coalescing on by default")
	}
}

func TestLoadConfig_Env(t *testing.T) {
	tempDir := t.TempDir()
	testChdir(t, tempDir)
	t.Setenv("SKINTWIN_STORE", "memory")
	t.Setenv("SKINTWIN_COALESCERENEWALS", "false")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store != StoreMemory {
		t.Errorf("Expected store memory from env, got %s", cfg.Store)
	}
	if cfg.CoalesceRenewals {
		t.Error("Expected coalescing disabled from env")
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	tempDir := t.TempDir()
	testChdir(t, tempDir)

	customConfig := `
baseUrl: http://custom.com:9000/api
`
	customPath := filepath.Join(tempDir, "custom-config.yaml")
	os.WriteFile(customPath, []byte(customConfig), 0644)

	cfg, err := LoadConfig(customPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.BaseURL != "http://custom.com:9000/api" {
		t.Errorf("Expected baseUrl http://custom.com:9000/api, got %s", cfg.BaseURL)
	}
	if cfg.ConfigFileUsed() != customPath {
		t.Errorf("Expected config file %s, got %s", customPath, cfg.ConfigFileUsed())
	}
}

func TestLoadConfig_RejectsUnknownStore(t *testing.T) {
	tempDir := t.TempDir()
	testChdir(t, tempDir)
	os.WriteFile("skintwin.yaml", []byte("store: localStorage\n"), 0644)

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("Expected error for unknown store")
	}
}
