package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("MOODBOXD_SERVER_PORT")
		os.Unsetenv("MOODBOXD_SERVER_ENVIRONMENT")
		os.Unsetenv("MOODBOXD_SCRAPER_DRIVER")
		os.Unsetenv("MOODBOXD_SCRAPER_PAGE_TIMEOUT")
		os.Unsetenv("MOODBOXD_SCRAPER_MAX_PAGES")
		os.Unsetenv("MOODBOXD_OMDB_API_KEY")
		os.Unsetenv("MOODBOXD_CACHE_TYPE")
		os.Unsetenv("MOODBOXD_CACHE_PATH")
		os.Unsetenv("MOODBOXD_CACHE_TTL")
		os.Unsetenv("MOODBOXD_ENRICHMENT_PACING")
		os.Unsetenv("MOODBOXD_RATELIMIT_PER_IP")
	}

	// Run from an empty directory so no config.yaml or .env is picked up
	originalDir, _ := os.Getwd()
	defer os.Chdir(originalDir)
	os.Chdir(t.TempDir())

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Letterboxd.BaseURL != "https://letterboxd.com" {
			t.Errorf("Letterboxd.BaseURL = %s, want https://letterboxd.com", cfg.Letterboxd.BaseURL)
		}
		if cfg.Scraper.Driver != "playwright" {
			t.Errorf("Scraper.Driver = %s, want playwright", cfg.Scraper.Driver)
		}
		if cfg.Scraper.PageTimeout != 20*time.Second {
			t.Errorf("Scraper.PageTimeout = %v, want 20s", cfg.Scraper.PageTimeout)
		}
		if cfg.Scraper.ScrollSettle != 2*time.Second {
			t.Errorf("Scraper.ScrollSettle = %v, want 2s", cfg.Scraper.ScrollSettle)
		}
		if cfg.Scraper.MaxPages != 100 {
			t.Errorf("Scraper.MaxPages = %d, want 100", cfg.Scraper.MaxPages)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 720*time.Hour {
			t.Errorf("Cache.TTL = %v, want 720h", cfg.Cache.TTL)
		}
		if cfg.Enrichment.Pacing != time.Second {
			t.Errorf("Enrichment.Pacing = %v, want 1s", cfg.Enrichment.Pacing)
		}
		if len(cfg.Enrichment.TitlePrefixes) != 1 || cfg.Enrichment.TitlePrefixes[0] != "Poster for " {
			t.Errorf("Enrichment.TitlePrefixes = %v, want [Poster for ]", cfg.Enrichment.TitlePrefixes)
		}
		if cfg.RateLimit.PerIP != 60 {
			t.Errorf("RateLimit.PerIP = %d, want 60", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MOODBOXD_SERVER_PORT", "9090")
		os.Setenv("MOODBOXD_SERVER_ENVIRONMENT", "production")
		os.Setenv("MOODBOXD_SCRAPER_DRIVER", "static")
		os.Setenv("MOODBOXD_SCRAPER_PAGE_TIMEOUT", "5s")
		os.Setenv("MOODBOXD_OMDB_API_KEY", "omdb-key")
		os.Setenv("MOODBOXD_CACHE_TYPE", "sqlite")
		os.Setenv("MOODBOXD_CACHE_PATH", "/tmp/films.db")
		os.Setenv("MOODBOXD_CACHE_TTL", "24h")
		os.Setenv("MOODBOXD_ENRICHMENT_PACING", "250ms")
		os.Setenv("MOODBOXD_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Scraper.Driver != "static" {
			t.Errorf("Scraper.Driver = %s, want static", cfg.Scraper.Driver)
		}
		if cfg.Scraper.PageTimeout != 5*time.Second {
			t.Errorf("Scraper.PageTimeout = %v, want 5s", cfg.Scraper.PageTimeout)
		}
		if cfg.OMDb.APIKey != "omdb-key" {
			t.Errorf("OMDb.APIKey = %s, want omdb-key", cfg.OMDb.APIKey)
		}
		if cfg.Cache.Type != "sqlite" {
			t.Errorf("Cache.Type = %s, want sqlite", cfg.Cache.Type)
		}
		if cfg.Cache.Path != "/tmp/films.db" {
			t.Errorf("Cache.Path = %s, want /tmp/films.db", cfg.Cache.Path)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.Enrichment.Pacing != 250*time.Millisecond {
			t.Errorf("Enrichment.Pacing = %v, want 250ms", cfg.Enrichment.Pacing)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for unknown scraper driver", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MOODBOXD_SCRAPER_DRIVER", "selenium")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for unknown driver")
		}
		if !strings.Contains(err.Error(), "scraper driver") {
			t.Errorf("Load() error = %v, want scraper driver message", err)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MOODBOXD_CACHE_TYPE", "redis")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "moodboxd.yaml")
		content := `
server:
  port: "7070"
scraper:
  driver: static
  max_pages: 3
enrichment:
  title_prefixes:
    - "Poster for "
    - "Still from "
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() error = %v", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
		if cfg.Scraper.Driver != "static" {
			t.Errorf("Scraper.Driver = %s, want static", cfg.Scraper.Driver)
		}
		if cfg.Scraper.MaxPages != 3 {
			t.Errorf("Scraper.MaxPages = %d, want 3", cfg.Scraper.MaxPages)
		}
		if len(cfg.Enrichment.TitlePrefixes) != 2 {
			t.Errorf("Enrichment.TitlePrefixes = %v, want 2 prefixes", cfg.Enrichment.TitlePrefixes)
		}
	})

	t.Run("fails for missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("LoadFile() error = nil, want error for missing file")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1

# TEST_COMMENTED=should_not_load
TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Scraper: ScraperConfig{
				Driver:      "playwright",
				PageTimeout: 20 * time.Second,
				MaxPages:    10,
			},
			Cache: CacheConfig{Type: "memory"},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("fails for non-positive page timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Scraper.PageTimeout = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for zero page timeout")
		}
	})

	t.Run("fails for non-positive max pages", func(t *testing.T) {
		cfg := valid()
		cfg.Scraper.MaxPages = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for zero max pages")
		}
	})

	t.Run("validates sqlite cache type with path", func(t *testing.T) {
		cfg := valid()
		cfg.Cache = CacheConfig{Type: "sqlite", Path: "cache.db"}
		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil for valid sqlite config", err)
		}
	})

	t.Run("fails for sqlite cache without path", func(t *testing.T) {
		cfg := valid()
		cfg.Cache = CacheConfig{Type: "sqlite"}
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for sqlite without path")
		}
	})
}
