package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Letterboxd LetterboxdConfig
	Scraper    ScraperConfig
	IMDb       IMDbConfig `mapstructure:"imdb"`
	OMDb       OMDbConfig `mapstructure:"omdb"`
	Cache      CacheConfig
	Enrichment EnrichmentConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LetterboxdConfig holds the catalog site location
type LetterboxdConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// ScraperConfig controls the catalog page walker and its rendering surface
type ScraperConfig struct {
	Driver            string        `mapstructure:"driver"` // "playwright" or "static"
	BrowserPath       string        `mapstructure:"browser_path"`
	InstallDriver     bool          `mapstructure:"install_driver"`
	Headless          bool          `mapstructure:"headless"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"`
	ScrollSettle      time.Duration `mapstructure:"scroll_settle"`
	MaxScrollAttempts int           `mapstructure:"max_scroll_attempts"`
	MaxPages          int           `mapstructure:"max_pages"`
	DebugDir          string        `mapstructure:"debug_dir"`
}

// IMDbConfig holds the primary metadata source endpoints
type IMDbConfig struct {
	SuggestURL string        `mapstructure:"suggest_url"`
	TitleURL   string        `mapstructure:"title_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// OMDbConfig holds the fallback metadata source configuration
type OMDbConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "sqlite"
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// EnrichmentConfig tunes the matcher and the batch orchestrator
type EnrichmentConfig struct {
	Pacing            time.Duration `mapstructure:"pacing"`
	LookupTimeout     time.Duration `mapstructure:"lookup_timeout"`
	TitlePrefixes     []string      `mapstructure:"title_prefixes"`
	NonFilmIndicators []string      `mapstructure:"non_film_indicators"`
	EnableDebugLogs   bool          `mapstructure:"enable_debug_logs"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	IMDb  int `mapstructure:"imdb"`   // requests per minute
	OMDb  int `mapstructure:"omdb"`   // requests per day
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/moodboxd/")

	v.SetEnvPrefix("MOODBOXD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFile loads configuration from an explicit file path, still honoring env overrides
func LoadFile(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Load()
	}
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MOODBOXD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// loadEnvFile loads KEY=VALUE pairs from ./.env without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("letterboxd.base_url", "https://letterboxd.com")

	// Scraper defaults
	v.SetDefault("scraper.driver", "playwright")
	v.SetDefault("scraper.browser_path", "")
	v.SetDefault("scraper.install_driver", false)
	v.SetDefault("scraper.headless", true)
	v.SetDefault("scraper.page_timeout", "20s")
	v.SetDefault("scraper.scroll_settle", "2s")
	v.SetDefault("scraper.max_scroll_attempts", 20)
	v.SetDefault("scraper.max_pages", 100)
	v.SetDefault("scraper.debug_dir", "debug")

	// Metadata sources
	v.SetDefault("imdb.suggest_url", "https://v3.sg.media-imdb.com/suggestion")
	v.SetDefault("imdb.title_url", "https://www.imdb.com/title")
	v.SetDefault("imdb.timeout", "30s")
	v.SetDefault("omdb.api_key", "")
	v.SetDefault("omdb.base_url", "https://www.omdbapi.com")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.path", "moodboxd-cache.db")
	v.SetDefault("cache.ttl", "720h") // 30 days

	// Enrichment defaults
	v.SetDefault("enrichment.pacing", "1s")
	v.SetDefault("enrichment.lookup_timeout", "30s")
	v.SetDefault("enrichment.title_prefixes", []string{"Poster for "})
	v.SetDefault("enrichment.non_film_indicators", []string{})
	v.SetDefault("enrichment.enable_debug_logs", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.imdb", 60)
	v.SetDefault("ratelimit.omdb", 1000)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Scraper.Driver != "playwright" && config.Scraper.Driver != "static" {
		return fmt.Errorf("scraper driver must be 'playwright' or 'static', got: %s", config.Scraper.Driver)
	}

	if config.Scraper.PageTimeout <= 0 {
		return fmt.Errorf("scraper page timeout must be positive")
	}

	if config.Scraper.MaxPages <= 0 {
		return fmt.Errorf("scraper max pages must be positive")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "sqlite" {
		return fmt.Errorf("cache type must be 'memory' or 'sqlite', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "sqlite" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'sqlite'")
	}

	return nil
}
