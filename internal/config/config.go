package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the geogrub API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Places    PlacesConfig    `yaml:"places"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Locate    LocateConfig    `yaml:"locate"`
	Cache     CacheConfig     `yaml:"cache"`
	Favorites FavoritesConfig `yaml:"favorites"`
	Summary   SummaryConfig   `yaml:"summary"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// PlacesConfig holds nearby-search, details and photo provider settings.
type PlacesConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Category          string  `yaml:"category"`
	RadiusMeters      int     `yaml:"radius_meters"`
	MaxPages          int     `yaml:"max_pages"` // -1 = every page (default: 1)
	PageDelayMs       int     `yaml:"page_delay_ms"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	PhotoMaxWidth     int     `yaml:"photo_max_width"`
}

// GeocodingConfig holds Nominatim settings.
type GeocodingConfig struct {
	BaseURL       string `yaml:"base_url"`
	UserAgent     string `yaml:"user_agent"`
	CountrySuffix string `yaml:"country_suffix"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// LocateConfig holds IP geolocation settings.
type LocateConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Driver            string   `yaml:"driver"`      // memory, valkey (default: memory)
	MaxEntries        int      `yaml:"max_entries"` // per memory tier, 0 = unbounded
	KeyIncludesParams bool     `yaml:"key_includes_params"`
	KeyPrefix         string   `yaml:"key_prefix"`
	Addrs             []string `yaml:"addrs"`
	Password          string   `yaml:"password"`
	ReadinessTimeout  int      `yaml:"readiness_timeout_sec"`
}

// FavoritesConfig holds favorites persistence settings.
type FavoritesConfig struct {
	Driver string `yaml:"driver"` // json, sqlite (default: json)
	Path   string `yaml:"path"`
}

// SummaryConfig holds review summary settings. Empty api_key disables summaries.
type SummaryConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Enabled reports whether review summaries are configured.
func (c SummaryConfig) Enabled() bool { return c.APIKey != "" }

// PageDelay returns the wait before a continuation token is used.
func (c PlacesConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates a single YAML file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// LoadDotEnv loads variables from a .env file into the environment.
// A missing file is not an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if !fileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Places.Category == "" {
		c.Places.Category = "restaurant"
	}
	if c.Places.RadiusMeters <= 0 {
		c.Places.RadiusMeters = 5000
	}
	if c.Places.MaxPages == 0 {
		c.Places.MaxPages = 1
	}
	if c.Places.PageDelayMs <= 0 {
		c.Places.PageDelayMs = MinPageDelayMs
	}
	if c.Places.TimeoutSec <= 0 {
		c.Places.TimeoutSec = 15
	}
	if c.Places.PhotoMaxWidth <= 0 {
		c.Places.PhotoMaxWidth = 400
	}
	if c.Geocoding.UserAgent == "" {
		c.Geocoding.UserAgent = "geogrub/1.0"
	}
	if c.Geocoding.CountrySuffix == "" {
		c.Geocoding.CountrySuffix = "USA"
	}
	if c.Geocoding.TimeoutSec <= 0 {
		c.Geocoding.TimeoutSec = 10
	}
	if c.Locate.TimeoutSec <= 0 {
		c.Locate.TimeoutSec = 5
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "geogrub:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Favorites.Driver == "" {
		c.Favorites.Driver = "json"
	}
	if c.Favorites.Path == "" {
		if c.Favorites.Driver == "sqlite" {
			c.Favorites.Path = "favorites.db"
		} else {
			c.Favorites.Path = "favorites.json"
		}
	}
	if c.Summary.Model == "" {
		c.Summary.Model = "gpt-4o-mini"
	}
	if c.Summary.MaxTokens <= 0 {
		c.Summary.MaxTokens = 200
	}
}

// MinPageDelayMs is the shortest wait the places provider accepts before a
// continuation token becomes valid.
const MinPageDelayMs = 2000

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Places.APIKey == "" {
		return fmt.Errorf("places.api_key is required")
	}
	if c.Places.MaxPages < -1 {
		return fmt.Errorf("places.max_pages must be -1 (all pages) or positive, got %d", c.Places.MaxPages)
	}
	if c.Places.PageDelayMs < MinPageDelayMs {
		return fmt.Errorf("places.page_delay_ms must be at least %d, got %d", MinPageDelayMs, c.Places.PageDelayMs)
	}
	if c.Places.RequestsPerSecond < 0 {
		return fmt.Errorf("places.requests_per_second must not be negative, got %v", c.Places.RequestsPerSecond)
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries)
	}
	switch c.Cache.Driver {
	case "memory":
	case "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the valkey driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"valkey\", got %q", c.Cache.Driver)
	}
	switch c.Favorites.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("favorites.driver must be \"json\" or \"sqlite\", got %q", c.Favorites.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
