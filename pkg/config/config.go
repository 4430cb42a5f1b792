package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	// PostgresURL and RedisAddr are optional; without them approved recipes
	// are not persisted and pages are not cached.
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PageCacheTTLMinutes   int    `mapstructure:"PAGE_CACHE_TTL_MINUTES"`
	FetchTimeoutSeconds   int    `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	ProxyURLs             string `mapstructure:"PROXY_URLS"`
	BrowserFallback       bool   `mapstructure:"BROWSER_FALLBACK"`
	BrowserTimeoutSeconds int    `mapstructure:"BROWSER_TIMEOUT_SECONDS"`
	BrowserConcurrency    int    `mapstructure:"BROWSER_CONCURRENCY"`

	ScraperWorkers   int    `mapstructure:"SCRAPER_WORKERS"`
	ScraperQueueSize int    `mapstructure:"SCRAPER_QUEUE_SIZE"`
	SiteLayoutsFile  string `mapstructure:"SITE_LAYOUTS_FILE"`

	ReviewThreshold  float64 `mapstructure:"REVIEW_THRESHOLD"`
	BlockedThreshold float64 `mapstructure:"BLOCKED_THRESHOLD"`

	SessionTTLMinutes int `mapstructure:"SESSION_TTL_MINUTES"`
	SessionMaxEvents  int `mapstructure:"SESSION_MAX_EVENTS"`

	TesseractBin  string `mapstructure:"TESSERACT_BIN"`
	TesseractLang string `mapstructure:"TESSERACT_LANG"`
}

var defaults = map[string]any{
	"SERVER_PORT":             "8080",
	"LOG_LEVEL":               "info",
	"POSTGRES_URL":            "",
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"PAGE_CACHE_TTL_MINUTES":  60,
	"FETCH_TIMEOUT_SECONDS":   30,
	"PROXY_URLS":              "",
	"BROWSER_FALLBACK":        false,
	"BROWSER_TIMEOUT_SECONDS": 45,
	"BROWSER_CONCURRENCY":     2,
	"SCRAPER_WORKERS":         4,
	"SCRAPER_QUEUE_SIZE":      64,
	"SITE_LAYOUTS_FILE":       "",
	"REVIEW_THRESHOLD":        0.6,
	"BLOCKED_THRESHOLD":       0.25,
	"SESSION_TTL_MINUTES":     30,
	"SESSION_MAX_EVENTS":      256,
	"TESSERACT_BIN":           "tesseract",
	"TESSERACT_LANG":          "eng",
}

// Load reads configuration from a .env file in the working directory, if
// present, and the environment. Environment variables win.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// The file is optional so that production can configure purely through
	// the environment.
	_ = v.ReadInConfig()

	// Unmarshal only sees keys viper knows about, so every key gets a default.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.BrowserTimeoutSeconds) * time.Second
}

func (c *Config) PageCacheTTL() time.Duration {
	return time.Duration(c.PageCacheTTLMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Proxies splits PROXY_URLS on commas.
func (c *Config) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.ProxyURLs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
