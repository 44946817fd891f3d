package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dperique/browser-tab-cleaner/internal/classify"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the tab cleaner.
type Config struct {
	// CDP connection settings. CDPPort 0 means probe the candidates.
	CDPAddress        string
	CDPPort           int
	CDPPortCandidates []int
	RequestTimeoutMS  int

	// Cleanup behavior
	CloseDelayMS int

	// Logging
	LogLevel string
	LogFile  string

	// Inspection API (serve mode)
	BindAddr         string
	BindCandidates   []string
	BindAutoFallback bool

	// Browser launch (launch mode)
	ProfileDir string
	StartURL   string

	// Optional ntfy endpoint for run summaries. Empty disables notifications.
	NtfyEndpoint string

	// Classifier patterns
	Rules classify.Rules
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	defaults := classify.DefaultRules()

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 0),
		CDPPortCandidates: getEnvIntListOrDefault("CLEANER_CDP_PORT_CANDIDATES", []int{9222, 9220, 9229}),
		RequestTimeoutMS:  getEnvIntOrDefault("CLEANER_REQUEST_TIMEOUT_MS", 5000),
		CloseDelayMS:      getEnvIntOrDefault("CLEANER_CLOSE_DELAY_MS", 100),
		LogLevel:          strings.ToLower(getEnvOrDefault("CLEANER_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("CLEANER_LOG_FILE", "logs/tab_cleaner.log"),
		BindAddr:          getEnvOrDefault("CLEANER_BIND_ADDR", "127.0.0.1:8189"),
		BindCandidates:    getEnvListOrDefault("CLEANER_BIND_CANDIDATES", []string{"127.0.0.1:8189", "127.0.0.1:8190"}),
		BindAutoFallback:  getEnvBoolOrDefault("CLEANER_BIND_AUTO_FALLBACK", true),
		ProfileDir:        getEnvOrDefault("CLEANER_PROFILE_DIR", "./browser-profile"),
		StartURL:          getEnvOrDefault("CLEANER_START_URL", "about:blank"),
		NtfyEndpoint:      os.Getenv("CLEANER_NTFY_ENDPOINT"),
		Rules: classify.Rules{
			NewTabURLs:        getEnvListOrDefault("CLEANER_NEWTAB_URLS", defaults.NewTabURLs),
			ErrorURLPrefixes:  getEnvListOrDefault("CLEANER_ERROR_URL_PREFIXES", defaults.ErrorURLPrefixes),
			ErrorURLMarkers:   getEnvListOrDefault("CLEANER_ERROR_URL_MARKERS", defaults.ErrorURLMarkers),
			ErrorTitleMarkers: getEnvListOrDefault("CLEANER_ERROR_TITLE_MARKERS", defaults.ErrorTitleMarkers),
			BuildMarkers:      getEnvListOrDefault("CLEANER_BUILD_MARKERS", defaults.BuildMarkers),
			JenkinsDomains:    getEnvListOrDefault("CLEANER_JENKINS_DOMAINS", defaults.JenkinsDomains),
		},
	}
	if cfg.RequestTimeoutMS < 1000 {
		cfg.RequestTimeoutMS = 1000
	}

	return cfg, nil
}

// CDPURL returns the DevTools HTTP endpoint URL.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func getEnvIntListOrDefault(key string, defaultVal []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	out := make([]int, 0)
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		i, err := strconv.Atoi(p)
		if err != nil {
			slog.Debug("ignoring non-numeric port candidate", "key", key, "value", p)
			continue
		}
		out = append(out, i)
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
