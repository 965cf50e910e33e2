package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	WatchSourceRaw      = "raw"
	WatchSourceChromedp = "chromedp"
)

// Config holds the tab_grouper daemon configuration.
type Config struct {
	CDPAddress    string
	CDPPort       int
	ExtensionID   string
	BindAddr      string
	EvalTimeoutMS int
	LogLevel      string
	LogFile       string

	SettingsFile     string
	HistoryDir       string
	HistoryMaxSizeMB int
	HistoryBuffer    int

	DebounceMS  int
	ThrottleMS  int
	MaxRetries  int
	IgnoreURLs  []string
	WatchSource string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		ExtensionID:      getEnvOrDefault("TAB_GROUPER_EXTENSION_ID", ""),
		BindAddr:         getEnvOrDefault("TAB_GROUPER_BIND_ADDR", "127.0.0.1:8190"),
		EvalTimeoutMS:    getEnvIntOrDefault("TAB_GROUPER_EVAL_TIMEOUT_MS", 5000),
		LogLevel:         strings.ToLower(getEnvOrDefault("TAB_GROUPER_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("TAB_GROUPER_LOG_FILE", "logs/tab_grouper.log"),
		SettingsFile:     getEnvOrDefault("TAB_GROUPER_SETTINGS_FILE", "tab_grouper.yaml"),
		HistoryDir:       getEnvOrDefault("TAB_GROUPER_HISTORY_DIR", "./history"),
		HistoryMaxSizeMB: getEnvIntOrDefault("TAB_GROUPER_HISTORY_MAX_SIZE_MB", 50),
		HistoryBuffer:    getEnvIntOrDefault("TAB_GROUPER_HISTORY_BUFFER", 256),
		DebounceMS:       getEnvIntOrDefault("TAB_GROUPER_DEBOUNCE_MS", 1200),
		ThrottleMS:       getEnvIntOrDefault("TAB_GROUPER_THROTTLE_MS", 500),
		MaxRetries:       getEnvIntOrDefault("TAB_GROUPER_MAX_RETRIES", 10),
		IgnoreURLs:       getEnvListOrDefault("TAB_GROUPER_IGNORE_URLS", "devtools://*,chrome-extension://*"),
		WatchSource:      strings.ToLower(getEnvOrDefault("TAB_GROUPER_WATCH_SOURCE", WatchSourceRaw)),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.DebounceMS < 0 {
		cfg.DebounceMS = 0
	}
	if cfg.ThrottleMS < 0 {
		cfg.ThrottleMS = 0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	switch cfg.WatchSource {
	case WatchSourceRaw, WatchSourceChromedp:
	default:
		return nil, fmt.Errorf("config: TAB_GROUPER_WATCH_SOURCE %q must be %q or %q", cfg.WatchSource, WatchSourceRaw, WatchSourceChromedp)
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}
