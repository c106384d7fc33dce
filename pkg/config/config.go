package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config, data and keyring locations
const AppName = "twinkscan"

// DefaultWorklistSelector matches the member links on the faction roster page
const DefaultWorklistSelector = `a.link_lock[onclick*="Mi.showMemberChars"]`

// Config holds all configuration options for the scanner
type Config struct {
	// Target page and browser settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Human-like pacing
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Scan behaviour
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Faction catalog source
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Persisted key-value store
	Store StoreConfig `yaml:"store" json:"store"`

	// Result export settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds the target page and browser settings
type SiteConfig struct {
	URL              string        `yaml:"url" json:"url"`
	WorklistSelector string        `yaml:"worklist_selector" json:"worklist_selector"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent"`
	Headless         bool          `yaml:"headless" json:"headless"`
	NoSandbox        bool          `yaml:"no_sandbox" json:"no_sandbox"`
	ChromePath       string        `yaml:"chrome_path" json:"chrome_path"`
	UserDataDir      string        `yaml:"user_data_dir" json:"user_data_dir"`
	CardWait         time.Duration `yaml:"card_wait" json:"card_wait"`
	PageTimeout      time.Duration `yaml:"page_timeout" json:"page_timeout"`
}

// PacingConfig holds the delay ranges used between profiles
type PacingConfig struct {
	MinDelay            time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay            time.Duration `yaml:"max_delay" json:"max_delay"`
	LongPauseChance     float64       `yaml:"long_pause_chance" json:"long_pause_chance"`
	LongPauseMin        time.Duration `yaml:"long_pause_min" json:"long_pause_min"`
	LongPauseMax        time.Duration `yaml:"long_pause_max" json:"long_pause_max"`
	VeryLongPauseChance float64       `yaml:"very_long_pause_chance" json:"very_long_pause_chance"`
	VeryLongPauseMin    time.Duration `yaml:"very_long_pause_min" json:"very_long_pause_min"`
	VeryLongPauseMax    time.Duration `yaml:"very_long_pause_max" json:"very_long_pause_max"`
	RequestWindow       time.Duration `yaml:"request_window" json:"request_window"`
}

// ScanConfig holds scan controller settings
type ScanConfig struct {
	Nickname           string        `yaml:"nickname" json:"nickname"`
	CheckpointInterval int           `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	MaxReloads         int           `yaml:"max_reloads" json:"max_reloads"`
	RateLimitPause     time.Duration `yaml:"rate_limit_pause" json:"rate_limit_pause"`
	Account            string        `yaml:"account" json:"account"`
}

// CatalogConfig points at an optional YAML faction catalog
type CatalogConfig struct {
	Path string `yaml:"path" json:"path"`
}

// StoreConfig selects the key-value store engine
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// ExportConfig controls writing results to disk
type ExportConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Directory       string `yaml:"directory" json:"directory"`
	FileNamePattern string `yaml:"file_name_pattern" json:"file_name_pattern"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	OnComplete  bool `yaml:"on_complete" json:"on_complete"`
	OnCaptcha   bool `yaml:"on_captcha" json:"on_captcha"`
	OnRateLimit bool `yaml:"on_rate_limit" json:"on_rate_limit"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			WorklistSelector: DefaultWorklistSelector,
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Headless:         false,
			NoSandbox:        true,
			CardWait:         2 * time.Second,
			PageTimeout:      60 * time.Second,
		},
		Pacing: PacingConfig{
			MinDelay:            800 * time.Millisecond,
			MaxDelay:            1500 * time.Millisecond,
			LongPauseChance:     0.15,
			LongPauseMin:        2 * time.Second,
			LongPauseMax:        4 * time.Second,
			VeryLongPauseChance: 0.05,
			VeryLongPauseMin:    5 * time.Second,
			VeryLongPauseMax:    8 * time.Second,
			RequestWindow:       30 * time.Second,
		},
		Scan: ScanConfig{
			Nickname:           "kenny",
			CheckpointInterval: 5,
			MaxReloads:         5,
			RateLimitPause:     10 * time.Second,
		},
		Store: StoreConfig{
			Driver: "file",
			Path:   filepath.Join(xdg.DataHome, AppName, "state.json"),
		},
		Export: ExportConfig{
			Enabled:         false,
			Directory:       ".",
			FileNamePattern: "twink_results_{date}_{time}.txt",
		},
		Notifications: NotificationConfig{
			Enabled:     true,
			OnComplete:  true,
			OnCaptcha:   true,
			OnRateLimit: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if siteURL := os.Getenv("TWINKSCAN_SITE_URL"); siteURL != "" {
		c.Site.URL = siteURL
	}
	if selector := os.Getenv("TWINKSCAN_WORKLIST_SELECTOR"); selector != "" {
		c.Site.WorklistSelector = selector
	}
	if userAgent := os.Getenv("TWINKSCAN_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}
	if headless := os.Getenv("TWINKSCAN_HEADLESS"); headless != "" {
		c.Site.Headless = strings.ToLower(headless) == "true"
	}

	// Scan settings
	if nickname := os.Getenv("TWINKSCAN_NICKNAME"); nickname != "" {
		c.Scan.Nickname = nickname
	}
	if reloads := os.Getenv("TWINKSCAN_MAX_RELOADS"); reloads != "" {
		val, err := strconv.Atoi(reloads)
		if err != nil {
			return fmt.Errorf("invalid TWINKSCAN_MAX_RELOADS: %w", err)
		}
		c.Scan.MaxReloads = val
	}
	if account := os.Getenv("TWINKSCAN_ACCOUNT"); account != "" {
		c.Scan.Account = account
	}

	if catalog := os.Getenv("TWINKSCAN_CATALOG"); catalog != "" {
		c.Catalog.Path = catalog
	}

	// Store
	if driver := os.Getenv("TWINKSCAN_STORE_DRIVER"); driver != "" {
		c.Store.Driver = driver
	}
	if path := os.Getenv("TWINKSCAN_STORE_PATH"); path != "" {
		c.Store.Path = path
	}

	if exportDir := os.Getenv("TWINKSCAN_EXPORT_DIR"); exportDir != "" {
		c.Export.Directory = exportDir
		c.Export.Enabled = true
	}

	if notifEnabled := os.Getenv("TWINKSCAN_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if metricsAddr := os.Getenv("TWINKSCAN_METRICS_ADDR"); metricsAddr != "" {
		c.Metrics.Address = metricsAddr
		c.Metrics.Enabled = true
	}

	if logLevel := os.Getenv("TWINKSCAN_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".twinkscan.yaml",
		".twinkscan.yml",
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
		filepath.Join(xdg.ConfigHome, AppName, "config.yml"),
		filepath.Join(xdg.Home, ".twinkscan.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Pacing ranges
	if c.Pacing.MinDelay < 0 || c.Pacing.MaxDelay < c.Pacing.MinDelay {
		errs = append(errs, errors.New("pacing delay range is invalid"))
	}
	if c.Pacing.LongPauseMax < c.Pacing.LongPauseMin {
		errs = append(errs, errors.New("long pause range is invalid"))
	}
	if c.Pacing.VeryLongPauseMax < c.Pacing.VeryLongPauseMin {
		errs = append(errs, errors.New("very long pause range is invalid"))
	}
	if c.Pacing.LongPauseChance < 0 || c.Pacing.LongPauseChance > 1 {
		errs = append(errs, errors.New("long pause chance must be between 0 and 1"))
	}
	if c.Pacing.VeryLongPauseChance < 0 || c.Pacing.VeryLongPauseChance > 1 {
		errs = append(errs, errors.New("very long pause chance must be between 0 and 1"))
	}

	// Scan settings
	if c.Scan.CheckpointInterval <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}
	if c.Scan.MaxReloads < 0 {
		errs = append(errs, errors.New("max reloads cannot be negative"))
	}
	if c.Site.WorklistSelector == "" {
		errs = append(errs, errors.New("worklist selector is required"))
	}

	// Store
	validDrivers := map[string]bool{
		"file": true, "sqlite": true, "memory": true,
	}
	if !validDrivers[strings.ToLower(c.Store.Driver)] {
		errs = append(errs, fmt.Errorf("invalid store driver: %s", c.Store.Driver))
	}
	if strings.ToLower(c.Store.Driver) != "memory" && c.Store.Path == "" {
		errs = append(errs, errors.New("store path is required"))
	}

	if c.Export.Enabled && c.Export.FileNamePattern == "" {
		errs = append(errs, errors.New("export file name pattern is required"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateForScan adds the checks that only matter when driving a browser
func (c *Config) ValidateForScan() error {
	if c.Site.URL == "" {
		return errors.New("site URL is required (set site.url or TWINKSCAN_SITE_URL)")
	}
	return c.Validate()
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if siteURL, ok := flags["site-url"].(string); ok && siteURL != "" {
		c.Site.URL = siteURL
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Site.Headless = headless
	}
	if nickname, ok := flags["nickname"].(string); ok && nickname != "" {
		c.Scan.Nickname = nickname
	}
	if account, ok := flags["account"].(string); ok && account != "" {
		c.Scan.Account = account
	}
	if reloads, ok := flags["max-reloads"].(int); ok && reloads >= 0 {
		c.Scan.MaxReloads = reloads
	}
	if catalog, ok := flags["catalog"].(string); ok && catalog != "" {
		c.Catalog.Path = catalog
	}
	if driver, ok := flags["store-driver"].(string); ok && driver != "" {
		c.Store.Driver = driver
	}
	if path, ok := flags["store-path"].(string); ok && path != "" {
		c.Store.Path = path
	}
	if exportDir, ok := flags["export-dir"].(string); ok && exportDir != "" {
		c.Export.Directory = exportDir
		c.Export.Enabled = true
	}
	if enabled, ok := flags["notifications-enabled"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if metricsAddr, ok := flags["metrics-addr"].(string); ok && metricsAddr != "" {
		c.Metrics.Address = metricsAddr
		c.Metrics.Enabled = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.Home, ".twinkscan.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
