package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the gallery grabber
type Config struct {
	// Target feed settings
	Target TargetConfig `yaml:"target" json:"target"`

	// Search terms, processed in list order
	Queries []string `yaml:"queries" json:"queries"`

	// Load-loop settings
	Loader LoaderConfig `yaml:"loader" json:"loader"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TargetConfig describes the gallery site: entry point, the network
// endpoint prefix that identifies asset responses, and the two
// selectors the load loop drives
type TargetConfig struct {
	URL                 string `yaml:"url" json:"url"`
	AssetURLPrefix      string `yaml:"asset_url_prefix" json:"asset_url_prefix"`
	SearchInputSelector string `yaml:"search_input_selector" json:"search_input_selector"`
	LoadMoreSelector    string `yaml:"load_more_selector" json:"load_more_selector"`
}

// LoaderConfig bounds the progressive load loop. CyclesPerMinute caps
// how many scroll/load cycles run against the origin per minute; zero
// disables the cap.
type LoaderConfig struct {
	MaxStallCount     int           `yaml:"max_stall_count" json:"max_stall_count"`
	SettleDelay       time.Duration `yaml:"settle_delay" json:"settle_delay"`
	QuiescenceTimeout time.Duration `yaml:"quiescence_timeout" json:"quiescence_timeout"`
	CyclesPerMinute   int           `yaml:"cycles_per_minute" json:"cycles_per_minute"`
}

// DownloadConfig holds download-phase configuration
type DownloadConfig struct {
	InterDownloadDelay time.Duration `yaml:"inter_download_delay" json:"inter_download_delay"`
	Timeout            time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts      int           `yaml:"retry_attempts" json:"retry_attempts"`
	DefaultExtension   string        `yaml:"default_extension" json:"default_extension"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory       string `yaml:"base_directory" json:"base_directory"`
	CheckpointDirectory string `yaml:"checkpoint_directory" json:"checkpoint_directory"`
}

// BrowserConfig holds browser session configuration
type BrowserConfig struct {
	Headless   bool          `yaml:"headless" json:"headless"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	CookieFile string        `yaml:"cookie_file" json:"cookie_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			SearchInputSelector: `input[type="search"]`,
			LoadMoreSelector:    `button.load-more`,
		},
		Loader: LoaderConfig{
			MaxStallCount:     10,
			SettleDelay:       2 * time.Second,
			QuiescenceTimeout: 10 * time.Second,
			CyclesPerMinute:   30,
		},
		Download: DownloadConfig{
			InterDownloadDelay: time.Second,
			Timeout:            30 * time.Second,
			RetryAttempts:      1,
			DefaultExtension:   "png",
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Browser: BrowserConfig{
			Headless:  true,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// CheckpointDir resolves the checkpoint directory, defaulting to a
// hidden directory under the asset output so term directories stay
// image-only
func (c *Config) CheckpointDir() string {
	if c.Output.CheckpointDirectory != "" {
		return c.Output.CheckpointDirectory
	}
	return filepath.Join(c.Output.BaseDirectory, ".checkpoints")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if targetURL := os.Getenv("GALLERYGRAB_TARGET_URL"); targetURL != "" {
		c.Target.URL = targetURL
	}
	if prefix := os.Getenv("GALLERYGRAB_ASSET_URL_PREFIX"); prefix != "" {
		c.Target.AssetURLPrefix = prefix
	}
	if queries := os.Getenv("GALLERYGRAB_QUERIES"); queries != "" {
		c.Queries = splitQueryList(queries)
	}
	if outputDir := os.Getenv("GALLERYGRAB_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if cookieFile := os.Getenv("GALLERYGRAB_COOKIE_FILE"); cookieFile != "" {
		c.Browser.CookieFile = cookieFile
	}

	if stalls := os.Getenv("GALLERYGRAB_MAX_STALL_COUNT"); stalls != "" {
		var val int
		fmt.Sscanf(stalls, "%d", &val)
		if val > 0 {
			c.Loader.MaxStallCount = val
		}
	}
	if delay := os.Getenv("GALLERYGRAB_INTER_DOWNLOAD_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil && d >= 0 {
			c.Download.InterDownloadDelay = d
		}
	}
	if logLevel := os.Getenv("GALLERYGRAB_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// splitQueryList parses a comma-separated term list from the environment
func splitQueryList(raw string) []string {
	var queries []string
	for _, q := range strings.Split(raw, ",") {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
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
		".gallerygrab.yaml",
		".gallerygrab.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "gallerygrab", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "gallerygrab", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".gallerygrab.yaml"),
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

	if c.Target.URL == "" {
		errs = append(errs, errors.New("target URL is required"))
	}
	if c.Target.AssetURLPrefix == "" {
		errs = append(errs, errors.New("asset URL prefix is required"))
	}
	if c.Target.SearchInputSelector == "" {
		errs = append(errs, errors.New("search input selector is required"))
	}
	if c.Target.LoadMoreSelector == "" {
		errs = append(errs, errors.New("load more selector is required"))
	}

	if len(c.Queries) == 0 {
		errs = append(errs, errors.New("at least one query term is required"))
	}
	for _, q := range c.Queries {
		if strings.TrimSpace(q) == "" {
			errs = append(errs, errors.New("query terms must not be blank"))
		}
	}

	if c.Loader.MaxStallCount <= 0 {
		errs = append(errs, errors.New("max stall count must be positive"))
	}
	if c.Loader.SettleDelay < 0 {
		errs = append(errs, errors.New("settle delay cannot be negative"))
	}
	if c.Loader.QuiescenceTimeout <= 0 {
		errs = append(errs, errors.New("quiescence timeout must be positive"))
	}
	if c.Loader.CyclesPerMinute < 0 {
		errs = append(errs, errors.New("cycles per minute cannot be negative"))
	}

	if c.Download.InterDownloadDelay < 0 {
		errs = append(errs, errors.New("inter-download delay cannot be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.Download.DefaultExtension == "" {
		errs = append(errs, errors.New("default extension is required"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

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

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

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
	if targetURL, ok := flags["target-url"].(string); ok && targetURL != "" {
		c.Target.URL = targetURL
	}
	if prefix, ok := flags["asset-url-prefix"].(string); ok && prefix != "" {
		c.Target.AssetURLPrefix = prefix
	}
	if queries, ok := flags["queries"].([]string); ok && len(queries) > 0 {
		c.Queries = queries
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if stalls, ok := flags["max-stall-count"].(int); ok && stalls > 0 {
		c.Loader.MaxStallCount = stalls
	}
	if delay, ok := flags["inter-download-delay"].(time.Duration); ok && delay >= 0 {
		c.Download.InterDownloadDelay = delay
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if cookieFile, ok := flags["cookie-file"].(string); ok && cookieFile != "" {
		c.Browser.CookieFile = cookieFile
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
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".gallerygrab.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
