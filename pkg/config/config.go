package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by LoadFromEnv
const EnvPrefix = "HDEXPORT_"

// Config holds all configuration options for the invoice exporter
type Config struct {
	// Tax portal endpoints and token lookup
	Portal PortalConfig `yaml:"portal" json:"portal"`

	// Chrome session
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Batch pacing and detail fetch retries
	Download DownloadConfig `yaml:"download" json:"download"`

	// Table pagination timing
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`

	// Print-to-PDF pipeline
	Print PrintConfig `yaml:"print" json:"print"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PortalConfig holds the tax portal addresses and token lookup settings
type PortalConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	ListURL      string        `yaml:"list_url" json:"list_url"`
	APIURL       string        `yaml:"api_url" json:"api_url"`
	CookieName   string        `yaml:"cookie_name" json:"cookie_name"`
	TokenSource  string        `yaml:"token_source" json:"token_source"`
	TokenKeys    []string      `yaml:"token_keys" json:"token_keys"`
	TokenTimeout time.Duration `yaml:"token_timeout" json:"token_timeout"`
	Token        string        `yaml:"-" json:"-"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
}

// BrowserConfig holds Chrome launch or attach settings
type BrowserConfig struct {
	RemoteURL   string `yaml:"remote_url" json:"remote_url"`
	Headless    bool   `yaml:"headless" json:"headless"`
	ChromePath  string `yaml:"chrome_path" json:"chrome_path"`
	UserDataDir string `yaml:"user_data_dir" json:"user_data_dir"`
	Stealth     bool   `yaml:"stealth" json:"stealth"`
	NoSandbox   bool   `yaml:"no_sandbox" json:"no_sandbox"`
}

// DownloadConfig holds batch download settings
type DownloadConfig struct {
	Delay             time.Duration `yaml:"delay" json:"delay"`
	RateLimitDelay    time.Duration `yaml:"rate_limit_delay" json:"rate_limit_delay"`
	RetryAttempts     int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// PaginationConfig holds table pagination timing
type PaginationConfig struct {
	Settle         time.Duration `yaml:"settle" json:"settle"`
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval"`
	LoadingTimeout time.Duration `yaml:"loading_timeout" json:"loading_timeout"`
}

// PrintConfig holds print view and PDF capture settings
type PrintConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	ReadyTimeout time.Duration `yaml:"ready_timeout" json:"ready_timeout"`
	Grace        time.Duration `yaml:"grace" json:"grace"`
	PaperWidth   float64       `yaml:"paper_width" json:"paper_width"`
	PaperHeight  float64       `yaml:"paper_height" json:"paper_height"`
	Validate     bool          `yaml:"validate" json:"validate"`
	ListenAddr   string        `yaml:"listen_addr" json:"listen_addr"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	Folder        string `yaml:"folder" json:"folder"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	OnRateLimit      bool   `yaml:"on_rate_limit" json:"on_rate_limit"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultTokenKeys is the storage probe order used when none is configured
var DefaultTokenKeys = []string{
	"token", "access_token", "authToken", "bearer_token",
	"accessToken", "auth_token", "jwt", "jwt_token",
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:      "https://hoadondientu.gdt.gov.vn",
			ListURL:      "https://hoadondientu.gdt.gov.vn/tra-cuu/tra-cuu-hoa-don",
			APIURL:       "https://hoadondientu.gdt.gov.vn:30000/query/invoices/detail",
			CookieName:   "jwt",
			TokenSource:  "cookie",
			TokenKeys:    append([]string(nil), DefaultTokenKeys...),
			TokenTimeout: 2 * time.Second,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		},
		Browser: BrowserConfig{
			Headless: false,
			Stealth:  true,
		},
		Download: DownloadConfig{
			Delay:          300 * time.Millisecond,
			RateLimitDelay: 2 * time.Second,
			RetryAttempts:  3,
			RetryDelay:     500 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
		},
		Pagination: PaginationConfig{
			Settle:         time.Second,
			PollInterval:   500 * time.Millisecond,
			LoadingTimeout: 10 * time.Second,
		},
		Print: PrintConfig{
			Enabled:      true,
			ReadyTimeout: 15 * time.Second,
			Grace:        500 * time.Millisecond,
			PaperWidth:   8.27,
			PaperHeight:  11.69,
			Validate:     true,
			ListenAddr:   "127.0.0.1:0",
		},
		Output: OutputConfig{
			BaseDirectory: ".",
			Folder:        "Invoices",
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			OnRateLimit:      false,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from HDEXPORT_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "TOKEN"); v != "" {
		c.Portal.Token = v
	}
	if v := os.Getenv(EnvPrefix + "API_URL"); v != "" {
		c.Portal.APIURL = v
	}
	if v := os.Getenv(EnvPrefix + "LIST_URL"); v != "" {
		c.Portal.ListURL = v
	}
	if v := os.Getenv(EnvPrefix + "TOKEN_SOURCE"); v != "" {
		c.Portal.TokenSource = v
	}
	if v := os.Getenv(EnvPrefix + "BROWSER_URL"); v != "" {
		c.Browser.RemoteURL = v
	}
	if v := os.Getenv(EnvPrefix + "CHROME_PATH"); v != "" {
		c.Browser.ChromePath = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	errs = append(errs,
		envBool("HEADLESS", &c.Browser.Headless),
		envBool("PRINT_ENABLED", &c.Print.Enabled),
		envBool("NOTIFICATIONS_ENABLED", &c.Notifications.Enabled),
		envDuration("DOWNLOAD_DELAY", &c.Download.Delay),
		envDuration("RATE_LIMIT_DELAY", &c.Download.RateLimitDelay),
		envInt("RETRY_ATTEMPTS", &c.Download.RetryAttempts),
		envInt("REQUESTS_PER_MINUTE", &c.Download.RequestsPerMinute),
	)

	return errors.Join(errs...)
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(EnvPrefix + name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
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
	home := os.Getenv("HOME")
	locations := []string{
		".hdexport.yaml",
		".hdexport.yml",
		filepath.Join(home, ".config", "hdexport", "config.yaml"),
		filepath.Join(home, ".config", "hdexport", "config.yml"),
		filepath.Join(home, ".hdexport.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes a new file
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "hdexport", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	for name, raw := range map[string]string{
		"portal.base_url": c.Portal.BaseURL,
		"portal.list_url": c.Portal.ListURL,
		"portal.api_url":  c.Portal.APIURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", name))
		}
	}
	switch strings.ToLower(c.Portal.TokenSource) {
	case "cookie", "storage":
	default:
		errs = append(errs, errors.New("portal.token_source must be cookie or storage"))
	}
	if c.Portal.CookieName == "" {
		errs = append(errs, errors.New("portal.cookie_name is required"))
	}
	if len(c.Portal.TokenKeys) == 0 {
		errs = append(errs, errors.New("portal.token_keys must not be empty"))
	}
	if c.Portal.TokenTimeout <= 0 {
		errs = append(errs, errors.New("portal.token_timeout must be positive"))
	}

	if c.Download.Delay < 0 {
		errs = append(errs, errors.New("download.delay cannot be negative"))
	}
	if c.Download.RateLimitDelay < c.Download.Delay {
		errs = append(errs, errors.New("download.rate_limit_delay must not be shorter than download.delay"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("download.retry_attempts must be at least 1"))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("download.retry_delay cannot be negative"))
	}
	if c.Download.RequestTimeout <= 0 {
		errs = append(errs, errors.New("download.request_timeout must be positive"))
	}
	if c.Download.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("download.requests_per_minute cannot be negative"))
	}

	if c.Pagination.PollInterval <= 0 {
		errs = append(errs, errors.New("pagination.poll_interval must be positive"))
	}
	if c.Pagination.LoadingTimeout < c.Pagination.PollInterval {
		errs = append(errs, errors.New("pagination.loading_timeout must not be shorter than pagination.poll_interval"))
	}

	if c.Print.ReadyTimeout <= 0 {
		errs = append(errs, errors.New("print.ready_timeout must be positive"))
	}
	if c.Print.PaperWidth <= 0 || c.Print.PaperHeight <= 0 {
		errs = append(errs, errors.New("print paper size must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.Folder == "" || strings.ContainsAny(c.Output.Folder, `/\`) {
		errs = append(errs, errors.New("output.folder must be a single path segment"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
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

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["token"].(string); ok && v != "" {
		c.Portal.Token = v
	}
	if v, ok := flags["token-source"].(string); ok && v != "" {
		c.Portal.TokenSource = v
	}
	if v, ok := flags["browser-url"].(string); ok && v != "" {
		c.Browser.RemoteURL = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["print"].(bool); ok {
		c.Print.Enabled = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v > 0 {
		c.Download.Delay = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
	if v, ok := flags["listen"].(string); ok && v != "" {
		c.Print.ListenAddr = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".hdexport.env"))

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

// InvoiceDir is the directory artifacts are written to
func (c *Config) InvoiceDir() string {
	return filepath.Join(c.Output.BaseDirectory, c.Output.Folder)
}
