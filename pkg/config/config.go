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

// Config holds all configuration options for the Reddit explorer
type Config struct {
	// Reddit application credentials and endpoints
	Reddit RedditConfig `yaml:"reddit" json:"reddit"`

	// Listing and search defaults
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Comment loading
	Comments CommentsConfig `yaml:"comments" json:"comments"`

	// Media archive downloads
	Download DownloadConfig `yaml:"download" json:"download"`

	// Media request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Session persistence between invocations
	Session SessionConfig `yaml:"session" json:"session"`

	// Metrics textfile export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RedditConfig holds Reddit-specific configuration
type RedditConfig struct {
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	APIBaseURL   string        `yaml:"api_base_url" json:"api_base_url"`
	TokenURL     string        `yaml:"token_url" json:"token_url"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// FetchConfig holds defaults for listing and search requests
type FetchConfig struct {
	Limit          int           `yaml:"limit" json:"limit"`
	Sort           string        `yaml:"sort" json:"sort"`
	TimeFilter     string        `yaml:"time_filter" json:"time_filter"`
	SearchSort     string        `yaml:"search_sort" json:"search_sort"`
	SearchTime     string        `yaml:"search_time" json:"search_time"`
	PageDelay      time.Duration `yaml:"page_delay" json:"page_delay"`
	MediaCacheSize int           `yaml:"media_cache_size" json:"media_cache_size"`
}

// CommentsConfig holds comment fetching configuration
type CommentsConfig struct {
	Limit       int `yaml:"limit" json:"limit"`
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// DownloadConfig holds archive download configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay          time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// RateLimitConfig holds media request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// SessionConfig holds the session snapshot location
type SessionConfig struct {
	File string `yaml:"file" json:"file"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Reddit: RedditConfig{
			UserAgent:  "redditscraper/1.0 (command line explorer)",
			APIBaseURL: "https://oauth.reddit.com",
			TokenURL:   "https://www.reddit.com/api/v1/access_token",
			Timeout:    30 * time.Second,
		},
		Fetch: FetchConfig{
			Limit:          25,
			Sort:           "hot",
			TimeFilter:     "day",
			SearchSort:     "relevance",
			SearchTime:     "all",
			PageDelay:      300 * time.Millisecond,
			MediaCacheSize: 2000,
		},
		Comments: CommentsConfig{
			Limit:       50,
			Concurrency: 4,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 5,
			DownloadTimeout:     60 * time.Second,
			RetryAttempts:       1,
			RetryDelay:          2 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			BurstSize:         10,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if clientID := os.Getenv("REDDITSCRAPER_CLIENT_ID"); clientID != "" {
		c.Reddit.ClientID = clientID
	}
	if secret := os.Getenv("REDDITSCRAPER_CLIENT_SECRET"); secret != "" {
		c.Reddit.ClientSecret = secret
	}
	if userAgent := os.Getenv("REDDITSCRAPER_USER_AGENT"); userAgent != "" {
		c.Reddit.UserAgent = userAgent
	}

	if limit := os.Getenv("REDDITSCRAPER_LIMIT"); limit != "" {
		var val int
		fmt.Sscanf(limit, "%d", &val)
		if val > 0 {
			c.Fetch.Limit = val
		}
	}

	// Zero is meaningful here: it disables comment fetching
	if commentLimit := os.Getenv("REDDITSCRAPER_COMMENT_LIMIT"); commentLimit != "" {
		var val int
		if _, err := fmt.Sscanf(commentLimit, "%d", &val); err == nil && val >= 0 {
			c.Comments.Limit = val
		}
	}

	if outputDir := os.Getenv("REDDITSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}

	if concurrent := os.Getenv("REDDITSCRAPER_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	if sessionFile := os.Getenv("REDDITSCRAPER_SESSION_FILE"); sessionFile != "" {
		c.Session.File = sessionFile
	}

	if textfile := os.Getenv("REDDITSCRAPER_METRICS_TEXTFILE"); textfile != "" {
		c.Metrics.Textfile = textfile
	}

	if logLevel := os.Getenv("REDDITSCRAPER_LOG_LEVEL"); logLevel != "" {
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
	home := os.Getenv("HOME")
	locations := []string{
		".redditscraper.yaml",
		".redditscraper.yml",
		filepath.Join(home, ".config", "redditscraper", "config.yaml"),
		filepath.Join(home, ".config", "redditscraper", "config.yml"),
		filepath.Join(home, ".redditscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var (
	validSorts       = []string{"hot", "new", "top", "rising", "controversial"}
	validSearchSorts = []string{"relevance", "hot", "top", "new", "comments"}
	validTimeFilters = []string{"hour", "day", "week", "month", "year", "all"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid. Credentials are not
// required here because they may come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Reddit.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Reddit.APIBaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.Reddit.TokenURL == "" {
		errs = append(errs, errors.New("token URL is required"))
	}
	if c.Reddit.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Fetch.Limit < 10 || c.Fetch.Limit > 1000 {
		errs = append(errs, errors.New("post limit must be between 10 and 1000"))
	}
	if !oneOf(c.Fetch.Sort, validSorts) {
		errs = append(errs, fmt.Errorf("invalid sort %q", c.Fetch.Sort))
	}
	if !oneOf(c.Fetch.SearchSort, validSearchSorts) {
		errs = append(errs, fmt.Errorf("invalid search sort %q", c.Fetch.SearchSort))
	}
	if !oneOf(c.Fetch.TimeFilter, validTimeFilters) || !oneOf(c.Fetch.SearchTime, validTimeFilters) {
		errs = append(errs, errors.New("invalid time filter"))
	}
	if c.Fetch.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}

	if c.Comments.Limit < 0 || c.Comments.Limit > 500 {
		errs = append(errs, errors.New("comment limit must be between 0 and 500"))
	}
	if c.Comments.Concurrency <= 0 {
		errs = append(errs, errors.New("comment concurrency must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 20 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 20"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// HasCredentials reports whether both halves of the app credential are set
func (c *Config) HasCredentials() bool {
	return c.Reddit.ClientID != "" && c.Reddit.ClientSecret != ""
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
	if clientID, ok := flags["client-id"].(string); ok && clientID != "" {
		c.Reddit.ClientID = clientID
	}
	if secret, ok := flags["client-secret"].(string); ok && secret != "" {
		c.Reddit.ClientSecret = secret
	}
	if limit, ok := flags["limit"].(int); ok && limit > 0 {
		c.Fetch.Limit = limit
	}
	if commentLimit, ok := flags["comment-limit"].(int); ok && commentLimit >= 0 {
		c.Comments.Limit = commentLimit
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if attempts, ok := flags["retry-attempts"].(int); ok && attempts > 0 {
		c.Download.RetryAttempts = attempts
	}
	if sessionFile, ok := flags["session"].(string); ok && sessionFile != "" {
		c.Session.File = sessionFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".redditscraper.env"))

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
