package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.Reddit.UserAgent)
	assert.Equal(t, "https://oauth.reddit.com", cfg.Reddit.APIBaseURL)
	assert.Equal(t, "https://www.reddit.com/api/v1/access_token", cfg.Reddit.TokenURL)

	assert.Equal(t, 25, cfg.Fetch.Limit)
	assert.Equal(t, "hot", cfg.Fetch.Sort)
	assert.Equal(t, "day", cfg.Fetch.TimeFilter)
	assert.Equal(t, "relevance", cfg.Fetch.SearchSort)
	assert.Equal(t, "all", cfg.Fetch.SearchTime)
	assert.Equal(t, 300*time.Millisecond, cfg.Fetch.PageDelay)

	assert.Equal(t, 50, cfg.Comments.Limit)
	assert.Equal(t, 5, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, 1, cfg.Download.RetryAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Defaults are valid without credentials
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasCredentials())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REDDITSCRAPER_CLIENT_ID", "env_id")
	t.Setenv("REDDITSCRAPER_CLIENT_SECRET", "env_secret")
	t.Setenv("REDDITSCRAPER_USER_AGENT", "env_agent")
	t.Setenv("REDDITSCRAPER_LIMIT", "200")
	t.Setenv("REDDITSCRAPER_COMMENT_LIMIT", "0")
	t.Setenv("REDDITSCRAPER_OUTPUT_DIR", "/env/output")
	t.Setenv("REDDITSCRAPER_CONCURRENT_DOWNLOADS", "8")
	t.Setenv("REDDITSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env_id", cfg.Reddit.ClientID)
	assert.Equal(t, "env_secret", cfg.Reddit.ClientSecret)
	assert.Equal(t, "env_agent", cfg.Reddit.UserAgent)
	assert.Equal(t, 200, cfg.Fetch.Limit)
	assert.Equal(t, 0, cfg.Comments.Limit)
	assert.Equal(t, "/env/output", cfg.Output.BaseDirectory)
	assert.Equal(t, 8, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.HasCredentials())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
reddit:
  client_id: file_id
  client_secret: file_secret
fetch:
  limit: 150
  sort: top
  time_filter: week
comments:
  limit: 10
download:
  concurrent_downloads: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file_id", cfg.Reddit.ClientID)
	assert.Equal(t, 150, cfg.Fetch.Limit)
	assert.Equal(t, "top", cfg.Fetch.Sort)
	assert.Equal(t, "week", cfg.Fetch.TimeFilter)
	assert.Equal(t, 10, cfg.Comments.Limit)
	assert.Equal(t, 2, cfg.Download.ConcurrentDownloads)
	// Untouched sections keep defaults
	assert.Equal(t, "relevance", cfg.Fetch.SearchSort)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fetch: [unclosed"), 0600))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"limit too small", func(c *Config) { c.Fetch.Limit = 5 }, true},
		{"limit too large", func(c *Config) { c.Fetch.Limit = 1001 }, true},
		{"limit at bounds", func(c *Config) { c.Fetch.Limit = 1000 }, false},
		{"unknown sort", func(c *Config) { c.Fetch.Sort = "best" }, true},
		{"unknown search sort", func(c *Config) { c.Fetch.SearchSort = "random" }, true},
		{"unknown time", func(c *Config) { c.Fetch.TimeFilter = "decade" }, true},
		{"comment limit zero", func(c *Config) { c.Comments.Limit = 0 }, false},
		{"negative comment limit", func(c *Config) { c.Comments.Limit = -1 }, true},
		{"no workers", func(c *Config) { c.Download.ConcurrentDownloads = 0 }, true},
		{"no attempts", func(c *Config) { c.Download.RetryAttempts = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"empty output", func(c *Config) { c.Output.BaseDirectory = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"client-id":     "flag_id",
		"limit":         500,
		"comment-limit": 0,
		"output":        "/flags/out",
		"concurrent":    3,
		"log-level":     "warn",
		"ignored":       true,
	})

	assert.Equal(t, "flag_id", cfg.Reddit.ClientID)
	assert.Equal(t, 500, cfg.Fetch.Limit)
	assert.Equal(t, 0, cfg.Comments.Limit)
	assert.Equal(t, "/flags/out", cfg.Output.BaseDirectory)
	assert.Equal(t, 3, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  limit: 100\nlogging:\n  level: error\n"), 0600))

	t.Setenv("REDDITSCRAPER_LIMIT", "300")

	cfg, err := Load(path, map[string]interface{}{"limit": 400})
	require.NoError(t, err)

	// flag beats env beats file
	assert.Equal(t, 400, cfg.Fetch.Limit)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Fetch.Sort = "new"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, "new", loaded.Fetch.Sort)
	assert.Equal(t, cfg.Download.DownloadTimeout, loaded.Download.DownloadTimeout)
}
