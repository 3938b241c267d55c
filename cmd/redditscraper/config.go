package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"redditscraper/pkg/config"
	"redditscraper/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Reddit Scraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (REDDITSCRAPER_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.redditscraper.yaml' in the current directory
unless a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after all sources are merged. The client secret is masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd, showCmd, validateCmd)
}

const exampleConfig = `# Reddit Scraper configuration
#
# Every value can also be set through REDDITSCRAPER_* environment
# variables, for example REDDITSCRAPER_CLIENT_ID.

reddit:
  # Credentials of a "script" app from https://www.reddit.com/prefs/apps.
  # Prefer 'redditscraper auth login' over storing them here.
  client_id: ""
  client_secret: ""
  user_agent: "redditscraper/1.0 (command line explorer)"
  timeout: 30s

fetch:
  # Posts per fetch, 10-1000
  limit: 25
  # hot, new, top, rising, controversial
  sort: hot
  # hour, day, week, month, year, all (top and controversial only)
  time_filter: day
  # relevance, hot, top, new, comments
  search_sort: relevance
  search_time: all
  # Pause between page requests
  page_delay: 300ms
  media_cache_size: 2000

comments:
  # Top-level comments per post, 0 disables comment loading
  limit: 50
  concurrency: 4

download:
  concurrent_downloads: 5
  download_timeout: 60s
  # 1 means no retry
  retry_attempts: 1
  retry_delay: 2s

rate_limit:
  # Media requests per minute, 0 disables pacing
  requests_per_minute: 120
  burst_size: 10

output:
  base_directory: "."

session:
  # Empty uses the user data directory
  file: ""

metrics:
  # Prometheus textfile written after each command, empty disables it
  textfile: ""

logging:
  # debug, info, warn, error, disabled
  level: info
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".redditscraper.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Run 'redditscraper auth login' to store your app credentials")
	fmt.Fprintln(ui.Output, "2. Run 'redditscraper config validate' to check the file")
	fmt.Fprintln(ui.Output, "3. Start with 'redditscraper fetch <subreddit>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Reddit.ClientSecret != "" {
		display.Reddit.ClientSecret = "********"
	}
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var warnings []string
	if !cfg.HasCredentials() {
		warnings = append(warnings, "no client id/secret in config or environment; stored accounts will be used")
	}
	if cfg.Comments.Limit == 0 {
		warnings = append(warnings, "comment loading is disabled (comments.limit is 0)")
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		warnings = append(warnings, "media downloads are not rate limited")
	}
	for _, w := range warnings {
		ui.PrintWarning("  - " + w)
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Posts per fetch: %d (%s)\n", cfg.Fetch.Limit, cfg.Fetch.Sort)
	fmt.Fprintf(ui.Output, "  Comment limit: %d\n", cfg.Comments.Limit)
	fmt.Fprintf(ui.Output, "  Concurrent downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Fprintf(ui.Output, "  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
