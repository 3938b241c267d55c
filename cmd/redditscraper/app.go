package main

import (
	"errors"
	"fmt"
	"os"

	"redditscraper/pkg/auth"
	"redditscraper/pkg/config"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/metrics"
	"redditscraper/pkg/reddit"
	"redditscraper/pkg/scraper"
	"redditscraper/pkg/session"
	"redditscraper/pkg/ui"
)

// app is the per-invocation wiring shared by the explorer commands
type app struct {
	cfg      *config.Config
	log      logger.Logger
	scraper  *scraper.Scraper
	sessions *session.Manager
	metrics  *metrics.Metrics
	spinner  *ui.Spinner
}

// openApp loads configuration, credentials and the stored session.
// Commands that never reach the API pass needsAPI=false so they work
// without credentials.
func openApp(flags map[string]interface{}, needsAPI bool) (*app, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if sessionFile != "" {
		flags["session"] = sessionFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("Reddit Scraper starting")

	creds, err := resolveCredentials(cfg, log)
	if err != nil && needsAPI {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	opts := []scraper.Option{
		scraper.WithLogger(log),
		scraper.WithProgress(func(loaded, total int) {
			if a.spinner != nil {
				a.spinner.Page(loaded)
			}
		}),
	}
	if cfg.Metrics.Textfile != "" {
		a.metrics = metrics.New()
		opts = append(opts, scraper.WithMetrics(a.metrics))
	}

	a.scraper, err = scraper.New(cfg, creds, opts...)
	if err != nil {
		return nil, err
	}

	a.sessions, err = session.NewManager(cfg.Session.File, log)
	if err != nil {
		return nil, err
	}
	snap, err := a.sessions.Load()
	if err != nil {
		// A corrupt session should not block a fresh fetch
		log.WithError(err).Warn("Ignoring unreadable session")
		return a, nil
	}
	if snap != nil {
		if err := a.scraper.Restore(snap); err != nil {
			log.WithError(err).Warn("Ignoring invalid session")
		}
	}
	return a, nil
}

// resolveCredentials picks the named account, then config or
// environment values, then the most recent stored account.
func resolveCredentials(cfg *config.Config, log logger.Logger) (reddit.Credentials, error) {
	if accountName == "" && cfg.HasCredentials() {
		log.Debug("Using credentials from configuration")
		return reddit.Credentials{ClientID: cfg.Reddit.ClientID, ClientSecret: cfg.Reddit.ClientSecret}, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return reddit.Credentials{}, fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return reddit.Credentials{}, fmt.Errorf("no Reddit app credentials found; run 'redditscraper auth login' or set %s and %s",
				auth.EnvClientID, auth.EnvClientSecret)
		}
		return reddit.Credentials{}, err
	}

	if account.UserAgent != "" {
		cfg.Reddit.UserAgent = account.UserAgent
	}
	log.WithField("account", account.Name).Debug("Using stored credentials")
	return account.Credentials(), nil
}

// startSpinner shows fetch progress until the returned func is called
func (a *app) startSpinner(title string) func() {
	a.spinner = ui.NewSpinner(os.Stderr, title, quiet)
	return func() {
		a.spinner.Stop()
		a.spinner = nil
	}
}

// save persists the explorer state and the metrics textfile
func (a *app) save() error {
	if err := a.sessions.Save(a.scraper.Snapshot()); err != nil {
		return err
	}
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}
	return nil
}

func (a *app) notifier() *ui.Notifier {
	if notifications {
		return ui.NewNotifier(ui.Output)
	}
	return ui.NewNotifierWithSender(ui.Output, nil)
}
