// Package session persists the explorer state between command invocations.
//
// Sessions live in a platform data directory unless a path is configured:
//   - Linux: $XDG_DATA_HOME/redditscraper or ~/.local/share/redditscraper
//   - macOS: ~/Library/Application Support/redditscraper
//   - Windows: %APPDATA%/redditscraper
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"redditscraper/pkg/comments"
	"redditscraper/pkg/fetcher"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/reddit"
	"redditscraper/pkg/storage"
)

const (
	CurrentVersion  = 1
	DefaultFileName = "session.json"
)

// Session is everything needed to continue exploring where the last
// command stopped.
type Session struct {
	Version    int                        `json:"version"`
	Params     fetcher.Params             `json:"params"`
	Posts      []*reddit.Post             `json:"posts"`
	NextCursor string                     `json:"next_cursor,omitempty"`
	ReachedEnd bool                       `json:"reached_end"`
	Filter     string                     `json:"filter"`
	Selected   []string                   `json:"selected"`
	Threads    map[string]comments.Thread `json:"threads,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// CanLoadMore reports whether a continuation fetch is possible
func (s *Session) CanLoadMore() bool {
	return s != nil && len(s.Posts) > 0 && !s.ReachedEnd && s.NextCursor != ""
}

// Manager reads and writes the session file
type Manager struct {
	path   string
	logger logger.Logger
}

// NewManager uses path, or DefaultFileName in the data directory when
// path is empty.
func NewManager(path string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if path == "" {
		dir, err := DataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		path = filepath.Join(dir, DefaultFileName)
	}
	return &Manager{path: path, logger: log}, nil
}

func (m *Manager) Path() string {
	return m.path
}

// Load returns the stored session, or nil when none exists
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("session version %d is newer than supported version %d", s.Version, CurrentVersion)
	}

	m.logger.DebugWithFields("Session loaded", map[string]interface{}{
		"source":      s.Params.Describe(),
		"posts":       len(s.Posts),
		"selected":    len(s.Selected),
		"next_cursor": s.NextCursor,
	})
	return &s, nil
}

// Save writes the session atomically
func (m *Manager) Save(s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.Version = CurrentVersion

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := storage.WriteFileAtomic(m.path, data, 0600); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.DebugWithFields("Session saved", map[string]interface{}{
		"path":  m.path,
		"posts": len(s.Posts),
	})
	return nil
}

// Delete removes the session file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// DataDirectory returns the per-user data directory, creating it
func DataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "redditscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "redditscraper")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "redditscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "redditscraper")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
