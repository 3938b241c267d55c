package auth

import (
	"os"
	"time"
)

const (
	EnvClientID     = "REDDITSCRAPER_CLIENT_ID"
	EnvClientSecret = "REDDITSCRAPER_CLIENT_SECRET"
	EnvUserAgent    = "REDDITSCRAPER_USER_AGENT"
)

// EnvironmentStore reads credentials from REDDITSCRAPER_* variables.
// It is read-only.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve ignores name except to label the account; "env" when empty
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	clientID := os.Getenv(EnvClientID)
	clientSecret := os.Getenv(EnvClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "env"
	}
	return &Account{
		Name:         name,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvClientID) != "" && os.Getenv(EnvClientSecret) != ""
}
