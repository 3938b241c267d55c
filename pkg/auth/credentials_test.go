package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func newTestAccount(name string) *Account {
	return &Account{
		Name:         name,
		ClientID:     "client_" + name,
		ClientSecret: "secret_value_for_" + name,
		UserAgent:    "TestAgent/1.0",
	}
}

func TestCredentialManagerWithKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("mock keyring should be available: %v", err)
	}
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	if err := manager.Store(newTestAccount("work")); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := manager.Store(newTestAccount("home")); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}

	retrieved, err := manager.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.ClientID != "client_work" || retrieved.ClientSecret != "secret_value_for_work" {
		t.Errorf("unexpected account %+v", retrieved)
	}
	if creds := retrieved.Credentials(); creds.ClientID != "client_work" {
		t.Errorf("unexpected credentials %+v", creds)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0].Name != "home" || accounts[1].Name != "work" {
		t.Errorf("expected [home work], got %d accounts", len(accounts))
	}

	def, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("Failed to retrieve default: %v", err)
	}
	if def.Name != "home" {
		t.Errorf("expected most recent account, got %s", def.Name)
	}

	if err := manager.Delete("work"); err != nil {
		t.Fatalf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := manager.Delete("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
	if store.Exists("work") || !store.Exists("home") {
		t.Error("unexpected keyring contents after delete")
	}
}

func TestManagerValidation(t *testing.T) {
	manager := NewManagerWithStores(NewEnvironmentStore())

	cases := []*Account{
		{ClientID: "id", ClientSecret: "s"},
		{Name: "n", ClientSecret: "s"},
		{Name: "n", ClientID: "id"},
	}
	for _, a := range cases {
		if err := manager.Store(a); err == nil {
			t.Errorf("expected validation error for %+v", a)
		}
	}

	if err := manager.Store(newTestAccount("x")); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("read-only stores should refuse, got %v", err)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "")
	path := filepath.Join(dir, "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Store(newTestAccount("alpha")); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}
	if err := store.Store(newTestAccount("beta")); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if strings.Contains(string(raw), "secret_value_for_alpha") {
		t.Error("secret stored in plain text")
	}

	// A second store over the same file shares the generated passphrase
	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	got, err := reopened.Retrieve("alpha")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if got.ClientSecret != "secret_value_for_alpha" {
		t.Errorf("unexpected secret %q", got.ClientSecret)
	}

	accounts, err := reopened.List()
	if err != nil || len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d (%v)", len(accounts), err)
	}

	if err := reopened.Delete("alpha"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if reopened.Exists("alpha") {
		t.Error("alpha should be gone")
	}
	if err := reopened.Delete("beta"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should be removed with the last account")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(newTestAccount("a")); err != nil {
		t.Fatal(err)
	}

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("a"); err == nil {
		t.Error("expected decryption failure with a different passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	if store.Exists("") {
		t.Error("expected no environment credentials")
	}
	if _, err := store.Retrieve(""); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	t.Setenv(EnvClientID, "env_id")
	t.Setenv(EnvClientSecret, "env_secret")
	t.Setenv(EnvUserAgent, "env_agent")

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if account.Name != "env" || account.ClientID != "env_id" || account.UserAgent != "env_agent" {
		t.Errorf("unexpected account %+v", account)
	}
	if err := store.Store(account); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected read-only store, got %v", err)
	}

	manager := NewManagerWithStores(store)
	def, err := manager.RetrieveDefault()
	if err != nil || def.ClientSecret != "env_secret" {
		t.Errorf("expected environment default, got %+v, %v", def, err)
	}
}

func TestSanitizeAccount(t *testing.T) {
	a := newTestAccount("n")
	s := SanitizeAccount(a)
	if s.ClientSecret == a.ClientSecret || s.ClientSecret != "secr...or_n" {
		t.Errorf("secret not masked: %q", s.ClientSecret)
	}
	if s.ClientID != a.ClientID {
		t.Error("client id should stay readable")
	}
	if maskString("short") != "********" {
		t.Error("short values are fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("nil stays nil")
	}
}
