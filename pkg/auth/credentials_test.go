package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"tweetpruner/pkg/config"
)

func testAccount(name string) *Account {
	return &Account{
		ScreenName:        name,
		APIKey:            "consumer_key_1234567890",
		APISecret:         "consumer_secret_1234567890",
		AccessToken:       "12345-access_token_abcdef",
		AccessTokenSecret: "access_secret_abcdef123456",
	}
}

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := testAccount("pruner")
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("pruner")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if *retrieved != *account {
		t.Errorf("Account mismatch: got %+v, want %+v", retrieved, account)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account in list, got %d", len(accounts))
	}

	if err := manager.Delete("pruner"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("pruner"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
	if err := manager.Delete("pruner"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound deleting twice, got %v", err)
	}
}

func TestManagerStoreValidates(t *testing.T) {
	manager, mockStore := NewMockManager()

	tests := []struct {
		name   string
		mutate func(a *Account)
	}{
		{"missing screen name", func(a *Account) { a.ScreenName = "" }},
		{"missing api secret", func(a *Account) { a.APISecret = "" }},
		{"missing access token", func(a *Account) { a.AccessToken = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := testAccount("pruner")
			tt.mutate(account)
			if err := manager.Store(account); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if mockStore.Count() != 0 {
		t.Errorf("Invalid accounts should not be stored, got %d", mockStore.Count())
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	backup := NewMockStore()

	manager := NewManagerWithStores(broken, backup)
	if err := manager.Store(testAccount("pruner")); err != nil {
		t.Fatalf("Expected fallback store to accept account: %v", err)
	}
	if !backup.Exists("pruner") {
		t.Error("Account should be in the fallback store")
	}
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	stale := testAccount("pruner")
	stale.AccessToken = "stale"
	stale.LastModified = time.Now().Add(-time.Hour)
	fresh := testAccount("pruner")
	fresh.LastModified = time.Now()
	other := testAccount("alt")
	other.LastModified = time.Now().Add(-2 * time.Hour)

	_ = older.Store(stale)
	_ = older.Store(other)
	_ = newer.Store(fresh)

	accounts, err := NewManagerWithStores(older, newer).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].ScreenName != "pruner" || accounts[0].AccessToken == "stale" {
		t.Errorf("Expected newest pruner account first, got %+v", accounts[0])
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("pruner")
	sanitized := SanitizeAccount(account)

	if sanitized.ScreenName != "pruner" {
		t.Error("ScreenName should not be masked")
	}
	if sanitized.APIKey != "cons...7890" {
		t.Errorf("Unexpected masked key %q", sanitized.APIKey)
	}
	if sanitized.AccessTokenSecret == account.AccessTokenSecret {
		t.Error("AccessTokenSecret should be masked")
	}
	if maskString("short") != "********" {
		t.Error("Short values should be fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestApplyToKeepsExistingValues(t *testing.T) {
	cfg := config.TwitterConfig{AccessToken: "from-flag"}
	testAccount("pruner").ApplyTo(&cfg)

	if cfg.AccessToken != "from-flag" {
		t.Errorf("Existing value overwritten: %q", cfg.AccessToken)
	}
	if cfg.ScreenName != "pruner" || cfg.APIKey == "" || cfg.AccessTokenSecret == "" {
		t.Errorf("Empty fields not filled: %+v", cfg)
	}
	if !cfg.HasCredentials() {
		t.Error("Config should have a full credential set")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")
	t.Setenv("TWEETPRUNER_PASSPHRASE", "test_passphrase_123")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := testAccount("pruner")
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("pruner")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.AccessTokenSecret != account.AccessTokenSecret {
		t.Error("AccessTokenSecret mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{account.APISecret, account.AccessToken, account.AccessTokenSecret} {
		if bytes.Contains(content, []byte(secret)) {
			t.Errorf("File contains plaintext secret %q", secret)
		}
	}

	// a different passphrase cannot read the file
	t.Setenv("TWEETPRUNER_PASSPHRASE", "wrong")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("pruner"); err == nil {
		t.Error("Expected decryption failure with the wrong passphrase")
	}

	t.Setenv("TWEETPRUNER_PASSPHRASE", "test_passphrase_123")
	if err := store.Delete("pruner"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Store file should be removed with its last account")
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TWEETPRUNER_PASSPHRASE", "")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(testAccount("pruner")); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	if err != nil {
		t.Fatalf("Expected generated passphrase file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Passphrase file should be 0600, got %v", info.Mode().Perm())
	}

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Exists("pruner") {
		t.Error("Reopened store should read with the saved passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("TWITTER_SCREEN_NAME", "pruner")
	t.Setenv("TWITTER_API_KEY", "env_key")
	t.Setenv("TWITTER_API_SECRET", "env_secret")
	t.Setenv("TWITTER_ACCESS_TOKEN", "env_token")
	t.Setenv("TWITTER_ACCESS_TOKEN_SECRET", "env_token_secret")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.APIKey != "env_key" || account.AccessTokenSecret != "env_token_secret" {
		t.Errorf("Unexpected account %+v", account)
	}
	if !store.Exists("pruner") || store.Exists("someone_else") {
		t.Error("Exists should match TWITTER_SCREEN_NAME")
	}
	if err := store.Store(account); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}

	t.Setenv("TWITTER_ACCESS_TOKEN", "")
	if _, err := store.Retrieve(""); err != ErrCredentialsNotFound {
		t.Errorf("Partial environment should not count, got %v", err)
	}
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("TWITTER_SCREEN_NAME", "env_account")
	t.Setenv("TWITTER_API_KEY", "k")
	t.Setenv("TWITTER_API_SECRET", "s")
	t.Setenv("TWITTER_ACCESS_TOKEN", "t")
	t.Setenv("TWITTER_ACCESS_TOKEN_SECRET", "ts")

	stored := NewMockStore()
	_ = stored.Store(testAccount("stored_account"))

	account, err := NewManagerWithStores(stored, NewEnvironmentStore()).RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if account.ScreenName != "env_account" {
		t.Errorf("Expected environment account, got %s", account.ScreenName)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("Mock keyring should be available: %v", err)
	}

	for _, name := range []string{"pruner", "alt"} {
		if err := store.Store(testAccount(name)); err != nil {
			t.Fatalf("Failed to store %s: %v", name, err)
		}
	}

	accounts, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, a := range accounts {
		names = append(names, a.ScreenName)
	}
	if strings.Join(names, ",") != "alt,pruner" {
		t.Errorf("Unexpected listed accounts %v", names)
	}

	if err := store.Delete("alt"); err != nil {
		t.Fatal(err)
	}
	if store.Exists("alt") {
		t.Error("Deleted account still exists")
	}
	if err := store.Delete("alt"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	accounts, _ = store.List()
	if len(accounts) != 1 || accounts[0].ScreenName != "pruner" {
		t.Errorf("Index not updated after delete: %+v", accounts)
	}
}

func TestShowCredentialGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowCredentialGuide(&buf)

	if !strings.Contains(buf.String(), "TWITTER_ACCESS_TOKEN_SECRET") {
		t.Error("Guide should name the environment variables")
	}
}
