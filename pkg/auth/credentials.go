package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"tweetpruner/pkg/config"
)

// Account is the OAuth 1.0a user-context credential set for one Twitter account.
// The values are opaque to the pruner and handed to the request signer as is.
type Account struct {
	ScreenName        string    `json:"screen_name"`
	APIKey            string    `json:"api_key"`
	APISecret         string    `json:"api_secret"`
	AccessToken       string    `json:"access_token"`
	AccessTokenSecret string    `json:"access_token_secret"`
	LastModified      time.Time `json:"last_modified"`
}

// Validate reports the first missing field
func (a *Account) Validate() error {
	switch {
	case a == nil:
		return ErrInvalidCredentials
	case a.ScreenName == "":
		return errors.New("screen name is required")
	case a.APIKey == "" || a.APISecret == "":
		return errors.New("API key and secret are required")
	case a.AccessToken == "" || a.AccessTokenSecret == "":
		return errors.New("access token and secret are required")
	}
	return nil
}

// ApplyTo fills the credential fields of cfg that are still empty.
// Values already set by flags, environment or file win.
func (a *Account) ApplyTo(cfg *config.TwitterConfig) {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&cfg.ScreenName, a.ScreenName)
	fill(&cfg.APIKey, a.APIKey)
	fill(&cfg.APISecret, a.APISecret)
	fill(&cfg.AccessToken, a.AccessToken)
	fill(&cfg.AccessTokenSecret, a.AccessTokenSecret)
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific screen name
	Retrieve(screenName string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific screen name
	Delete(screenName string) error

	// Exists checks if credentials exist for a screen name
	Exists(screenName string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the store chain: system keychain when available, then
// the encrypted file, then the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over an explicit store chain
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(screenName string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(screenName); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, screenName)
}

// RetrieveDefault returns the environment credentials if set, otherwise the
// most recently modified stored account
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		if envStore, ok := store.(*EnvironmentStore); ok {
			if account, err := envStore.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, err := m.List()
	if err == nil && len(accounts) > 0 {
		return accounts[0], nil
	}

	return nil, ErrCredentialsNotFound
}

// List returns all stored accounts, newest first, keeping the most recently
// modified copy when several stores hold the same screen name
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.ScreenName]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.ScreenName] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastModified.After(result[j].LastModified)
	})

	return result, nil
}

// Delete removes credentials from every store that has them
func (m *Manager) Delete(screenName string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(screenName)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, screenName)
	}

	return nil
}

// getConfigDir returns the per-user configuration directory, creating it
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "tweetpruner")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "tweetpruner")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "tweetpruner")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "tweetpruner")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount returns a copy safe to print
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		ScreenName:        account.ScreenName,
		APIKey:            maskString(account.APIKey),
		APISecret:         maskString(account.APISecret),
		AccessToken:       maskString(account.AccessToken),
		AccessTokenSecret: maskString(account.AccessTokenSecret),
		LastModified:      account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
