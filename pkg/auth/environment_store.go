package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads the TWITTER_* variables. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credentials. An empty screenName matches
// whatever TWITTER_SCREEN_NAME holds.
func (e *EnvironmentStore) Retrieve(screenName string) (*Account, error) {
	account := &Account{
		ScreenName:        os.Getenv("TWITTER_SCREEN_NAME"),
		APIKey:            os.Getenv("TWITTER_API_KEY"),
		APISecret:         os.Getenv("TWITTER_API_SECRET"),
		AccessToken:       os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessTokenSecret: os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"),
		LastModified:      time.Now(),
	}

	if account.Validate() != nil {
		return nil, ErrCredentialsNotFound
	}
	if screenName != "" && screenName != account.ScreenName {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns the environment account if one is fully configured
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(screenName string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for screenName
func (e *EnvironmentStore) Exists(screenName string) bool {
	_, err := e.Retrieve(screenName)
	return err == nil
}
