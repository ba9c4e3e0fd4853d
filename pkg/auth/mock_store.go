package auth

import "sync"

// MockStore is an in-memory CredentialStore. A non-nil *Error field makes
// the matching call fail with it.
type MockStore struct {
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error

	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMockStore returns an empty MockStore
func NewMockStore() *MockStore {
	return &MockStore{accounts: map[string]Account{}}
}

// NewMockManager returns a Manager whose only backend is a fresh MockStore
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if account == nil || account.ScreenName == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	m.accounts[account.ScreenName] = *account
	m.mu.Unlock()
	return nil
}

func (m *MockStore) Retrieve(screenName string) (*Account, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if screenName == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	account, ok := m.accounts[screenName]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *MockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		account := account
		out = append(out, &account)
	}
	return out, nil
}

func (m *MockStore) Delete(screenName string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if screenName == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[screenName]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, screenName)
	return nil
}

func (m *MockStore) Exists(screenName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[screenName]
	return ok
}

// Count reports how many accounts are held
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
