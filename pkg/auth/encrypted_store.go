package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultVersion    = 2
	vaultKDF        = "pbkdf2-sha256"
	vaultIterations = 100000
	vaultSaltSize   = 32
	vaultKeySize    = 32
)

// vaultAAD binds the ciphertext to this file format
var vaultAAD = []byte("tweetpruner/credentials")

// vault is the on-disk envelope. Byte slices are base64 in JSON.
type vault struct {
	Version    int       `json:"version"`
	KDF        string    `json:"kdf"`
	Iterations int       `json:"iterations"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	Modified   time.Time `json:"modified"`
}

// EncryptedFileStore keeps every account in one AES-GCM sealed file
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// NewEncryptedFileStore creates a store backed by path. The key is derived
// from TWEETPRUNER_PASSPHRASE, or from a random passphrase kept in a
// .passphrase file next to path.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	passphrase, err := loadPassphrase(filepath.Join(filepath.Dir(path), ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store adds or replaces the account keyed by its screen name
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.ScreenName == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		accounts[account.ScreenName] = *account
		return nil
	})
}

// Retrieve returns the account stored under screenName
func (e *EncryptedFileStore) Retrieve(screenName string) (*Account, error) {
	if screenName == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	accounts, err := e.open()
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	account, ok := accounts[screenName]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns every stored account
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	accounts, err := e.open()
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	list := make([]*Account, 0, len(accounts))
	for _, account := range accounts {
		account := account
		list = append(list, &account)
	}
	return list, nil
}

// Delete removes screenName; the file goes away with its last account
func (e *EncryptedFileStore) Delete(screenName string) error {
	if screenName == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		if _, ok := accounts[screenName]; !ok {
			return ErrCredentialsNotFound
		}
		delete(accounts, screenName)
		return nil
	})
}

// Exists reports whether screenName can be read back
func (e *EncryptedFileStore) Exists(screenName string) bool {
	_, err := e.Retrieve(screenName)
	return err == nil
}

// open reads and unseals the file. A missing file is an empty store.
func (e *EncryptedFileStore) open() (map[string]Account, error) {
	raw, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var v vault
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	if v.KDF != vaultKDF || v.Iterations <= 0 {
		return nil, fmt.Errorf("unsupported credential file (version %d, kdf %q)", v.Version, v.KDF)
	}

	aead, err := newAEAD(e.passphrase, v.Salt, v.Iterations)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, v.Nonce, v.Ciphertext, vaultAAD)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential file: %w", err)
	}

	accounts := make(map[string]Account)
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, nil
}

// seal encrypts accounts under a fresh salt and nonce and replaces the file
// atomically
func (e *EncryptedFileStore) seal(accounts map[string]Account) error {
	if len(accounts) == 0 {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove credential file: %w", err)
		}
		return nil
	}

	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	v := vault{
		Version:    vaultVersion,
		KDF:        vaultKDF,
		Iterations: vaultIterations,
		Salt:       make([]byte, vaultSaltSize),
		Modified:   time.Now(),
	}
	if _, err := rand.Read(v.Salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := newAEAD(e.passphrase, v.Salt, v.Iterations)
	if err != nil {
		return err
	}
	v.Nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(v.Nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	v.Ciphertext = aead.Seal(nil, v.Nonce, plain, vaultAAD)

	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) update(mutate func(map[string]Account) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	if err := mutate(accounts); err != nil {
		return err
	}
	return e.seal(accounts)
}

func newAEAD(passphrase string, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, vaultKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// loadPassphrase prefers TWEETPRUNER_PASSPHRASE, then the saved file,
// generating and saving one on first use
func loadPassphrase(file string) (string, error) {
	if pass := os.Getenv("TWEETPRUNER_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.RawURLEncoding.EncodeToString(b)
	if err := os.WriteFile(file, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}
