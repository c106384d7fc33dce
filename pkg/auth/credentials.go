package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"twinkscan/pkg/page"
)

const appName = "twinkscan"

// Account is a saved browser session for the faction site
type Account struct {
	Name         string            `json:"name"`
	Domain       string            `json:"domain"`
	Cookies      map[string]string `json:"cookies"`
	UserAgent    string            `json:"user_agent,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// PageCookies returns the session cookies in name order, ready to be set
// on the browser before the first navigation
func (a *Account) PageCookies() []page.Cookie {
	names := make([]string, 0, len(a.Cookies))
	for name := range a.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	cookies := make([]page.Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, page.Cookie{Name: name, Value: a.Cookies[name], Domain: a.Domain})
	}
	return cookies
}

func (a *Account) clone() *Account {
	c := *a
	c.Cookies = make(map[string]string, len(a.Cookies))
	for k, v := range a.Cookies {
		c.Cookies[k] = v
	}
	return &c
}

// CredentialStore is the interface for storing and retrieving sessions
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(name string) (*Account, error)
	List() ([]*Account, error)
	Delete(name string) error
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager tries the system keyring first, then an encrypted file under
// the XDG config dir, then the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the session in the first store that accepts it
func (m *Manager) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return errors.New("account name is required")
	}
	if account.Domain == "" {
		return errors.New("cookie domain is required")
	}
	if len(account.Cookies) == 0 {
		return errors.New("at least one session cookie is required")
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
	return ErrStoreUnavailable
}

// Retrieve gets the session from the first store that has it
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(name); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// RetrieveDefault prefers a session from the environment, then the first
// saved account by name
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

// Resolve returns the named account, or the default one when name is empty
func (m *Manager) Resolve(name string) (*Account, error) {
	if name == "" {
		return m.RetrieveDefault()
	}
	return m.Retrieve(name)
}

// List merges the accounts of every store, keeping the most recent copy,
// sorted by name
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Name]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Name] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes the session from every store holding it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// ParseCookieHeader turns a "name=value; name2=value2" header into a map.
// Empty names are skipped and surrounding quotes are dropped.
func ParseCookieHeader(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		cookies[name] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return cookies
}

func getConfigDir() (string, error) {
	dir := filepath.Join(xdg.ConfigHome, appName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy with every cookie value masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	masked := account.clone()
	for name, value := range masked.Cookies {
		masked.Cookies[name] = maskString(value)
	}
	return masked
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
