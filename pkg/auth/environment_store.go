package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSessionCookie = "TWINKSCAN_SESSION_COOKIE"
	EnvSessionDomain = "TWINKSCAN_SESSION_DOMAIN"
	EnvUserAgent     = "TWINKSCAN_USER_AGENT"
)

// EnvironmentStore reads one read-only session from the environment. The
// cookie variable holds a Cookie header, e.g. "PHPSESSID=abc; remember=1".
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session under name, or "env" when
// name is empty
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	cookies := ParseCookieHeader(os.Getenv(EnvSessionCookie))
	domain := os.Getenv(EnvSessionDomain)
	if len(cookies) == 0 || domain == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = "env"
	}

	return &Account{
		Name:         name,
		Domain:       domain,
		Cookies:      cookies,
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

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	_, err := e.Retrieve("")
	return err == nil
}
