// Package auth handles OAuth credentials for the Photos Library API.
//
// The archiver core never touches authentication; it only requires an
// http.Client that attaches valid credentials to every request. This package
// produces that client from an OAuth client secrets file plus a stored user
// token, refreshing the token transparently when it expires.
//
// Tokens can be kept in the system keychain, in an encrypted file, or as a
// plain JSON file in the archive root, in that order of preference.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeReadOnly is the read-only Photos Library API scope.
const ScopeReadOnly = "https://www.googleapis.com/auth/photoslibrary.readonly"

// Errors returned by token stores.
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// TokenStore persists the OAuth user token between runs.
type TokenStore interface {
	// Save persists the token.
	Save(token *oauth2.Token) error

	// Load retrieves the stored token, or ErrTokenNotFound.
	Load() (*oauth2.Token, error)

	// Exists reports whether a token is stored.
	Exists() bool
}

// Manager combines client secrets with a token store.
type Manager struct {
	config *oauth2.Config
	store  TokenStore
}

// NewManager reads the OAuth client secrets file and sets up the token
// store. A missing credentials file is fatal for the whole run, so the error
// is returned before any remote call is possible.
func NewManager(credentialsFile string, store TokenStore) (*Manager, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("credentials file %s is not found", credentialsFile)
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, ScopeReadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	// Out-of-band redirect: the user pastes the code back into the CLI.
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"

	return &Manager{config: config, store: store}, nil
}

// AuthCodeURL returns the consent URL the user must visit.
func (m *Manager) AuthCodeURL() string {
	return m.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (m *Manager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := m.store.Save(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}

// HasToken reports whether a stored token is available.
func (m *Manager) HasToken() bool {
	return m.store.Exists()
}

// Client returns an http.Client that attaches and refreshes the stored
// token. Refreshed tokens are written back to the store so the next run
// skips the refresh round trip.
func (m *Manager) Client(ctx context.Context) (*http.Client, error) {
	token, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	source := &persistingTokenSource{
		wrapped: m.config.TokenSource(ctx, token),
		store:   m.store,
		last:    token,
	}
	return oauth2.NewClient(ctx, source), nil
}

// persistingTokenSource writes refreshed tokens back to the store.
type persistingTokenSource struct {
	wrapped oauth2.TokenSource
	store   TokenStore
	last    *oauth2.Token
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.wrapped.Token()
	if err != nil {
		return nil, err
	}
	if s.last == nil || token.AccessToken != s.last.AccessToken {
		// Best effort: a failed save only costs a refresh next run.
		_ = s.store.Save(token)
		s.last = token
	}
	return token, nil
}

// NewStore builds a token store for the configured backend. "auto" tries
// the keyring first, then the encrypted file, then the plain file in the
// archive root.
func NewStore(backend, archiveDir string) (TokenStore, error) {
	switch backend {
	case "file":
		return NewFileStore(archiveDir), nil
	case "keyring":
		return NewKeyringStore()
	case "encrypted":
		return NewEncryptedFileStore(archiveDir)
	case "auto", "":
		if store, err := NewKeyringStore(); err == nil {
			return store, nil
		}
		if store, err := NewEncryptedFileStore(archiveDir); err == nil {
			return store, nil
		}
		return NewFileStore(archiveDir), nil
	default:
		return nil, fmt.Errorf("unknown token store backend: %s", backend)
	}
}
