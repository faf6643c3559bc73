package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// TokenFilename is the plain token file kept in the archive root.
const TokenFilename = "photoslibrary_token.json"

// FileStore keeps the token as plain JSON in the archive root. It is the
// last-resort backend when neither the keyring nor an encrypted store is
// available.
type FileStore struct {
	path string
}

// NewFileStore creates a file-based token store under dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, TokenFilename)}
}

// Save writes the token with owner-only permissions.
func (s *FileStore) Save(token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Load reads the stored token.
func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

// Exists reports whether a token file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
