package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const clientSecrets = `{
  "installed": {
    "client_id": "client-id.apps.googleusercontent.com",
    "client_secret": "client-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["urn:ietf:wg:oauth:2.0:oob", "http://localhost"]
  }
}`

func TestNewManagerMissingCredentialsFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "nope.json"), NewFileStore(t.TempDir()))
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewManagerMalformedCredentialsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewManager(path, NewFileStore(dir)); err == nil {
		t.Fatal("expected error for malformed credentials file")
	}
}

func TestManagerConsentURLAndTokenPresence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(path, []byte(clientSecrets), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewFileStore(dir)
	manager, err := NewManager(path, store)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	url := manager.AuthCodeURL()
	if !strings.Contains(url, "accounts.google.com") {
		t.Errorf("consent URL host: %s", url)
	}
	if !strings.Contains(url, "photoslibrary.readonly") {
		t.Errorf("consent URL missing scope: %s", url)
	}

	if manager.HasToken() {
		t.Error("fresh manager reports a token")
	}
	if err := store.Save(testToken()); err != nil {
		t.Fatal(err)
	}
	if !manager.HasToken() {
		t.Error("manager misses the stored token")
	}
}
