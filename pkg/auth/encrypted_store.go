package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/oauth2"
)

const (
	encryptedTokenFilename = "photoslibrary_token.enc"
	saltSize               = 32
	keySize                = 32
	iterations             = 100000

	// PassphraseEnvVar supplies the encryption passphrase non-interactively.
	PassphraseEnvVar = "GPARCHIVER_PASSPHRASE"
)

// EncryptedFileStore keeps the token in an AES-GCM encrypted file. The key
// is derived from a passphrase with PBKDF2.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

// encryptedpayload is the on-disk structure.
type encryptedPayload struct {
	Salt      string `json:"salt"`
	Encrypted string `json:"encrypted"`
}

// NewEncryptedFileStore creates an encrypted token store under dir. The
// passphrase comes from the GPARCHIVER_PASSPHRASE environment variable;
// without it the store is unavailable.
func NewEncryptedFileStore(dir string) (*EncryptedFileStore, error) {
	passphrase := os.Getenv(PassphraseEnvVar)
	if passphrase == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrStoreUnavailable, PassphraseEnvVar)
	}

	return &EncryptedFileStore{
		path:       filepath.Join(dir, encryptedTokenFilename),
		passphrase: passphrase,
	}, nil
}

// Save encrypts and writes the token.
func (s *EncryptedFileStore) Save(token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.cipher(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, nil)

	payload := encryptedPayload{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write encrypted token file: %w", err)
	}
	return nil
}

// Load reads and decrypts the stored token.
func (s *EncryptedFileStore) Load() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read encrypted token file: %w", err)
	}

	var payload encryptedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse encrypted token file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(payload.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(payload.Encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	gcm, err := s.cipher(salt)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted token file is corrupt")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted token: %w", err)
	}
	return &token, nil
}

// Exists reports whether an encrypted token file is present.
func (s *EncryptedFileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func (s *EncryptedFileStore) cipher(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(s.passphrase), salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
