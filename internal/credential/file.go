package credential

import (
	"context"
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
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32
)

// entry is the on-disk form of the credential.
type entry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileStore keeps the credential encrypted (AES-GCM) in a JSON file readable
// only by the current user.
type FileStore struct {
	mu        sync.Mutex
	path      string
	masterKey []byte
}

// NewFileStore creates a store at path. The encryption key is derived from
// passphrase; an empty passphrase still yields a key, so the file is never
// written in clear text, but it only protects against casual reading.
func NewFileStore(path, passphrase string) *FileStore {
	salt := []byte("schoolctl-credential-store")
	return &FileStore{
		path:      path,
		masterKey: pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keyLength, sha256.New),
	}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Get decrypts and returns the stored credential
func (s *FileStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	e, ok := entries[Key]
	if !ok || e.Value == "" {
		return "", ErrNotFound
	}

	value, err := s.decrypt(e.Value)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return value, nil
}

// Set encrypts and writes the credential
func (s *FileStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := s.encrypt(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	entries := map[string]entry{
		Key: {Value: encrypted, UpdatedAt: time.Now().UTC()},
	}
	if err := s.save(entries); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Clear removes the credential file
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	entries := map[string]entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", s.path, err)
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0600)
}

func (s *FileStore) encrypt(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *FileStore) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *FileStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
