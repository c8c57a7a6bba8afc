package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// DefaultService is the service name under which token sets are stored in
// the OS keychain.
const DefaultService = "authctl"

// Store persists the token set for an account. Implementations hold one set
// per account identifier; Save replaces the whole set, Delete is idempotent.
type Store interface {
	Save(account string, set TokenSet) error
	Load(account string) (TokenSet, bool, error)
	Delete(account string) error
}

// KeyringStore keeps token sets in the operating system keychain, keyed by
// service name and account.
type KeyringStore struct {
	Service string
}

func (s *KeyringStore) service() string {
	if s.Service == "" {
		return DefaultService
	}
	return s.Service
}

func (s *KeyringStore) Save(account string, set TokenSet) error {
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal token set: %w", err)
	}
	if err := keyring.Set(s.service(), account, string(payload)); err != nil {
		return fmt.Errorf("failed to store token set in keychain: %w", err)
	}
	return nil
}

func (s *KeyringStore) Load(account string) (TokenSet, bool, error) {
	payload, err := keyring.Get(s.service(), account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return TokenSet{}, false, nil
		}
		return TokenSet{}, false, fmt.Errorf("failed to read token set from keychain: %w", err)
	}
	var set TokenSet
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return TokenSet{}, false, fmt.Errorf("failed to parse stored token set: %w", err)
	}
	return set, true, nil
}

func (s *KeyringStore) Delete(account string) error {
	if err := keyring.Delete(s.service(), account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token set from keychain: %w", err)
	}
	return nil
}

// FileStore keeps token sets in a JSON file, one entry per account. It is the
// fallback for headless environments without a keychain; the file is written
// with 0600 permissions but is not encrypted.
type FileStore struct {
	Path string
}

type fileStorePayload struct {
	Tokens map[string]TokenSet `json:"tokens"`
}

func (s *FileStore) Save(account string, set TokenSet) error {
	payload, err := s.read()
	if err != nil {
		return err
	}
	payload.Tokens[account] = set
	return s.write(payload)
}

func (s *FileStore) Load(account string) (TokenSet, bool, error) {
	payload, err := s.read()
	if err != nil {
		return TokenSet{}, false, err
	}
	set, ok := payload.Tokens[account]
	return set, ok, nil
}

func (s *FileStore) Delete(account string) error {
	payload, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := payload.Tokens[account]; !ok {
		return nil
	}
	delete(payload.Tokens, account)
	return s.write(payload)
}

func (s *FileStore) read() (*fileStorePayload, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileStorePayload{Tokens: map[string]TokenSet{}}, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var payload fileStorePayload
	if err := json.Unmarshal(content, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if payload.Tokens == nil {
		payload.Tokens = map[string]TokenSet{}
	}
	return &payload, nil
}

func (s *FileStore) write(payload *fileStorePayload) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token file: %w", err)
	}
	return os.WriteFile(s.Path, content, 0o600)
}
