// Package credential stores secrets (the serialized session, the IMAP
// password) in the system keyring, falling back to an encrypted file
// when no native backend is available.
package credential

import (
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

// DefaultService is the keyring namespace used when the configuration
// does not name one.
const DefaultService = "taskdeck"

// Store is a handle on one service namespace in the system keyring.
// Separate deployments can point their configs at separate service
// names to keep their credentials apart.
type Store struct {
	service string
}

// NewStore returns a store scoped to the given service name. An empty
// name falls back to DefaultService.
func NewStore(service string) Store {
	if service == "" {
		service = DefaultService
	}
	return Store{service: service}
}

// open returns a configured keyring instance for this service.
func (s Store) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: s.service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join("~/.config", s.service, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt(s.service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring %s: %w", s.service, err)
	}
	return ring, nil
}

// Get retrieves a credential value by key.
func (s Store) Get(key string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s Store) Set(key string, value string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key.
func (s Store) Delete(key string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
