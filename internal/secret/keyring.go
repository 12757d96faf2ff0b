package secret

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "canvas"

// KeyringStore implements SecretStore on the OS keyring (Keychain, Secret
// Service or Windows Credential Manager).
type KeyringStore struct {
	service string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

func (k *KeyringStore) Set(key string, value []byte) error {
	if err := keyring.Set(k.service, key, string(value)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (k *KeyringStore) Get(key string) ([]byte, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyring get: %w", err)
	}
	return []byte(v), nil
}

// Delete is a no-op for missing keys.
func (k *KeyringStore) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
