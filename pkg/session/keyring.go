package session

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name entries are stored under in the OS keychain.
const KeyringService = "sendtophone"

// KeyringStore keeps each key as a separate secret in the OS keychain.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Get(key string) (string, bool, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *KeyringStore) Set(key, value string) error {
	return keyring.Set(k.service, key, value)
}

func (k *KeyringStore) Delete(key string) error {
	err := keyring.Delete(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
