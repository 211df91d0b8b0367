// Package session holds the durable client state shared by the login, send and
// logout flows: the session token, the account it belongs to and the locally
// generated device registration id.
package session

import (
	"fmt"
	"sync"
)

// Keys used in the backing store.
const (
	KeyToken                = "token"
	KeyAccount              = "account"
	KeyDeviceRegistrationID = "deviceRegistrationId"
	KeyBaseURL              = "chrometophoneUrl"
)

// Store is durable key/value string storage.
// Get reports ok=false for a key that has never been set or was deleted.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Open returns the store for the named backend. path is only used by the file backend;
// when empty the default location under the user config dir is used.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendFile:
		if path == "" {
			p, err := DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return NewFileStore(path)
	case BackendKeyring:
		return NewKeyringStore(KeyringService), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q: use file, keyring or memory", backend)
	}
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
