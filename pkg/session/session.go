package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
)

// deviceIDDigits is the length of a generated device registration id.
const deviceIDDigits = 16

// Session is the handle every flow reads and writes client state through.
type Session struct {
	store Store

	// guards lazy creation of the device registration id
	mu sync.Mutex
}

// New returns a Session backed by store.
func New(store Store) *Session {
	return &Session{store: store}
}

// Snapshot is a point-in-time copy of the session values.
type Snapshot struct {
	Token                string `json:"token,omitempty"`
	Account              string `json:"account,omitempty"`
	DeviceRegistrationID string `json:"deviceRegistrationId,omitempty"`
	BaseURL              string `json:"baseUrl,omitempty"`
}

// LoggedIn reports whether a session token is present.
func (s Snapshot) LoggedIn() bool { return s.Token != "" }

func (s *Session) get(key string) (string, error) {
	v, _, err := s.store.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// Token returns the session token, or "" when not logged in.
func (s *Session) Token() (string, error) { return s.get(KeyToken) }

// Account returns the account the token was issued for, or "".
func (s *Session) Account() (string, error) { return s.get(KeyAccount) }

// BaseURL returns the stored relay base URL override, or "".
func (s *Session) BaseURL() (string, error) { return s.get(KeyBaseURL) }

// SetBaseURL stores a relay base URL override. An empty url removes it.
func (s *Session) SetBaseURL(url string) error {
	if url == "" {
		return s.store.Delete(KeyBaseURL)
	}
	return s.store.Set(KeyBaseURL, url)
}

// DeviceRegistrationID returns the installation's device registration id,
// generating and persisting a random numeric one on first use.
func (s *Session) DeviceRegistrationID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.store.Get(KeyDeviceRegistrationID)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", KeyDeviceRegistrationID, err)
	}
	if ok && id != "" {
		return id, nil
	}

	id, err = newDeviceRegistrationID()
	if err != nil {
		return "", err
	}
	if err := s.store.Set(KeyDeviceRegistrationID, id); err != nil {
		return "", fmt.Errorf("failed to persist %s: %w", KeyDeviceRegistrationID, err)
	}
	return id, nil
}

func newDeviceRegistrationID() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(deviceIDDigits), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate device registration id: %w", err)
	}
	return fmt.Sprintf("%0*d", deviceIDDigits, n), nil
}

// SetCredentials stores the token and account returned by a token exchange.
// If the account cannot be written the previous token is put back, so a
// stored token always has its account.
func (s *Session) SetCredentials(token, account string) error {
	prev, hadPrev, err := s.store.Get(KeyToken)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", KeyToken, err)
	}
	if err := s.store.Set(KeyToken, token); err != nil {
		return fmt.Errorf("failed to persist %s: %w", KeyToken, err)
	}
	if err := s.store.Set(KeyAccount, account); err != nil {
		var rollback error
		if hadPrev {
			rollback = s.store.Set(KeyToken, prev)
		} else {
			rollback = s.store.Delete(KeyToken)
		}
		if rollback != nil {
			return fmt.Errorf("failed to persist %s: %w (token rollback: %v)", KeyAccount, err, rollback)
		}
		return fmt.Errorf("failed to persist %s: %w", KeyAccount, err)
	}
	return nil
}

// ClearToken removes the session token. The account is left in place.
func (s *Session) ClearToken() error {
	return s.store.Delete(KeyToken)
}

// Clear removes both the token and the account.
func (s *Session) Clear() error {
	if err := s.store.Delete(KeyToken); err != nil {
		return err
	}
	return s.store.Delete(KeyAccount)
}

// Snapshot reads all session values. It does not create a device registration id.
func (s *Session) Snapshot() (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Token, err = s.get(KeyToken); err != nil {
		return Snapshot{}, err
	}
	if snap.Account, err = s.get(KeyAccount); err != nil {
		return Snapshot{}, err
	}
	if snap.DeviceRegistrationID, err = s.get(KeyDeviceRegistrationID); err != nil {
		return Snapshot{}, err
	}
	if snap.BaseURL, err = s.get(KeyBaseURL); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
