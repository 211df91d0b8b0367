package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/sendtophone/cli/pkg/querystring"
)

// DeviceTypeDesktop identifies this client to /register.
const DeviceTypeDesktop = "chrome2"

// AuthParam is the redirect query parameter carrying the auth token.
const AuthParam = "auth"

var (
	// ErrNoAuthToken is returned when there is no auth token to exchange.
	ErrNoAuthToken = errors.New("no auth token")

	// ErrExchangeDone is returned when an Exchanger is used a second time.
	ErrExchangeDone = errors.New("token exchange already attempted")

	// ErrIncompleteRegistration is returned when /register answers 200 without a token.
	ErrIncompleteRegistration = errors.New("registration response has no token")
)

// ExchangeState is the position of an Exchanger in the login flow.
type ExchangeState int

const (
	StateIdle ExchangeState = iota
	StateExchanging
	StateRegistered
	StateFailed
)

func (s ExchangeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExchanging:
		return "exchanging"
	case StateRegistered:
		return "registered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ExchangeError is returned when /register answers with a non-200 status.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	msg := fmt.Sprintf("register failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

type registerRequest struct {
	DeviceID   string `json:"deviceId"`
	DevRegID   string `json:"devregid"`
	Auth       string `json:"auth"`
	DeviceType string `json:"deviceType"`
	Ver        int    `json:"ver"`
}

// Registration is the durable credential returned by /register.
type Registration struct {
	Token   string `json:"token"`
	Account string `json:"account"`
}

// Exchanger trades one short-lived auth token for a session token.
// It performs at most one exchange; create a new one per sign-in redirect.
type Exchanger struct {
	client  *Client
	session Session

	mu    sync.Mutex
	state ExchangeState
}

// NewExchanger returns an idle Exchanger.
func NewExchanger(client *Client, session Session) *Exchanger {
	return &Exchanger{client: client, session: session}
}

// State returns the current state.
func (e *Exchanger) State() ExchangeState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exchanger) setState(s ExchangeState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// ExchangeFromLocation reads the auth token from a redirect href and exchanges it.
func (e *Exchanger) ExchangeFromLocation(ctx context.Context, href string) (Registration, error) {
	return e.Exchange(ctx, querystring.QueryParams(href)[AuthParam])
}

// Exchange posts authToken to /register and, on success, stores the returned
// token and account in the session. On failure the session is left as it was.
func (e *Exchanger) Exchange(ctx context.Context, authToken string) (Registration, error) {
	if authToken == "" {
		return Registration{}, ErrNoAuthToken
	}

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return Registration{}, ErrExchangeDone
	}
	e.state = StateExchanging
	e.mu.Unlock()

	reg, err := e.exchange(ctx, authToken)
	if err != nil {
		e.setState(StateFailed)
		e.client.logger.Debug().Err(err).Msg("token exchange failed")
		return Registration{}, err
	}
	e.setState(StateRegistered)
	return reg, nil
}

func (e *Exchanger) exchange(ctx context.Context, authToken string) (Registration, error) {
	devRegID, err := e.session.DeviceRegistrationID()
	if err != nil {
		return Registration{}, err
	}

	resp, err := e.client.post(ctx, PathRegister, registerRequest{
		DeviceID:   devRegID,
		DevRegID:   devRegID,
		Auth:       authToken,
		DeviceType: DeviceTypeDesktop,
		Ver:        e.client.apiVersion,
	})
	if err != nil {
		return Registration{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Registration{}, &ExchangeError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var reg Registration
	if err := json.Unmarshal([]byte(resp.Body), &reg); err != nil {
		return Registration{}, fmt.Errorf("decoding registration response: %w", err)
	}
	if reg.Token == "" {
		return Registration{}, ErrIncompleteRegistration
	}

	if err := e.session.SetCredentials(reg.Token, reg.Account); err != nil {
		return Registration{}, err
	}
	return reg, nil
}
