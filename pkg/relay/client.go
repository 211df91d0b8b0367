// Package relay talks to the chrome-to-phone relay service: it exchanges sign-in
// auth tokens for session tokens, sends links to the paired phone and
// unregisters the desktop client.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production relay.
	DefaultBaseURL = "https://chrometophone.appspot.com"

	// DefaultAPIVersion is the protocol version sent as "ver" on every request.
	// Bump it together with any change to the request bodies.
	DefaultAPIVersion = 7

	// DefaultTimeout bounds a single relay request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Relay endpoint paths.
const (
	PathRegister   = "/register"
	PathSend       = "/send"
	PathUnregister = "/unregister"
)

// Session is the client state the relay flows read and update.
// *session.Session satisfies it.
type Session interface {
	Token() (string, error)
	Account() (string, error)
	DeviceRegistrationID() (string, error)
	SetCredentials(token, account string) error
	ClearToken() error
}

// Config holds configuration for the relay client.
type Config struct {
	// BaseURL is the relay base URL (optional, defaults to DefaultBaseURL).
	BaseURL string

	// APIVersion is the protocol version tag (optional, defaults to DefaultAPIVersion).
	APIVersion int

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a client with DefaultTimeout.
	HTTPClient *http.Client

	// Logger for client operations. The zero value discards output.
	Logger zerolog.Logger
}

// Client issues single, unretried requests against the relay.
type Client struct {
	baseURL    string
	apiVersion int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a relay client.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	apiVersion := cfg.APIVersion
	if apiVersion <= 0 {
		apiVersion = DefaultAPIVersion
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// BaseURL returns the relay base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// APIVersion returns the protocol version tag sent as "ver".
func (c *Client) APIVersion() int { return c.apiVersion }

// URL returns the absolute URL for an endpoint path.
func (c *Client) URL(path string) string { return c.baseURL + path }

type response struct {
	StatusCode int
	Body       string
}

// post sends payload as JSON to path. A non-nil error means no HTTP response
// was received.
func (c *Client) post(ctx context.Context, path string, payload any) (*response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Same-Domain", "true")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	requestID := uuid.NewString()
	start := time.Now()
	log := c.logger.With().Str("request_id", requestID).Str("path", path).Logger()
	log.Debug().Int("bytes", len(data)).Msg("relay request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("relay request failed")
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Debug().Err(err).Int("status", resp.StatusCode).Msg("reading relay response failed")
		return nil, fmt.Errorf("reading response: %w", err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("relay response")

	return &response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}
