// Package config reads the client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sendtophone/cli/pkg/relay"
	"github.com/sendtophone/cli/pkg/session"
	"github.com/sendtophone/cli/pkg/signin"
)

// Environment variables.
const (
	EnvRelayURL    = "SENDTOPHONE_URL"
	EnvAPIVersion  = "SENDTOPHONE_API_VERSION"
	EnvExtensionID = "SENDTOPHONE_EXTENSION_ID"
	EnvStore       = "SENDTOPHONE_STORE"
	EnvStorePath   = "SENDTOPHONE_STORE_PATH"
	EnvTimeout     = "SENDTOPHONE_TIMEOUT"
)

type Config struct {
	// RelayURL is empty unless set in the environment; see ResolveRelayURL.
	RelayURL    string
	APIVersion  int
	ExtensionID string
	Store       string
	StorePath   string
	Timeout     time.Duration
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// Load reads an optional .env file in the working directory and then the
// process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv(osEnv{})
}

func LoadFromEnv(env Env) (Config, error) {
	cfg := Config{
		APIVersion:  relay.DefaultAPIVersion,
		ExtensionID: signin.DefaultExtensionID,
		Store:       session.BackendFile,
		Timeout:     relay.DefaultTimeout,
	}

	cfg.RelayURL = strings.TrimRight(strings.TrimSpace(env.Getenv(EnvRelayURL)), "/")

	if raw := env.Getenv(EnvAPIVersion); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return Config{}, fmt.Errorf("invalid %s", EnvAPIVersion)
		}
		cfg.APIVersion = v
	}

	if raw := env.Getenv(EnvExtensionID); raw != "" {
		if err := signin.ValidateExtensionID(raw); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", EnvExtensionID, err)
		}
		cfg.ExtensionID = raw
	}

	if raw := env.Getenv(EnvStore); raw != "" {
		switch raw {
		case session.BackendFile, session.BackendKeyring, session.BackendMemory:
			cfg.Store = raw
		default:
			return Config{}, fmt.Errorf("invalid %s: use file, keyring or memory", EnvStore)
		}
	}

	cfg.StorePath = env.Getenv(EnvStorePath)

	if raw := env.Getenv(EnvTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid %s", EnvTimeout)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}

// ResolveRelayURL picks the relay base URL: an explicit flag value, then the
// override stored in the session, then the environment, then the default.
func ResolveRelayURL(flag, stored, env string) string {
	for _, u := range []string{flag, stored, env} {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			return u
		}
	}
	return relay.DefaultBaseURL
}
