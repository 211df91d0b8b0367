// Package signin implements both sides of the sign-in redirect handshake: the
// destination the hosted sign-in page must redirect to, and the checks the
// receiving client applies before it trusts an auth token.
package signin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sendtophone/cli/pkg/relay"
)

const (
	// DefaultExtensionID is the published extension the hosted page redirects to.
	DefaultExtensionID = "oadboiipflhobonjjffjbfekfjcgkhco"

	// DefaultRedirectPage is the page inside the extension that receives the token.
	DefaultRedirectPage = "help.html"

	// JustSignedInFragment marks a redirect that carries a fresh auth token.
	JustSignedInFragment = "just_signed_in"

	// CallbackParam names the loopback callback in the login URL.
	CallbackParam = "cb"

	extensionScheme = "chrome-extension://"
	extensionIDLen  = 32
)

// Config describes where sign-in starts and where it is allowed to land.
type Config struct {
	RelayBaseURL string
	APIVersion   int

	// ExtensionID is the only extension the redirect may target.
	ExtensionID string

	// RedirectPage is the page path inside the extension.
	RedirectPage string
}

func (c Config) withDefaults() Config {
	c.RelayBaseURL = strings.TrimRight(c.RelayBaseURL, "/")
	if c.RelayBaseURL == "" {
		c.RelayBaseURL = relay.DefaultBaseURL
	}
	if c.APIVersion <= 0 {
		c.APIVersion = relay.DefaultAPIVersion
	}
	if c.ExtensionID == "" {
		c.ExtensionID = DefaultExtensionID
	}
	if c.RedirectPage == "" {
		c.RedirectPage = DefaultRedirectPage
	}
	c.RedirectPage = strings.TrimLeft(c.RedirectPage, "/")
	return c
}

// ValidateExtensionID checks that id looks like a Chrome extension id:
// 32 characters in the range a-p.
func ValidateExtensionID(id string) error {
	if len(id) != extensionIDLen {
		return fmt.Errorf("invalid extension id %q: expected %d characters", id, extensionIDLen)
	}
	for _, r := range id {
		if r < 'a' || r > 'p' {
			return fmt.Errorf("invalid extension id %q: characters must be a-p", id)
		}
	}
	return nil
}

// LoginURL is the hosted sign-in page for this device. A non-empty callback is
// passed along so the page can echo it back with the token.
func LoginURL(cfg Config, devRegID, callback string) string {
	cfg = cfg.withDefaults()
	q := url.Values{}
	q.Set("dev", devRegID)
	q.Set("api", strconv.Itoa(cfg.APIVersion))
	if callback != "" {
		q.Set(CallbackParam, callback)
	}
	return cfg.RelayBaseURL + "/login.html?" + q.Encode()
}
