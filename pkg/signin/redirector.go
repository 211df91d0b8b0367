package signin

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/sendtophone/cli/pkg/querystring"
	"github.com/sendtophone/cli/pkg/relay"
)

var (
	// ErrForeignTarget is returned for a redirect that does not target the
	// configured extension or a registered callback origin.
	ErrForeignTarget = errors.New("redirect target is not allowed")

	// ErrTokenReplayed is returned when an auth token is presented a second time.
	ErrTokenReplayed = errors.New("auth token already accepted")
)

// Redirector builds and validates sign-in redirects for one extension id.
// It is safe for concurrent use.
type Redirector struct {
	cfg Config

	mu      sync.Mutex
	origins []string
	seen    map[string]struct{}
}

// NewRedirector validates cfg.ExtensionID and returns a Redirector.
func NewRedirector(cfg Config) (*Redirector, error) {
	cfg = cfg.withDefaults()
	if err := ValidateExtensionID(cfg.ExtensionID); err != nil {
		return nil, err
	}
	return &Redirector{cfg: cfg, seen: make(map[string]struct{})}, nil
}

// Config returns the effective configuration.
func (r *Redirector) Config() Config { return r.cfg }

// Target is the page the redirect lands on.
func (r *Redirector) Target() string {
	return extensionScheme + r.cfg.ExtensionID + "/" + r.cfg.RedirectPage
}

// AllowOrigin additionally accepts redirects to origin, such as a loopback
// callback listener owned by this process.
func (r *Redirector) AllowOrigin(origin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origins = append(r.origins, strings.TrimRight(origin, "/")+"/")
}

// Destination is the URL the hosted sign-in page must send the browser to
// after authenticating: the extension page with the auth token and the
// page's own query string appended after the fragment marker.
//
// When pageHref carries a loopback callback in CallbackParam, the token goes
// to that callback in a real query string instead, since fragments never
// reach a server. A callback that is not loopback HTTP is ErrForeignTarget.
func (r *Redirector) Destination(authToken, pageHref string) (string, error) {
	if authToken == "" {
		return "", relay.ErrNoAuthToken
	}

	base := r.Target() + "#" + JustSignedInFragment
	if cb := querystring.QueryParams(pageHref)[CallbackParam]; cb != "" {
		if !isLoopbackCallback(cb) {
			return "", ErrForeignTarget
		}
		base = cb
	}

	dest := base + "?" + relay.AuthParam + "=" + escape(authToken)
	if _, qs, ok := strings.Cut(pageHref, "?"); ok && qs != "" {
		dest += "&" + qs
	}
	return dest, nil
}

// isLoopbackCallback reports whether cb is a plain http URL on this machine.
func isLoopbackCallback(cb string) bool {
	u, err := url.Parse(cb)
	if err != nil || u.Scheme != "http" || u.RawQuery != "" || u.Fragment != "" {
		return false
	}
	switch u.Hostname() {
	case "127.0.0.1", "localhost", "::1":
		return true
	default:
		return false
	}
}

// Accept returns the auth token carried by href once. The href must target
// the configured extension or an allowed origin.
func (r *Redirector) Accept(href string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.allowedLocked(href) {
		return "", ErrForeignTarget
	}
	token := querystring.QueryParams(href)[relay.AuthParam]
	if token == "" {
		return "", relay.ErrNoAuthToken
	}
	if _, ok := r.seen[token]; ok {
		return "", ErrTokenReplayed
	}
	r.seen[token] = struct{}{}
	return token, nil
}

func (r *Redirector) allowedLocked(href string) bool {
	if strings.HasPrefix(href, extensionScheme+r.cfg.ExtensionID+"/") {
		return true
	}
	for _, origin := range r.origins {
		if strings.HasPrefix(href, origin) {
			return true
		}
	}
	return false
}

// escape query-escapes s using %20 for spaces, which the redirect decoder expects.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
