package signin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

const signedInPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Signed in</title></head>
<body><p>You are signed in. You can close this window and return to the terminal.</p></body></html>
`

var errAlreadySignedIn = errors.New("sign-in already completed")

// callbackRequestsPerMinute caps requests to the loopback callback.
const callbackRequestsPerMinute = 30

// Listener is a loopback HTTP server that receives a single sign-in redirect.
type Listener struct {
	redirector *Redirector
	server     *http.Server
	ln         net.Listener
	logger     zerolog.Logger

	mu        sync.Mutex
	delivered bool
	tokens    chan string
}

// NewListener binds addr (use "127.0.0.1:0" for a free port) and registers its
// origin with the redirector.
func NewListener(redirector *Redirector, addr string, logger zerolog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &Listener{
		redirector: redirector,
		ln:         ln,
		logger:     logger,
		tokens:     make(chan string, 1),
	}

	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(callbackRequestsPerMinute, time.Minute))
	r.Get("/"+redirector.Config().RedirectPage, l.handleRedirect)
	l.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	redirector.AllowOrigin(l.Origin())
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error().Err(err).Msg("sign-in listener stopped")
		}
	}()
	return l, nil
}

// Origin is the scheme and host the listener serves on.
func (l *Listener) Origin() string {
	return "http://" + l.ln.Addr().String()
}

// CallbackURL is the URL the hosted sign-in page should redirect to.
func (l *Listener) CallbackURL() string {
	return l.Origin() + "/" + l.redirector.Config().RedirectPage
}

func (l *Listener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	if l.isDelivered() {
		http.Error(w, errAlreadySignedIn.Error(), http.StatusConflict)
		return
	}

	href := l.Origin() + r.URL.RequestURI()
	token, err := l.redirector.Accept(href)
	if err != nil {
		l.logger.Debug().Err(err).Msg("rejected sign-in redirect")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !l.claim() {
		http.Error(w, errAlreadySignedIn.Error(), http.StatusConflict)
		return
	}

	l.tokens <- token
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(signedInPage))
}

func (l *Listener) isDelivered() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.delivered
}

// claim reports whether the caller is the first to deliver a token.
func (l *Listener) claim() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.delivered {
		return false
	}
	l.delivered = true
	return true
}

func (l *Listener) Wait(ctx context.Context) (string, error) {
	select {
	case token := <-l.tokens:
		return token, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the server down.
func (l *Listener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}
