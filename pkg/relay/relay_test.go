package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendtophone/cli/pkg/relay"
	"github.com/sendtophone/cli/pkg/session"
)

// fakeRelay records requests and answers with a fixed status and body.
type fakeRelay struct {
	t      *testing.T
	status int
	body   string

	mu       sync.Mutex
	calls    int32
	paths    []string
	payloads []map[string]any
}

func newFakeRelay(t *testing.T, status int, body string) (*fakeRelay, *httptest.Server) {
	f := &fakeRelay{t: t, status: status, body: body}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "true", r.Header.Get("X-Same-Domain"))
		assert.Equal(t, "application/json;charset=UTF-8", r.Header.Get("Content-Type"))

		var payload map[string]any
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(data, &payload))

		f.mu.Lock()
		f.paths = append(f.paths, r.URL.Path)
		f.payloads = append(f.payloads, payload)
		f.mu.Unlock()

		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	}))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeRelay) callCount() int { return int(atomic.LoadInt32(&f.calls)) }

func (f *fakeRelay) requestPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeRelay) lastPayload() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.payloads)
	return f.payloads[len(f.payloads)-1]
}

func loggedInSession(t *testing.T) (*session.Session, *session.MemoryStore) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(session.KeyDeviceRegistrationID, "4242"))
	s := session.New(store)
	require.NoError(t, s.SetCredentials("session-token", "user@example.com"))
	return s, store
}

func newClient(url string) *relay.Client {
	return relay.NewClient(relay.Config{BaseURL: url + "/", APIVersion: 7})
}

func TestNewClientDefaults(t *testing.T) {
	c := relay.NewClient(relay.Config{})
	assert.Equal(t, relay.DefaultBaseURL, c.BaseURL())
	assert.Equal(t, relay.DefaultAPIVersion, c.APIVersion())
	assert.Equal(t, relay.DefaultBaseURL+"/send", c.URL(relay.PathSend))
}

func TestSend_NoTokenMakesNoRequest(t *testing.T) {
	fake, server := newFakeRelay(t, http.StatusOK, "OK")
	sender := relay.NewSender(newClient(server.URL), session.New(session.NewMemoryStore()))

	result := sender.Send(context.Background(), relay.Message{URL: "https://example.com"})

	assert.Equal(t, relay.StatusLoginRequired, result.Status)
	assert.Equal(t, 0, fake.callCount())
}

func TestSend_Success(t *testing.T) {
	fake, server := newFakeRelay(t, http.StatusOK, "OK")
	sess, _ := loggedInSession(t)
	before, err := sess.Snapshot()
	require.NoError(t, err)

	sender := relay.NewSender(newClient(server.URL), sess)
	result := sender.Send(context.Background(), relay.Message{
		Title:     "Example",
		URL:       "https://example.com",
		Selection: "some text",
		Type:      relay.TypeSelection,
	})

	assert.Equal(t, relay.StatusSuccess, result.Status)
	assert.True(t, result.OK())
	assert.NoError(t, result.Err())

	after, err := sess.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.Equal(t, []string{"/send"}, fake.requestPaths())
	payload := fake.lastPayload()
	assert.Equal(t, "Example", payload["title"])
	assert.Equal(t, "https://example.com", payload["url"])
	assert.Equal(t, "some text", payload["sel"])
	assert.Equal(t, "selection", payload["type"])
	assert.Equal(t, "ac2dm", payload["deviceType"])
	assert.Equal(t, float64(7), payload["ver"])
	assert.Equal(t, "4242", payload["devregid"])
	assert.Equal(t, "user@example.com", payload["account"])
	assert.Equal(t, "session-token", payload["deviceId"])
}

func TestSend_DefaultsToLinkType(t *testing.T) {
	fake, server := newFakeRelay(t, http.StatusOK, "OK")
	sess, _ := loggedInSession(t)

	relay.NewSender(newClient(server.URL), sess).Send(context.Background(), relay.Message{URL: "https://example.com"})
	assert.Equal(t, "link", fake.lastPayload()["type"])
}

func TestSend_LoginRequiredClearsTokenOnly(t *testing.T) {
	_, server := newFakeRelay(t, http.StatusOK, "LOGIN_REQUIRED token expired")
	sess, _ := loggedInSession(t)

	result := relay.NewSender(newClient(server.URL), sess).Send(context.Background(), relay.Message{URL: "https://example.com"})

	assert.Equal(t, relay.StatusLoginRequired, result.Status)
	assert.Equal(t, "LOGIN_REQUIRED token expired", result.Message)

	token, _ := sess.Token()
	account, _ := sess.Account()
	assert.Empty(t, token)
	assert.Equal(t, "user@example.com", account)
}

func TestSend_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  relay.Status
		wantMessage string
	}{
		{"ok prefix", http.StatusOK, "OK sent", relay.StatusSuccess, ""},
		{"device not registered", http.StatusOK, "DEVICE_NOT_REGISTERED", relay.StatusDeviceNotRegistered, "DEVICE_NOT_REGISTERED"},
		{"server error", http.StatusInternalServerError, "boom", relay.StatusGeneralError, "boom"},
		{"bad request", http.StatusBadRequest, "ERROR(Must specify devregid)", relay.StatusGeneralError, "ERROR(Must specify devregid)"},
		{"unrecognized 200", http.StatusOK, "WHAT", relay.StatusGeneralError, "unexpected response: WHAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, server := newFakeRelay(t, tt.status, tt.body)
			sess, _ := loggedInSession(t)

			result := relay.NewSender(newClient(server.URL), sess).Send(context.Background(), relay.Message{URL: "https://example.com"})
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantMessage, result.Message)

			token, _ := sess.Token()
			assert.Equal(t, "session-token", token)
		})
	}
}

func TestSend_TransportFailureIsGeneralError(t *testing.T) {
	_, server := newFakeRelay(t, http.StatusOK, "OK")
	url := server.URL
	server.Close()

	sess, _ := loggedInSession(t)
	result := relay.NewSender(newClient(url), sess).Send(context.Background(), relay.Message{URL: "https://example.com"})

	assert.Equal(t, relay.StatusGeneralError, result.Status)
	assert.NotEmpty(t, result.Message)

	var statusErr *relay.StatusError
	require.ErrorAs(t, result.Err(), &statusErr)
	assert.Equal(t, relay.StatusGeneralError, statusErr.Status)
}

func TestSend_CancelledContext(t *testing.T) {
	_, server := newFakeRelay(t, http.StatusOK, "OK")
	sess, _ := loggedInSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := relay.NewSender(newClient(server.URL), sess).Send(ctx, relay.Message{URL: "https://example.com"})
	assert.Equal(t, relay.StatusGeneralError, result.Status)
}

func TestSendAsync_IndependentResults(t *testing.T) {
	fake, server := newFakeRelay(t, http.StatusOK, "OK")
	sess, _ := loggedInSession(t)
	sender := relay.NewSender(newClient(server.URL), sess)

	chans := make([]<-chan relay.Result, 5)
	for i := range chans {
		chans[i] = sender.SendAsync(context.Background(), relay.Message{URL: "https://example.com"})
	}
	for _, ch := range chans {
		result, ok := <-ch
		require.True(t, ok)
		assert.Equal(t, relay.StatusSuccess, result.Status)
		_, ok = <-ch
		assert.False(t, ok, "channel is closed after one result")
	}
	assert.Equal(t, 5, fake.callCount())
}

func TestLogout_ClearsTokenRegardlessOfStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			fake, server := newFakeRelay(t, status, "")
			sess, _ := loggedInSession(t)

			relay.NewSender(newClient(server.URL), sess).Logout(context.Background())

			token, _ := sess.Token()
			account, _ := sess.Account()
			assert.Empty(t, token)
			assert.Equal(t, "user@example.com", account)

			assert.Equal(t, []string{"/unregister"}, fake.requestPaths())
			payload := fake.lastPayload()
			assert.Equal(t, "UNREGISTER", payload["msgType"])
			assert.Equal(t, server.URL+"/unregister", payload["url"])
		})
	}
}

func TestLogout_ResultIgnoresBody(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  relay.Status
		wantMessage string
	}{
		{"empty 200", http.StatusOK, "", relay.StatusSuccess, ""},
		{"unrecognized 200", http.StatusOK, "WHAT", relay.StatusSuccess, ""},
		{"no content", http.StatusNoContent, "", relay.StatusSuccess, ""},
		{"server error with ok body", http.StatusInternalServerError, "OK", relay.StatusGeneralError, "OK"},
		{"server error", http.StatusBadGateway, "upstream", relay.StatusGeneralError, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, server := newFakeRelay(t, tt.status, tt.body)
			sess, _ := loggedInSession(t)

			result := relay.NewSender(newClient(server.URL), sess).Logout(context.Background())
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantMessage, result.Message)
		})
	}
}

func TestLogout_ClearsTokenOnTransportFailure(t *testing.T) {
	_, server := newFakeRelay(t, http.StatusOK, "OK")
	url := server.URL
	server.Close()

	sess, _ := loggedInSession(t)
	result := relay.NewSender(newClient(url), sess).Logout(context.Background())

	assert.Equal(t, relay.StatusGeneralError, result.Status)
	token, _ := sess.Token()
	assert.Empty(t, token)
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, relay.Message{URL: "https://example.com"}.Validate())
	assert.EqualError(t, relay.Message{}.Validate(), "url is required")
	assert.Error(t, relay.Message{URL: "https://example.com", Type: "video"}.Validate())
}

func TestParseMessageType(t *testing.T) {
	mt, err := relay.ParseMessageType("")
	require.NoError(t, err)
	assert.Equal(t, relay.TypeLink, mt)

	mt, err = relay.ParseMessageType("page")
	require.NoError(t, err)
	assert.Equal(t, relay.TypePage, mt)

	_, err = relay.ParseMessageType("video")
	assert.Error(t, err)
}
