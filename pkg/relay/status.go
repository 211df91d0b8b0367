package relay

import (
	"fmt"
	"net/http"
	"strings"
)

// Status is the outcome of a send or unregister request.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusLoginRequired       Status = "login_required"
	StatusDeviceNotRegistered Status = "device_not_registered"
	StatusGeneralError        Status = "general_error"
)

// Response body prefixes the relay answers /send with.
const (
	bodyOK                  = "OK"
	bodyLoginRequired       = "LOGIN_REQUIRED"
	bodyDeviceNotRegistered = "DEVICE_NOT_REGISTERED"
)

// Result is a status plus the diagnostic text that came with it.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the result is a success.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Err returns nil on success and a *StatusError otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}

// StatusError is the error form of a non-success Result.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return string(e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Status, strings.TrimSpace(e.Message))
}

// classify maps a relay response to a Result. Body prefixes are checked before
// the HTTP status.
func classify(resp *response) Result {
	switch {
	case strings.HasPrefix(resp.Body, bodyOK):
		return Result{Status: StatusSuccess}
	case strings.HasPrefix(resp.Body, bodyLoginRequired):
		return Result{Status: StatusLoginRequired, Message: resp.Body}
	case strings.HasPrefix(resp.Body, bodyDeviceNotRegistered):
		return Result{Status: StatusDeviceNotRegistered, Message: resp.Body}
	case resp.StatusCode != http.StatusOK:
		return Result{Status: StatusGeneralError, Message: resp.Body}
	default:
		return Result{Status: StatusGeneralError, Message: "unexpected response: " + resp.Body}
	}
}

func transportFailure(err error) Result {
	return Result{Status: StatusGeneralError, Message: err.Error()}
}
