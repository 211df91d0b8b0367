package relay

import (
	"context"
	"errors"
	"fmt"
)

// DeviceTypePhone is the device type the relay delivers /send messages to.
const DeviceTypePhone = "ac2dm"

// MessageType tells the phone how to present a message.
type MessageType string

const (
	TypeLink      MessageType = "link"
	TypeSelection MessageType = "selection"
	TypePage      MessageType = "page"
)

// ParseMessageType validates s. An empty string is TypeLink.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(s) {
	case "", TypeLink:
		return TypeLink, nil
	case TypeSelection, TypePage:
		return MessageType(s), nil
	default:
		return "", fmt.Errorf("unknown message type %q: use link, selection or page", s)
	}
}

// Message is what gets sent to the phone.
type Message struct {
	Title     string
	URL       string
	Selection string
	Type      MessageType
}

// Validate checks that the message can be sent.
func (m Message) Validate() error {
	if m.URL == "" {
		return errors.New("url is required")
	}
	if _, err := ParseMessageType(string(m.Type)); err != nil {
		return err
	}
	return nil
}

type sendRequest struct {
	Title      string      `json:"title"`
	URL        string      `json:"url"`
	Sel        string      `json:"sel"`
	Type       MessageType `json:"type"`
	DeviceType string      `json:"deviceType"`
	Ver        int         `json:"ver"`
	DevRegID   string      `json:"devregid"`
	Account    string      `json:"account"`
	DeviceID   string      `json:"deviceId"`
}

type unregisterRequest struct {
	URL     string `json:"url"`
	MsgType string `json:"msgType"`
}

// Sender sends messages and unregisters using the stored session token.
type Sender struct {
	client  *Client
	session Session
}

func NewSender(client *Client, session Session) *Sender {
	return &Sender{client: client, session: session}
}

// Send delivers msg to the phone. Without a stored token it reports
// StatusLoginRequired without contacting the relay. A LOGIN_REQUIRED answer
// clears the stored token.
func (s *Sender) Send(ctx context.Context, msg Message) Result {
	token, err := s.session.Token()
	if err != nil {
		return Result{Status: StatusGeneralError, Message: err.Error()}
	}
	if token == "" {
		return Result{Status: StatusLoginRequired, Message: "Login required"}
	}

	account, err := s.session.Account()
	if err != nil {
		return Result{Status: StatusGeneralError, Message: err.Error()}
	}
	devRegID, err := s.session.DeviceRegistrationID()
	if err != nil {
		return Result{Status: StatusGeneralError, Message: err.Error()}
	}

	msgType := msg.Type
	if msgType == "" {
		msgType = TypeLink
	}

	resp, err := s.client.post(ctx, PathSend, sendRequest{
		Title:      msg.Title,
		URL:        msg.URL,
		Sel:        msg.Selection,
		Type:       msgType,
		DeviceType: DeviceTypePhone,
		Ver:        s.client.apiVersion,
		DevRegID:   devRegID,
		Account:    account,
		DeviceID:   token,
	})
	if err != nil {
		return transportFailure(err)
	}

	result := classify(resp)
	if result.Status == StatusLoginRequired {
		if err := s.session.ClearToken(); err != nil {
			s.client.logger.Warn().Err(err).Msg("failed to clear session token")
		}
	}
	return result
}

// SendAsync runs Send in its own goroutine. The channel yields exactly one
// Result and is then closed.
func (s *Sender) SendAsync(ctx context.Context, msg Message) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- s.Send(ctx, msg)
	}()
	return ch
}

// Logout unregisters with the relay and clears the stored token whatever the
// outcome. The account is kept. The response body is not interpreted: any 2xx
// is a success. The Result is informational.
func (s *Sender) Logout(ctx context.Context) Result {
	resp, err := s.client.post(ctx, PathUnregister, unregisterRequest{
		URL:     s.client.URL(PathUnregister),
		MsgType: "UNREGISTER",
	})

	var result Result
	switch {
	case err != nil:
		result = transportFailure(err)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		result = Result{Status: StatusSuccess}
	default:
		result = Result{Status: StatusGeneralError, Message: resp.Body}
	}

	s.client.logger.Debug().Str("status", string(result.Status)).Msg("signout")
	if err := s.session.ClearToken(); err != nil {
		return Result{Status: StatusGeneralError, Message: err.Error()}
	}
	return result
}
