package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendtophone/cli/pkg/session"
)

type FakeSnapshotReader struct {
	snap session.Snapshot
}

func (f FakeSnapshotReader) Snapshot() (session.Snapshot, error) { return f.snap, nil }

func TestStatus_JSONHidesToken(t *testing.T) {
	setupStdoutCapture(t)
	done := captureStdout(t)
	s := StatusCmd{
		session: FakeSnapshotReader{session.Snapshot{
			Token:                "secret-session-token",
			Account:              "user@example.com",
			DeviceRegistrationID: "4242",
		}},
		relayURL: "https://relay.test",
		store:    "memory",
	}

	err := s.Status(context.Background(), StatusInput{Output: "json"})
	out := done()
	require.NoError(t, err)

	assert.NotContains(t, out, "secret-session-token")
	var got statusView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.LoggedIn)
	assert.Equal(t, "user@example.com", got.Account)
	assert.Equal(t, "https://relay.test", got.RelayURL)
}

func TestStatus_SignedOutHint(t *testing.T) {
	setupStdoutCapture(t)
	s := StatusCmd{session: FakeSnapshotReader{}, relayURL: "https://relay.test", store: "file"}

	require.NoError(t, s.Status(context.Background(), StatusInput{}))
	assert.Contains(t, outBuf.String(), "sendtophone login")
}

func TestStatus_RejectsUnknownOutput(t *testing.T) {
	s := StatusCmd{session: FakeSnapshotReader{}}
	assert.Error(t, s.Status(context.Background(), StatusInput{Output: "yaml"}))
}
