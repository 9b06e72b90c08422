package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alarmdesk/console/internal/session"
)

// --- Mocks ---

type mockClient struct {
	calls   int
	blocked chan struct{} // when set, Login blocks until closed
	token   Token
	err     error
}

func (m *mockClient) Login(ctx context.Context, creds Credentials) (Token, error) {
	m.calls++
	if m.blocked != nil {
		<-m.blocked
	}
	if m.err != nil {
		return Token{}, m.err
	}
	return m.token, nil
}

type mockSessions struct {
	written []session.Session
	err     error
}

func (m *mockSessions) Write(sess session.Session) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, sess)
	return nil
}

func newTestFlow(client AuthClient, sessions SessionWriter) *Flow {
	return NewFlow(zap.NewNop(), client, sessions)
}

// --- Validation gates the network call ---

func TestSubmit_ShortPasswordNeverCallsNetwork(t *testing.T) {
	client := &mockClient{token: Token{AccessToken: "tok", TokenType: "bearer"}}
	flow := newTestFlow(client, &mockSessions{})

	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "abc12"})

	assert.Equal(t, 0, client.calls)
	assert.Equal(t, StateIdle, res.State)
	assert.Contains(t, res.FieldErrors.Password, "at least 6 characters")
	assert.False(t, flow.Busy())
}

func TestSubmit_MultibytePasswordCountsRunes(t *testing.T) {
	client := &mockClient{token: Token{AccessToken: "tok", TokenType: "bearer"}}
	flow := newTestFlow(client, &mockSessions{})

	// 3 runes but 6 bytes: still too short.
	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "äää"})
	assert.Equal(t, 0, client.calls)
	assert.Contains(t, res.FieldErrors.Password, "at least 6 characters")

	// 6 runes passes validation and reaches the client.
	res = flow.Submit(context.Background(), Credentials{Username: "admin", Password: "ääääää"})
	assert.Equal(t, 1, client.calls)
	assert.True(t, res.FieldErrors.Empty())
}

func TestSubmit_EmptyUsernameNeverCallsNetwork(t *testing.T) {
	client := &mockClient{token: Token{AccessToken: "tok", TokenType: "bearer"}}
	flow := newTestFlow(client, &mockSessions{})

	res := flow.Submit(context.Background(), Credentials{Username: "", Password: "admin123"})

	assert.Equal(t, 0, client.calls)
	assert.Equal(t, StateIdle, res.State)
	assert.NotEmpty(t, res.FieldErrors.Username)
}

func TestSubmit_WhitespaceUsernameRejected(t *testing.T) {
	client := &mockClient{}
	flow := newTestFlow(client, &mockSessions{})

	res := flow.Submit(context.Background(), Credentials{Username: "   ", Password: "admin123"})

	assert.Equal(t, 0, client.calls)
	assert.NotEmpty(t, res.FieldErrors.Username)
}

// --- Failure outcomes ---

func TestSubmit_InvalidCredentials(t *testing.T) {
	client := &mockClient{err: ErrInvalidCredentials}
	flow := newTestFlow(client, &mockSessions{})

	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "wrong-pass"})

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, StateIdle, res.State)
	assert.ErrorIs(t, res.Err, ErrInvalidCredentials)
	assert.False(t, flow.Busy(), "busy flag must be cleared on failure")
	assert.Equal(t, StateIdle, flow.State())
}

func TestSubmit_GenericFailure(t *testing.T) {
	client := &mockClient{err: ErrUnavailable}
	flow := newTestFlow(client, &mockSessions{})

	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "admin123"})

	assert.Equal(t, StateIdle, res.State)
	assert.ErrorIs(t, res.Err, ErrUnavailable)
	assert.NotErrorIs(t, res.Err, ErrInvalidCredentials)
	assert.False(t, flow.Busy())
}

func TestSubmit_SessionWriteFailure(t *testing.T) {
	client := &mockClient{token: Token{AccessToken: "tok", TokenType: "bearer"}}
	sessions := &mockSessions{err: errors.New("disk full")}
	flow := newTestFlow(client, sessions)

	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "admin123"})

	assert.Equal(t, StateIdle, res.State)
	assert.ErrorIs(t, res.Err, ErrUnavailable)
	assert.False(t, flow.Busy())
}

// --- Success path ---

func TestSubmit_SuccessPersistsAndRedirects(t *testing.T) {
	client := &mockClient{token: Token{AccessToken: "tok", TokenType: "bearer"}}
	sessions := &mockSessions{}
	flow := newTestFlow(client, sessions)

	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "admin123"})

	require.NoError(t, res.Err)
	assert.Equal(t, StateRedirected, res.State)
	assert.Equal(t, StateRedirected, flow.State())
	assert.False(t, flow.Busy())

	require.Len(t, sessions.written, 1)
	assert.Equal(t, "tok", sessions.written[0].AccessToken)
	assert.Equal(t, "bearer", sessions.written[0].TokenType)
}

// --- Quick login ---

func TestSubmit_QuickLoginFollowsSameFlow(t *testing.T) {
	creds := QuickLogin()
	assert.Equal(t, "admin", creds.Username)
	assert.Equal(t, "admin123", creds.Password)

	// Quick-login credentials pass validation like manual entry would.
	assert.True(t, Validate(creds).Empty())

	client := &mockClient{token: Token{AccessToken: "tok", TokenType: "bearer"}}
	sessions := &mockSessions{}
	flow := newTestFlow(client, sessions)

	res := flow.Submit(context.Background(), creds)

	require.NoError(t, res.Err)
	assert.Equal(t, StateRedirected, res.State)
	assert.Equal(t, 1, client.calls)
	require.Len(t, sessions.written, 1)
}

// --- Re-entrancy ---

func TestSubmit_BlockedWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	client := &mockClient{blocked: release, token: Token{AccessToken: "tok", TokenType: "bearer"}}
	flow := newTestFlow(client, &mockSessions{})

	done := make(chan Result, 1)
	go func() {
		done <- flow.Submit(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	}()

	// Wait for the first submit to reach the network call.
	require.Eventually(t, flow.Busy, time.Second, time.Millisecond)

	res := flow.Submit(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, res.Err, ErrInFlight)
	assert.Equal(t, 1, client.calls)

	close(release)
	first := <-done
	require.NoError(t, first.Err)
	assert.Equal(t, StateRedirected, first.State)
}

// --- State names ---

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "validating", StateValidating.String())
	assert.Equal(t, "submitting", StateSubmitting.String())
	assert.Equal(t, "redirected", StateRedirected.String())
}
