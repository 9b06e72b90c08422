package login

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alarmdesk/console/pkg/utils"
)

func TestClient_LoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin", creds.Username)
		assert.Equal(t, "admin123", creds.Password)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "tok", TokenType: "bearer"})
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	tok, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestClient_LoginLogsMaskedToken(t *testing.T) {
	const issued = "eyJhbGciOiJIUzI1NiJ9.full-token-material"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Token{AccessToken: issued, TokenType: "bearer"})
	}))
	defer srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	client := NewClient(zap.New(core), srv.URL)

	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	require.NoError(t, err)

	entries := logs.FilterMessage("login.success").All()
	require.Len(t, entries, 1)
	logged := entries[0].ContextMap()["access_token"].(string)
	assert.Equal(t, utils.MaskToken(issued), logged)
	assert.NotContains(t, logged, "full-token-material")
}

func TestClient_LoginUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestClient_LoginServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestClient_LoginBadResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_LoginNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := NewClient(zap.NewNop(), srv.URL)
	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_Whoami(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Identity{Username: "admin", Role: "operator", ExpiresAt: 1700000000})
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	id, err := client.Whoami(context.Background(), "bearer", "tok")
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Username)
	assert.Equal(t, "operator", id.Role)
}

func TestClient_WhoamiRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	_, err := client.Whoami(context.Background(), "bearer", "stale")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClient_SingleAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(zap.NewNop(), srv.URL)
	_, err := client.Login(context.Background(), Credentials{Username: "admin", Password: "admin123"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls, "login must not retry")
}
