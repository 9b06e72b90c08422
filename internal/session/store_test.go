package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "alarmdesk", "session.json"))
}

func TestStore_WriteAndRead(t *testing.T) {
	store := newTestStore(t)

	err := store.Write(Session{AccessToken: "tok", TokenType: "bearer"})
	require.NoError(t, err)

	sess, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, "bearer", sess.TokenType)
}

func TestStore_FileUsesFixedKeys(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(Session{AccessToken: "tok", TokenType: "bearer"}))

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "tok", raw[KeyAccessToken])
	assert.Equal(t, "bearer", raw[KeyTokenType])
}

func TestStore_ReadWithoutSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Read()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_WriteOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(Session{AccessToken: "old", TokenType: "bearer"}))
	require.NoError(t, store.Write(Session{AccessToken: "new", TokenType: "bearer"}))

	sess, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "new", sess.AccessToken)
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(Session{AccessToken: "tok", TokenType: "bearer"}))
	require.NoError(t, store.Clear())

	_, err := store.Read()
	assert.ErrorIs(t, err, ErrNoSession)

	// Clearing an already-empty store is fine.
	require.NoError(t, store.Clear())
}

func TestStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Write(Session{AccessToken: "tok", TokenType: "bearer"}))

	info, err := os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
