package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goatkit/reqflow/internal/models"
)

func testSession() *Session {
	return &Session{
		Token: "header.payload.signature",
		User:  SessionUser{ID: "u1", Name: "Priya Nair", Role: models.RoleManager},
	}
}

func TestFileSessionStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileSessionStore(path)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, store.Save(testSession()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, testSession(), loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestFileSessionStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileSessionStore(path)

	for _, raw := range []string{"not json at all", "{}", `{"token":""}`} {
		require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
		_, err := store.Load()
		assert.ErrorIs(t, err, ErrNotAuthenticated, "raw=%q", raw)
	}
}

func TestFileSessionStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "session.json")
	store := NewFileSessionStore(path)

	require.NoError(t, store.Save(testSession()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.User.ID)
}

func TestFileSessionStore_ClearMissingIsFine(t *testing.T) {
	store := NewFileSessionStore(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, store.Clear())
}

func TestMemorySessionStore(t *testing.T) {
	store := &MemorySessionStore{}

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, store.Save(testSession()))
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, loaded.User.Role)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
