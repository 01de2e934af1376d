// Package client is the Go consumer library for the reqflow API: a persisted
// session store, a typed HTTP client that attaches the bearer token to every
// call, and a workflow engine that runs the same validation guards as the
// server before spending a round trip.
package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/goatkit/reqflow/internal/models"
)

// SessionUser is the identity slice persisted with the token.
type SessionUser struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

// Session is the single object persisted after login: the bearer token plus
// the identity needed for role-aware behavior without a server call.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// ErrNotAuthenticated is returned when no usable session is stored. A
// missing file and a corrupt file are deliberately indistinguishable.
var ErrNotAuthenticated = errors.New("not authenticated")

// SessionStore persists the session. Written only by login/logout; read by
// every outgoing call.
type SessionStore interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// FileSessionStore keeps the session as one JSON file.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore stores the session at path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Load reads the stored session. Absence or parse failure both mean
// ErrNotAuthenticated; corrupt state is never surfaced to the user.
func (s *FileSessionStore) Load() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil || session.Token == "" {
		return nil, ErrNotAuthenticated
	}
	return &session, nil
}

// Save writes the session atomically.
func (s *FileSessionStore) Save(session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemorySessionStore holds the session in memory. Used in tests and by
// callers that manage persistence themselves.
type MemorySessionStore struct {
	session *Session
}

// Load returns the held session or ErrNotAuthenticated.
func (s *MemorySessionStore) Load() (*Session, error) {
	if s.session == nil || s.session.Token == "" {
		return nil, ErrNotAuthenticated
	}
	return s.session, nil
}

// Save replaces the held session.
func (s *MemorySessionStore) Save(session *Session) error {
	s.session = session
	return nil
}

// Clear drops the held session.
func (s *MemorySessionStore) Clear() error {
	s.session = nil
	return nil
}
