package web

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const sessionCookie = "gcb_session"

// User is a logged in account of the development login.
type User struct {
	Email string
	Admin bool
}

// Sessions maps session tokens to users.
type Sessions struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewSessions makes an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{users: map[string]User{}}
}

// Create registers user under a new random token and returns the token.
func (s *Sessions) Create(user User) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.users[token] = user
	s.mu.Unlock()
	return token
}

// Get returns the user of token.
func (s *Sessions) Get(token string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[token]
	return u, ok
}

// Delete forgets token.
func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	delete(s.users, token)
	s.mu.Unlock()
}

// userFromRequest returns the user of the request session cookie, nil if not logged in.
func (s *Sessions) userFromRequest(r *http.Request) *User {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	u, ok := s.Get(c.Value)
	if !ok {
		return nil
	}
	return &u
}

// safeContinue returns target when it is a local absolute path, otherwise "/".
func safeContinue(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") ||
		strings.HasPrefix(target, "/\\") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return target
}
