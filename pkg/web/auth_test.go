package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	s := NewSessions()
	token := s.Create(User{Email: "test@example.com", Admin: true})
	other := s.Create(User{Email: "test@example.com"})
	assert.NotEqual(t, token, other)

	u, ok := s.Get(token)
	require.True(t, ok)
	assert.Equal(t, User{Email: "test@example.com", Admin: true}, u)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Nil(t, s.userFromRequest(req))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: other})
	require.NotNil(t, s.userFromRequest(req))
	assert.False(t, s.userFromRequest(req).Admin)

	s.Delete(other)
	_, ok = s.Get(other)
	assert.False(t, ok)
	assert.Nil(t, s.userFromRequest(req))
}

func TestSafeContinue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/modules/gql/_static/query/index.html", "/modules/gql/_static/query/index.html"},
		{"/admin/settings/edit?name=x", "/admin/settings/edit?name=x"},
		{"", "/"},
		{"//evil.example.com/", "/"},
		{"/\\evil.example.com", "/"},
		{"https://evil.example.com/", "/"},
		{"relative", "/"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, safeContinue(tc.in))
		})
	}
}
