package pageobjects

import (
	"github.com/stretchr/testify/require"
)

// LoginPage is the development login form. T is the page object of the screen the form
// returns to after submit.
type LoginPage[T any] struct {
	PageObject
	next func() T
}

func newLoginPage[T any](po PageObject, next func() T) *LoginPage[T] {
	return &LoginPage[T]{PageObject: po, next: next}
}

// Login fills the email, sets the admin checkbox and submits the form.
func (l *LoginPage[T]) Login(email string, admin bool) T {
	l.t.Helper()

	require.NoError(l.t, l.Find("#email").Fill(email), "fill login email")
	adminBox := l.Find("#admin")
	if admin {
		require.NoError(l.t, adminBox.Check(), "check admin")
	} else {
		require.NoError(l.t, adminBox.Uncheck(), "uncheck admin")
	}
	l.click(l.Find("#submit-login"), "login submit")
	return l.next()
}
