// Package pageobjects wraps the screens of a Course Builder application for browser checks.
// Each operation locates one element, performs one action and returns either the same page
// object for chaining or the page object of the screen it navigates to. Assertions fail the
// current check immediately.
package pageobjects

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
)

// Tester is the part of testing.TB used by page objects. *testing.T satisfies it.
type Tester interface {
	Errorf(format string, args ...any)
	FailNow()
	Helper()
	Logf(format string, args ...any)
}

// PageObject holds what every screen needs: the tester to fail, the page and the base url.
type PageObject struct {
	t       Tester
	page    playwright.Page
	baseURL string
}

// NewPageObject makes a PageObject for baseURL, trailing slash removed.
func NewPageObject(t Tester, page playwright.Page, baseURL string) PageObject {
	return PageObject{t: t, page: page, baseURL: strings.TrimRight(baseURL, "/")}
}

// T returns the tester.
func (p *PageObject) T() Tester { return p.t }

// Page returns the underlying playwright page.
func (p *PageObject) Page() playwright.Page { return p.page }

// BaseURL returns the application base url.
func (p *PageObject) BaseURL() string { return p.baseURL }

// Get navigates to path relative to the base url.
func (p *PageObject) Get(path string) {
	p.t.Helper()
	_, err := p.page.Goto(p.baseURL + path)
	require.NoError(p.t, err, "navigate to %s", path)
}

// Find locates the first element matching selector.
func (p *PageObject) Find(selector string) playwright.Locator {
	return p.page.Locator(selector).First()
}

// FindAll locates all elements matching selector.
func (p *PageObject) FindAll(selector string) playwright.Locator {
	return p.page.Locator(selector)
}

// FindByLinkText locates the first link whose text is exactly text.
func (p *PageObject) FindByLinkText(text string) playwright.Locator {
	return p.page.Locator(fmt.Sprintf("a:text-is(%q)", text)).First()
}

// click clicks loc, failing with what as context.
func (p *PageObject) click(loc playwright.Locator, what string) {
	p.t.Helper()
	require.NoError(p.t, loc.Click(), "click %s", what)
}

// text returns the visible text of loc.
func (p *PageObject) text(loc playwright.Locator, what string) string {
	p.t.Helper()
	txt, err := loc.InnerText()
	require.NoError(p.t, err, "read text of %s", what)
	return txt
}

// loginBlock holds the cb-login widget checks shared by application pages.
type loginBlock struct {
	PageObject
}

const (
	loginLink  = "cb-login .login-link"
	logoutLink = "cb-login .logout-link"
	loginName  = "cb-login .login-name"
)

func (l *loginBlock) assertLoggedOut() {
	l.t.Helper()
	require.Equal(l.t, "Login", strings.TrimSpace(l.text(l.Find(loginLink), loginLink)), "login link text")
}

func (l *loginBlock) assertLoggedIn(name string) {
	l.t.Helper()
	require.Equal(l.t, "Logout", strings.TrimSpace(l.text(l.Find(logoutLink), logoutLink)), "logout link text")
	require.Equal(l.t, name, strings.TrimSpace(l.text(l.Find(loginName), loginName)), "logged in name")
}
