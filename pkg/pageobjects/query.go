package pageobjects

import (
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/umputun/gqlcheck/pkg/gql"
)

// QueryAppURI is the path of the GraphQL query page.
const QueryAppURI = "/modules/gql/_static/query/index.html"

const (
	queryTextarea  = `textarea[ng-model="query"]`
	queryButton    = "button.query-button"
	resultCard     = "md-card-content.result"
	errorsCard     = "md-card-content.errors"
	errorListItems = "md-card-content.errors li"
)

// QueryApp is the GraphQL query page.
type QueryApp struct {
	loginBlock
}

// NewQueryApp makes the query page object. call Load to open it.
func NewQueryApp(t Tester, page playwright.Page, baseURL string) *QueryApp {
	return &QueryApp{loginBlock{NewPageObject(t, page, baseURL)}}
}

// Load navigates to the query page.
func (q *QueryApp) Load() *QueryApp {
	q.t.Helper()
	q.Get(QueryAppURI)
	return q
}

// AssertQueryText checks the query editor holds exactly text.
func (q *QueryApp) AssertQueryText(text string) *QueryApp {
	q.t.Helper()
	val, err := q.Find(queryTextarea).InputValue()
	require.NoError(q.t, err, "read query text")
	require.Equal(q.t, text, val, "query text")
	return q
}

// SetQueryText replaces the query editor content with text.
func (q *QueryApp) SetQueryText(text string) *QueryApp {
	q.t.Helper()
	area := q.Find(queryTextarea)
	require.NoError(q.t, area.Clear(), "clear query text")
	require.NoError(q.t, area.PressSequentially(text), "type query text")
	return q
}

// ClickQueryButton submits the query.
func (q *QueryApp) ClickQueryButton() *QueryApp {
	q.t.Helper()
	q.click(q.Find(queryButton), "query button")
	return q
}

// AssertResultText checks the rendered result is structurally equal to the expected json document.
func (q *QueryApp) AssertResultText(expected string) *QueryApp {
	q.t.Helper()
	want, err := gql.ParseResult(expected)
	require.NoError(q.t, err, "parse expected result")
	return q.AssertResultCriteria(gql.Equal(want))
}

// AssertResultCriteria checks the rendered result satisfies criteria.
func (q *QueryApp) AssertResultCriteria(criteria gql.Criteria) *QueryApp {
	q.t.Helper()
	actual := q.result()
	require.True(q.t, criteria(actual), "query result does not match criteria: %v", actual)
	return q
}

// AssertErrorList checks the rendered error messages equal expected, in order.
func (q *QueryApp) AssertErrorList(expected []string) *QueryApp {
	q.t.Helper()
	// AllInnerTexts does not wait, so wait for the list container first
	require.NoError(q.t, q.Find(errorsCard).WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateAttached,
	}), "wait for error list")
	texts, err := q.FindAll(errorListItems).AllInnerTexts()
	require.NoError(q.t, err, "read error list")
	require.Equal(q.t, expected, texts, "error list")
	return q
}

// AssertLoggedOut checks the login widget offers Login.
func (q *QueryApp) AssertLoggedOut() *QueryApp {
	q.t.Helper()
	q.assertLoggedOut()
	return q
}

// AssertLoggedIn checks the login widget offers Logout and shows name.
func (q *QueryApp) AssertLoggedIn(name string) *QueryApp {
	q.t.Helper()
	q.assertLoggedIn(name)
	return q
}

// ClickLogin follows the Login link; the login form returns to the query page.
func (q *QueryApp) ClickLogin() *LoginPage[*QueryApp] {
	q.t.Helper()
	q.click(q.FindByLinkText("Login"), "Login link")
	return newLoginPage(q.PageObject, func() *QueryApp { return q })
}

// ClickLogout follows the Logout link, which returns to the query page.
func (q *QueryApp) ClickLogout() *QueryApp {
	q.t.Helper()
	q.click(q.FindByLinkText("Logout"), "Logout link")
	return q
}

func (q *QueryApp) result() map[string]any {
	q.t.Helper()
	res, err := gql.ParseResult(q.text(q.Find(resultCard), resultCard))
	require.NoError(q.t, err, "parse query result")
	return res
}
