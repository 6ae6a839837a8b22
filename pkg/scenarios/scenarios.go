// Package scenarios holds the GraphQL query page checks, shared by the e2e tests and the cli runner.
package scenarios

import (
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	"github.com/umputun/gqlcheck/pkg/gql"
	"github.com/umputun/gqlcheck/pkg/pageobjects"
)

// ServiceSetting is the site setting which turns the GraphQL service on and off.
const ServiceSetting = "gcb_gql_service_enabled"

// DefaultLogin is the admin account used when Env.Login is empty.
const DefaultLogin = "test@example.com"

// DefaultQueryText is the query the page offers on load.
const DefaultQueryText = "{\n  allCourses {\n    edges {\n      node {id title}\n    }\n  }\n}\n"

// defaultQueryResult is the expected result of DefaultQueryText; the course id is excused.
const defaultQueryResult = `{"allCourses":{"edges":[{"node":{"title":"Power Searching with Google","id":"UNKNOWN"}}]}}`

// Env is what a scenario runs against.
type Env struct {
	Page    playwright.Page
	BaseURL string
	Login   string // admin email, DefaultLogin if empty
}

func (e Env) login() string {
	if e.Login == "" {
		return DefaultLogin
	}
	return e.Login
}

// Scenario is one named check.
type Scenario struct {
	Name string
	Run  func(t pageobjects.Tester, env Env)
}

// All returns the checks in run order.
func All() []Scenario {
	return []Scenario{
		{Name: "LoginLogout", Run: LoginLogout},
		{Name: "DefaultQuery", Run: DefaultQuery},
		{Name: "ErrorMessages", Run: ErrorMessages},
	}
}

// SetServiceEnabled logs in as admin, overrides the service setting with status Active and the
// given value, then logs out. running it twice with the same value leaves the same state.
func SetServiceEnabled(t pageobjects.Tester, env Env, enabled bool) {
	t.Helper()

	want := "False"
	if enabled {
		want = "True"
	}

	root := pageobjects.NewRootPage(t, env.Page, env.BaseURL)
	root.Load().
		ClickLogin().
		Login(env.login(), true).
		ClickDashboard().
		ClickSiteSettings().
		ClickOverride(ServiceSetting).
		SetStatus("Active").
		SetValue(enabled).
		ClickSave().
		AssertSettingValue(ServiceSetting, want)
	root.Load().ClickLogout().AssertLoggedOut()
}

// LoginLogout checks the query page login widget through an admin login and logout cycle.
func LoginLogout(t pageobjects.Tester, env Env) {
	t.Helper()
	pageobjects.NewQueryApp(t, env.Page, env.BaseURL).
		Load().
		AssertLoggedOut().
		ClickLogin().
		Login(env.login(), true).
		AssertLoggedIn(env.login()).
		ClickLogout().
		AssertLoggedOut()
}

// DefaultQuery checks the page offers the default query and renders its result.
func DefaultQuery(t pageobjects.Tester, env Env) {
	t.Helper()
	expected, err := gql.ParseResult(defaultQueryResult)
	require.NoError(t, err, "parse expected result")

	pageobjects.NewQueryApp(t, env.Page, env.BaseURL).
		Load().
		AssertQueryText(DefaultQueryText).
		ClickQueryButton().
		AssertResultCriteria(gql.Excuse(expected, "allCourses", "edges", 0, "node", "id"))
}

// ErrorMessages checks an invalid query renders exactly one validation error.
func ErrorMessages(t pageobjects.Tester, env Env) {
	t.Helper()
	pageobjects.NewQueryApp(t, env.Page, env.BaseURL).
		Load().
		SetQueryText("{ unknownField }").
		ClickQueryButton().
		AssertErrorList([]string{`Cannot query field "unknownField" on "Query".`})
}
