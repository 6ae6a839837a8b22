package pageobjects

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
)

// RootPage is the course home page.
type RootPage struct {
	loginBlock
}

// NewRootPage makes the course home page object. call Load to open it.
func NewRootPage(t Tester, page playwright.Page, baseURL string) *RootPage {
	return &RootPage{loginBlock{NewPageObject(t, page, baseURL)}}
}

// Load navigates to the course home page.
func (r *RootPage) Load() *RootPage {
	r.t.Helper()
	r.Get("/")
	return r
}

// ClickLogin follows the Login link; the login form returns to the home page.
func (r *RootPage) ClickLogin() *LoginPage[*RootPage] {
	r.t.Helper()
	r.click(r.FindByLinkText("Login"), "Login link")
	return newLoginPage(r.PageObject, func() *RootPage { return r })
}

// ClickLogout follows the Logout link.
func (r *RootPage) ClickLogout() *RootPage {
	r.t.Helper()
	r.click(r.FindByLinkText("Logout"), "Logout link")
	return r
}

// ClickDashboard follows the admin Dashboard link.
func (r *RootPage) ClickDashboard() *DashboardPage {
	r.t.Helper()
	r.click(r.FindByLinkText("Dashboard"), "Dashboard link")
	return &DashboardPage{r.PageObject}
}

// AssertLoggedOut checks the login widget offers Login.
func (r *RootPage) AssertLoggedOut() *RootPage {
	r.t.Helper()
	r.assertLoggedOut()
	return r
}

// AssertLoggedIn checks the login widget offers Logout and shows name.
func (r *RootPage) AssertLoggedIn(name string) *RootPage {
	r.t.Helper()
	r.assertLoggedIn(name)
	return r
}

// DashboardPage is the admin dashboard.
type DashboardPage struct {
	PageObject
}

// ClickSiteSettings follows the Site settings link.
func (d *DashboardPage) ClickSiteSettings() *SiteSettingsPage {
	d.t.Helper()
	d.click(d.FindByLinkText("Site settings"), "Site settings link")
	return &SiteSettingsPage{d.PageObject}
}

// SiteSettingsPage lists registered site settings with their effective values.
type SiteSettingsPage struct {
	PageObject
}

func settingRow(name string) string {
	return fmt.Sprintf("tr[data-name=%q]", name)
}

// ClickOverride opens the editor of setting name.
func (s *SiteSettingsPage) ClickOverride(name string) *SettingEditorPage {
	s.t.Helper()
	s.click(s.Find(settingRow(name)+" a.edit-setting"), "override link of "+name)
	return &SettingEditorPage{s.PageObject}
}

// AssertSettingValue checks the effective value shown for setting name.
func (s *SiteSettingsPage) AssertSettingValue(name, value string) *SiteSettingsPage {
	s.t.Helper()
	sel := settingRow(name) + " td.value"
	require.Equal(s.t, value, strings.TrimSpace(s.text(s.Find(sel), sel)), "value of setting %s", name)
	return s
}

// SettingEditorPage edits one setting override.
type SettingEditorPage struct {
	PageObject
}

// SetStatus selects the override status by its label, e.g. Active or Draft.
func (e *SettingEditorPage) SetStatus(label string) *SettingEditorPage {
	e.t.Helper()
	_, err := e.Find("select[name=status]").SelectOption(playwright.SelectOptionValues{Labels: &[]string{label}})
	require.NoError(e.t, err, "select status %s", label)
	return e
}

// SetValue sets the boolean override value.
func (e *SettingEditorPage) SetValue(value bool) *SettingEditorPage {
	e.t.Helper()
	box := e.Find("input[name=value]")
	if value {
		require.NoError(e.t, box.Check(), "check value")
	} else {
		require.NoError(e.t, box.Uncheck(), "uncheck value")
	}
	return e
}

// ClickSave saves the override and returns to the settings list.
func (e *SettingEditorPage) ClickSave() *SiteSettingsPage {
	e.t.Helper()
	e.click(e.Find("button.save-setting"), "Save button")
	return &SiteSettingsPage{e.PageObject}
}
