// Package runner runs the query page checks outside go test and collects a report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/umputun/gqlcheck/pkg/pageobjects"
	"github.com/umputun/gqlcheck/pkg/progress"
	"github.com/umputun/gqlcheck/pkg/scenarios"
)

// ErrChecksFailed is returned by Run when at least one check failed.
var ErrChecksFailed = errors.New("checks failed")

// Config holds runner configuration.
type Config struct {
	BaseURL string   // application under test
	Login   string   // admin email
	Only    []string // check names to run, all if empty
}

// Browser opens isolated pages and takes failure screenshots.
type Browser interface {
	NewPage() (playwright.Page, func(), error)
	Screenshot(page playwright.Page, name string) (string, error)
	Engine() string
}

// Logger provides logging functionality.
type Logger interface {
	SetPhase(phase progress.Phase)
	Print(format string, args ...any)
	Pass(format string, args ...any)
	Fail(format string, args ...any)
	Warn(format string, args ...any)
}

// ServiceChecker reports whether the GraphQL service answers, bypassing the browser.
type ServiceChecker interface {
	Enabled(ctx context.Context) (bool, error)
}

// ToggleFunc switches the GraphQL service setting through the admin UI.
type ToggleFunc func(t pageobjects.Tester, env scenarios.Env, enabled bool)

// Runner orchestrates setup, check and teardown of every selected check.
type Runner struct {
	cfg     Config
	browser Browser
	log     Logger
	checker ServiceChecker
	checks  []scenarios.Scenario
	toggle  ToggleFunc
	now     func() time.Time
}

// New creates a Runner for all query page checks. checker may be nil.
func New(cfg Config, browser Browser, log Logger, checker ServiceChecker) *Runner {
	return NewWithScenarios(cfg, browser, log, checker, scenarios.All(), scenarios.SetServiceEnabled)
}

// NewWithScenarios creates a Runner with custom checks and toggle (for testing).
func NewWithScenarios(cfg Config, browser Browser, log Logger, checker ServiceChecker,
	checks []scenarios.Scenario, toggle ToggleFunc) *Runner {
	return &Runner{cfg: cfg, browser: browser, log: log, checker: checker, checks: checks, toggle: toggle, now: time.Now}
}

// Run executes the selected checks in order. each check gets a fresh page, setup enables the
// service, teardown disables it and always runs. the report is returned even on failure.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	selected, err := r.selectChecks()
	if err != nil {
		return nil, err
	}

	report := &Report{BaseURL: r.cfg.BaseURL, Browser: r.browser.Engine(), Started: r.now()}

	if r.checker != nil {
		r.log.SetPhase(progress.PhaseSetup)
		if _, err := r.checker.Enabled(ctx); err != nil {
			return nil, fmt.Errorf("target %s not reachable: %w", r.cfg.BaseURL, err)
		}
	}

	for _, check := range selected {
		if err := ctx.Err(); err != nil {
			report.Duration = r.now().Sub(report.Started)
			return report, fmt.Errorf("run interrupted: %w", err)
		}
		res, err := r.runCheck(check)
		if err != nil {
			report.Duration = r.now().Sub(report.Started)
			return report, err
		}
		report.Results = append(report.Results, res)
	}

	r.verifyDisabled(ctx)

	report.Duration = r.now().Sub(report.Started)
	if report.Failed() > 0 {
		return report, fmt.Errorf("%w: %s", ErrChecksFailed, strings.Join(report.FailedNames(), ", "))
	}
	return report, nil
}

func (r *Runner) selectChecks() ([]scenarios.Scenario, error) {
	if len(r.cfg.Only) == 0 {
		return r.checks, nil
	}
	res := make([]scenarios.Scenario, 0, len(r.cfg.Only))
	for _, name := range r.cfg.Only {
		found := false
		for _, check := range r.checks {
			if strings.EqualFold(check.Name, strings.TrimSpace(name)) {
				res = append(res, check)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown check %q", name)
		}
	}
	return res, nil
}

// runCheck runs setup, the check itself and teardown on one page.
func (r *Runner) runCheck(check scenarios.Scenario) (Result, error) {
	page, closePage, err := r.browser.NewPage()
	if err != nil {
		return Result{}, fmt.Errorf("open page for %s: %w", check.Name, err)
	}
	defer closePage()

	env := scenarios.Env{Page: page, BaseURL: r.cfg.BaseURL, Login: r.cfg.Login}
	start := r.now()
	res := Result{Name: check.Name}

	r.log.SetPhase(progress.PhaseSetup)
	r.log.Print("%s: enable %s", check.Name, scenarios.ServiceSetting)
	setup := newRecorder(r.log.Print)
	setup.run(func(t *recorder) { r.toggle(t, env, true) })
	res.Failures = append(res.Failures, prefixed("setup", setup.Failures())...)

	failed := setup.Failed()
	if !failed {
		r.log.SetPhase(progress.PhaseCheck)
		r.log.Print("%s: run", check.Name)
		body := newRecorder(r.log.Print)
		body.run(func(t *recorder) { check.Run(t, env) })
		res.Failures = append(res.Failures, body.Failures()...)
		failed = body.Failed()
	}

	if failed {
		if path, err := r.browser.Screenshot(page, check.Name); err != nil {
			r.log.Warn("screenshot of %s: %v", check.Name, err)
		} else {
			res.Screenshot = path
		}
	}

	r.log.SetPhase(progress.PhaseTeardown)
	r.log.Print("%s: disable %s", check.Name, scenarios.ServiceSetting)
	teardown := newRecorder(r.log.Print)
	teardown.run(func(t *recorder) { r.toggle(t, env, false) })
	res.Failures = append(res.Failures, prefixed("teardown", teardown.Failures())...)
	failed = failed || teardown.Failed()

	res.Duration = r.now().Sub(start)
	res.Passed = !failed
	if failed && len(res.Failures) == 0 {
		res.Failures = []string{"failed without message"}
	}

	r.log.SetPhase(progress.PhaseCheck)
	if res.Passed {
		r.log.Pass("%s (%s)", res.Name, res.Duration.Round(time.Millisecond))
	} else {
		r.log.Fail("%s (%s)", res.Name, res.Duration.Round(time.Millisecond))
	}
	return res, nil
}

// verifyDisabled warns when the service still answers after the last teardown.
func (r *Runner) verifyDisabled(ctx context.Context) {
	if r.checker == nil {
		return
	}
	r.log.SetPhase(progress.PhaseTeardown)
	enabled, err := r.checker.Enabled(ctx)
	switch {
	case err != nil:
		r.log.Warn("service check after teardown: %v", err)
	case enabled:
		r.log.Warn("%s is still enabled after teardown", scenarios.ServiceSetting)
	}
}

func prefixed(stage string, msgs []string) []string {
	res := make([]string, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, stage+": "+m)
	}
	return res
}
