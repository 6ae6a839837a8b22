package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/gqlcheck/pkg/config"
	"github.com/umputun/gqlcheck/pkg/notify"
	"github.com/umputun/gqlcheck/pkg/runner"
)

func TestApplyOptions(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{Values: config.Values{
			BaseURL: "http://localhost:8081", LoginEmail: "test@example.com", Browser: "chromium",
			Headless: true, StubPort: 8081,
		}}
	}

	t.Run("no flags keep config", func(t *testing.T) {
		cfg := base()
		applyOptions(cfg, opts{})
		assert.Equal(t, base().Values, cfg.Values)
	})

	t.Run("flags override", func(t *testing.T) {
		cfg := base()
		applyOptions(cfg, opts{URL: "http://cb.example.com/", Login: "admin@example.com", Browser: "firefox",
			Headed: true, Install: true, Report: "out/report.md", Port: 9000, Settings: "settings.yml"})
		assert.Equal(t, "http://cb.example.com", cfg.BaseURL)
		assert.Equal(t, "admin@example.com", cfg.LoginEmail)
		assert.Equal(t, "firefox", cfg.Browser)
		assert.False(t, cfg.Headless)
		assert.True(t, cfg.InstallDriver)
		assert.Equal(t, "out/report.md", cfg.ReportFile)
		assert.Equal(t, 9000, cfg.StubPort)
		assert.Equal(t, "settings.yml", cfg.StubSettingsFile)
	})
}

func TestNotifyRun(t *testing.T) {
	cfg := &config.Config{Values: config.Values{BaseURL: "http://localhost:8081", Browser: "chromium",
		ReportFile: "out/report.md"}}
	started := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	report := &runner.Report{Started: started, Duration: 3200 * time.Millisecond, Results: []runner.Result{
		{Name: "LoginLogout", Passed: true, Duration: time.Second},
		{Name: "DefaultQuery", Duration: 2 * time.Second, Failures: []string{"result text mismatch"},
			Screenshot: "screenshots/DefaultQuery.png"},
	}}

	t.Run("checks failed", func(t *testing.T) {
		run := notifyRun(cfg, report, runner.ErrChecksFailed)
		assert.False(t, run.OK())
		assert.Empty(t, run.Error, "failed checks are reported per check")
		assert.Equal(t, started, run.Started)
		assert.Equal(t, "out/report.md", run.ReportFile)
		require.Len(t, run.Checks, 2)
		assert.Equal(t, []notify.Check{{Name: "DefaultQuery", Duration: 2 * time.Second,
			Failures: []string{"result text mismatch"}, Screenshot: "screenshots/DefaultQuery.png"}}, run.Failed())
	})

	t.Run("run error before checks", func(t *testing.T) {
		run := notifyRun(cfg, nil, errors.New("service check: connection refused"))
		assert.False(t, run.OK())
		assert.Equal(t, "service check: connection refused", run.Error)
		assert.Empty(t, run.Checks)
		assert.Empty(t, run.ReportFile, "no report is written without checks")
	})

	t.Run("success", func(t *testing.T) {
		ok := &runner.Report{Results: []runner.Result{{Name: "LoginLogout", Passed: true}}}
		run := notifyRun(cfg, ok, nil)
		assert.True(t, run.OK())
		assert.Equal(t, "http://localhost:8081", run.BaseURL)
		assert.Equal(t, "chromium", run.Browser)
	})
}

type checkerFunc func(ctx context.Context) (bool, error)

func (f checkerFunc) Enabled(ctx context.Context) (bool, error) { return f(ctx) }

func TestWaitReady(t *testing.T) {
	t.Run("ready after retries", func(t *testing.T) {
		var calls atomic.Int32
		p := checkerFunc(func(context.Context) (bool, error) {
			if calls.Add(1) < 3 {
				return false, errors.New("connection refused")
			}
			return false, nil
		})
		require.NoError(t, waitReady(context.Background(), p, 5*time.Second, make(chan error)))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("timeout", func(t *testing.T) {
		p := checkerFunc(func(context.Context) (bool, error) { return false, errors.New("connection refused") })
		err := waitReady(context.Background(), p, 300*time.Millisecond, make(chan error))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready")
	})

	t.Run("server failed", func(t *testing.T) {
		srvErr := make(chan error, 1)
		srvErr <- errors.New("address already in use")
		p := checkerFunc(func(context.Context) (bool, error) { return false, errors.New("connection refused") })
		err := waitReady(context.Background(), p, 5*time.Second, srvErr)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "address already in use")
	})
}

func TestPrintReport(t *testing.T) {
	report := &runner.Report{BaseURL: "http://localhost:8081", Browser: "chromium",
		Results: []runner.Result{{Name: "LoginLogout", Passed: true}}}

	path := filepath.Join(t.TempDir(), "reports", "gqlcheck.md")
	require.NoError(t, printReport(report, path, true))

	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(t, report.Markdown(), string(data))
}
