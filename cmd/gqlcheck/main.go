// Package main provides gqlcheck - browser checks for the Course Builder GraphQL query page.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/umputun/gqlcheck/pkg/browser"
	"github.com/umputun/gqlcheck/pkg/config"
	"github.com/umputun/gqlcheck/pkg/gql"
	"github.com/umputun/gqlcheck/pkg/notify"
	"github.com/umputun/gqlcheck/pkg/progress"
	"github.com/umputun/gqlcheck/pkg/render"
	"github.com/umputun/gqlcheck/pkg/runner"
	"github.com/umputun/gqlcheck/pkg/web"
)

// opts holds all command-line options.
type opts struct {
	URL       string   `short:"u" long:"url" description:"application base url (default from config)"`
	Login     string   `short:"l" long:"login" description:"admin email used by the checks"`
	Browser   string   `short:"b" long:"browser" choice:"chromium" choice:"firefox" choice:"webkit" description:"browser engine"`
	Headed    bool     `long:"headed" description:"show the browser window"`
	Only      []string `long:"only" description:"run only the named check, repeatable"`
	Install   bool     `long:"install" description:"install the playwright driver and browser first"`
	Report    string   `long:"report" description:"write the markdown report to this file"`
	Serve     bool     `short:"s" long:"serve" description:"serve the stub course builder application"`
	Check     bool     `long:"check" description:"with --serve, run the checks against the stub and exit"`
	Port      int      `short:"p" long:"port" description:"stub server port (default from config)"`
	Settings  string   `long:"settings" description:"stub settings yaml file, in memory if empty"`
	ConfigDir string   `long:"config-dir" description:"global config directory"`
	Debug     bool     `short:"d" long:"debug" description:"enable debug logging"`
	NoColor   bool     `long:"no-color" description:"disable color output"`
	Version   bool     `short:"v" long:"version" description:"print version and exit"`
}

var revision = "unknown"

func main() {
	fmt.Printf("gqlcheck %s\n", revision)

	var o opts
	parser := flags.NewParser(&o, flags.Default)

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if o.Version {
		os.Exit(0)
	}

	restore := hideInterruptEcho()
	defer restore()

	// setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		restore()
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	cfg, err := config.Load(o.ConfigDir) // empty string uses default location
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOptions(cfg, o)

	colors := progress.NewColors(cfg.Colors)

	if !o.Serve {
		return runChecks(ctx, cfg, o, colors)
	}

	srv, err := newStubServer(cfg)
	if err != nil {
		return err
	}

	if !o.Check {
		colors.Info().Printf("stub server: http://localhost:%d\n", cfg.StubPort)
		return srv.Start(ctx)
	}

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start(srvCtx) }()

	cfg.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.StubPort)
	if err := waitReady(ctx, gql.NewClient(gql.ClientParams{BaseURL: cfg.BaseURL, Timeout: time.Second}), 10*time.Second, srvErr); err != nil {
		return err
	}
	return runChecks(ctx, cfg, o, colors)
}

// applyOptions overrides config values by explicitly given flags.
func applyOptions(cfg *config.Config, o opts) {
	if o.URL != "" {
		cfg.BaseURL = strings.TrimRight(o.URL, "/")
	}
	if o.Login != "" {
		cfg.LoginEmail = o.Login
	}
	if o.Browser != "" {
		cfg.Browser = o.Browser
	}
	if o.Headed {
		cfg.Headless = false
	}
	if o.Install {
		cfg.InstallDriver = true
	}
	if o.Report != "" {
		cfg.ReportFile = o.Report
	}
	if o.Port != 0 {
		cfg.StubPort = o.Port
	}
	if o.Settings != "" {
		cfg.StubSettingsFile = o.Settings
	}
}

func newStubServer(cfg *config.Config) (*web.Server, error) {
	settings, err := web.NewSettings(cfg.StubSettingsFile, web.DefaultProperties()...)
	if err != nil {
		return nil, fmt.Errorf("load stub settings: %w", err)
	}
	return web.NewServer(web.ServerConfig{
		Port:        cfg.StubPort,
		CourseTitle: "Power Searching with Google",
		LoginEmail:  cfg.LoginEmail,
	}, settings, web.SampleCatalog()), nil
}

// serviceChecker is the part of gql.Client used to wait for the stub server.
type serviceChecker interface {
	Enabled(ctx context.Context) (bool, error)
}

// waitReady polls p until the server answers, it fails, or timeout passes.
func waitReady(ctx context.Context, p serviceChecker, timeout time.Duration, srvErr <-chan error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("stub server not ready after %v", timeout)
		case err := <-srvErr:
			if err == nil {
				return errors.New("stub server stopped")
			}
			return fmt.Errorf("stub server: %w", err)
		case <-ticker.C:
			if _, err := p.Enabled(ctx); err == nil {
				return nil
			}
		}
	}
}

func runChecks(ctx context.Context, cfg *config.Config, o opts, colors *progress.Colors) error {
	log, err := progress.NewLogger(progress.Config{
		BaseURL: cfg.BaseURL,
		Browser: cfg.Browser,
		NoColor: o.NoColor,
	}, colors)
	if err != nil {
		return fmt.Errorf("create progress logger: %w", err)
	}
	defer log.Close()

	notifier, err := notify.New(cfg.Notify, log)
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}

	colors.Info().Printf("checking %s with %s\n", cfg.BaseURL, cfg.Browser)
	colors.Info().Printf("progress log: %s\n\n", log.Path())

	session, err := browser.Start(browser.Params{
		Engine:        cfg.Browser,
		Headless:      cfg.Headless,
		SlowMo:        cfg.SlowMo(),
		Timeout:       cfg.Timeout(),
		Install:       cfg.InstallDriver,
		ScreenshotDir: cfg.ScreenshotDir,
	})
	if err != nil {
		log.Error("start browser: %v", err)
		notifier.Send(ctx, notifyRun(cfg, nil, err))
		return fmt.Errorf("start browser: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn("%v", closeErr)
		}
	}()

	service := gql.NewClient(gql.ClientParams{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout(), Debug: o.Debug})
	r := runner.New(runner.Config{BaseURL: cfg.BaseURL, Login: cfg.LoginEmail, Only: o.Only}, session, log, service)

	report, runErr := r.Run(ctx)
	if report != nil {
		if err := printReport(report, cfg.ReportFile, o.NoColor); err != nil {
			log.Warn("%v", err)
		}
	}

	notifier.Send(ctx, notifyRun(cfg, report, runErr))

	if runErr != nil {
		return runErr
	}
	colors.Info().Printf("\ncompleted in %s\n", log.Elapsed())
	return nil
}

// printReport renders the report to stdout and writes it to path when set.
func printReport(report *runner.Report, path string, noColor bool) error {
	md := report.Markdown()
	out, err := render.Markdown(md, render.Options{NoColor: noColor})
	if err != nil {
		out = md
	}
	fmt.Println(out)

	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(md), 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// notifyRun makes the notification payload of a run. report is nil when the run stopped before any check.
func notifyRun(cfg *config.Config, report *runner.Report, runErr error) notify.Run {
	run := notify.Run{BaseURL: cfg.BaseURL, Browser: cfg.Browser, ReportFile: cfg.ReportFile}
	if report != nil {
		run.Started, run.Duration = report.Started, report.Duration
		run.Checks = make([]notify.Check, 0, len(report.Results))
		for _, res := range report.Results {
			run.Checks = append(run.Checks, notify.Check{Name: res.Name, Passed: res.Passed, Duration: res.Duration,
				Failures: res.Failures, Screenshot: res.Screenshot})
		}
	} else {
		// nothing was written
		run.ReportFile = ""
	}
	if runErr != nil && !errors.Is(runErr, runner.ErrChecksFailed) {
		run.Error = runErr.Error()
	}
	return run
}
