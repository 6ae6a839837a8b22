// Package browser manages the playwright driver, the browser process and isolated pages.
package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ErrUnknownBrowser is returned for an engine name other than chromium, firefox or webkit.
var ErrUnknownBrowser = errors.New("unknown browser")

// Params configures a Session.
type Params struct {
	Engine        string        // chromium, firefox or webkit, chromium if empty
	Headless      bool          // run without a window
	SlowMo        time.Duration // delay between driver operations, for visual observation
	Timeout       time.Duration // default timeout for page operations, playwright default if zero
	Install       bool          // install driver and browser before launching
	ScreenshotDir string        // directory for failure screenshots, screenshots disabled if empty
}

// Session holds a running playwright driver and one launched browser.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	params  Params
}

// Start launches the driver and the browser.
func Start(params Params) (*Session, error) {
	if params.Engine == "" {
		params.Engine = "chromium"
	}

	if params.Install {
		opts := &playwright.RunOptions{Browsers: []string{params.Engine}}
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("run playwright: %w", err)
	}

	bt, err := browserType(pw, params.Engine)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	opts := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(params.Headless)}
	if params.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(params.SlowMo / time.Millisecond))
	}

	b, err := bt.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", params.Engine, err)
	}

	return &Session{pw: pw, browser: b, params: params}, nil
}

func browserType(pw *playwright.Playwright, engine string) (playwright.BrowserType, error) {
	switch engine {
	case "chromium":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBrowser, engine)
}

// NewPage creates a page in its own browser context, so cookies and storage are not shared
// between pages. the returned func closes both page and context.
func (s *Session) NewPage() (playwright.Page, func(), error) {
	ctx, err := s.browser.NewContext()
	if err != nil {
		return nil, nil, fmt.Errorf("create browser context: %w", err)
	}
	if s.params.Timeout > 0 {
		ctx.SetDefaultTimeout(float64(s.params.Timeout / time.Millisecond))
	}

	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		return nil, nil, fmt.Errorf("create page: %w", err)
	}

	closer := func() {
		_ = page.Close()
		_ = ctx.Close()
	}
	return page, closer, nil
}

// Screenshot saves a full page screenshot named after name into the screenshot dir and
// returns its path. returns empty path and nil error when screenshots are disabled.
func (s *Session) Screenshot(page playwright.Page, name string) (string, error) {
	if s.params.ScreenshotDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.params.ScreenshotDir, 0o750); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	path := filepath.Join(s.params.ScreenshotDir, ScreenshotName(name, time.Now()))
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", fmt.Errorf("screenshot %s: %w", name, err)
	}
	return path, nil
}

// Engine returns the launched browser engine name.
func (s *Session) Engine() string {
	return s.params.Engine
}

// Close shuts down the browser and the driver.
func (s *Session) Close() error {
	var errs []error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ScreenshotName makes a png file name from a check name and a timestamp.
func ScreenshotName(name string, ts time.Time) string {
	clean := strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-")
	if clean == "" {
		clean = "page"
	}
	return fmt.Sprintf("%s-%s.png", strings.ToLower(clean), ts.Format("20060102-150405"))
}
