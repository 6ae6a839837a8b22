// Package notify reports finished check runs to telegram, email, slack, webhooks or a custom script.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"os"
	"strings"
	"time"

	ntfy "github.com/go-pkgz/notify"
)

// Params holds configuration for creating a notification Service.
// Embedded directly in config.Values, no intermediate mapping needed.
type Params struct {
	Channels      []string
	OnError       bool // notify about runs with failed checks or aborted runs
	OnComplete    bool // notify about runs where every check passed
	TimeoutMs     int
	TelegramToken string
	TelegramChat  string
	SlackToken    string
	SlackChannel  string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPStartTLS  bool
	EmailFrom     string
	EmailTo       []string
	WebhookURLs   []string
	CustomScript  string
}

// Check is the outcome of one check.
type Check struct {
	Name       string        `json:"name"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	Failures   []string      `json:"failures,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
}

// Run is a finished check run.
type Run struct {
	BaseURL    string        `json:"base_url"`
	Browser    string        `json:"browser"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration_ns"`
	Checks     []Check       `json:"checks"`
	ReportFile string        `json:"report_file,omitempty"`
	Error      string        `json:"error,omitempty"` // set when the run stopped before or between checks
}

// Failed returns the failed checks in run order.
func (r Run) Failed() []Check {
	var res []Check
	for _, c := range r.Checks {
		if !c.Passed {
			res = append(res, c)
		}
	}
	return res
}

// OK reports whether the run finished and every check passed.
func (r Run) OK() bool {
	return r.Error == "" && len(r.Failed()) == 0
}

// Summary is the one-line outcome, used as the message header and email subject.
func (r Run) Summary() string {
	failed := len(r.Failed())
	switch {
	case r.Error != "":
		return "gqlcheck aborted"
	case failed > 0:
		return fmt.Sprintf("gqlcheck: %d of %d checks failed", failed, len(r.Checks))
	default:
		return fmt.Sprintf("gqlcheck: all %d checks passed", len(r.Checks))
	}
}

// maxFailureLen caps each assertion message in notifications; diffs can be long.
const maxFailureLen = 400

// Service sends run notifications through the configured channels.
type Service struct {
	channels   []channel
	script     string // custom script, empty if not configured
	onError    bool
	onComplete bool
	timeout    time.Duration
	host       string // resolved once at creation via os.Hostname()
	log        logger
}

// channel is one destination of a notifier.
type channel struct {
	notifier ntfy.Notifier
	dest     string
	html     bool // telegram parse mode HTML
	subject  bool // dest takes the run summary as subject parameter
}

// logger interface for dependency injection.
type logger interface {
	Print(format string, args ...any)
}

// errUnavailable marks a channel which is configured but could not be reached on startup.
var errUnavailable = errors.New("channel unavailable")

// channelMakers build channels by name from Params.
var channelMakers = map[string]func(p Params) ([]channel, error){
	"telegram": makeTelegram,
	"email":    makeEmail,
	"slack":    makeSlack,
	"webhook":  makeWebhooks,
}

// New creates a Service from p. returns nil, nil when no channels are configured, Send is nil-safe.
// misconfigured channels are an error; a telegram bot that can't be reached is logged and skipped.
func New(p Params, log logger) (*Service, error) {
	if len(p.Channels) == 0 {
		return nil, nil //nolint:nilnil // nil,nil signals "no channels configured", callers use nil-safe Send
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	svc := &Service{
		onError:    p.OnError,
		onComplete: p.OnComplete,
		timeout:    time.Duration(p.TimeoutMs) * time.Millisecond,
		host:       host,
		log:        log,
	}
	if svc.timeout <= 0 {
		svc.timeout = 10 * time.Second
	}

	for _, name := range p.Channels {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "custom" {
			if p.CustomScript == "" {
				return nil, errors.New("custom channel: notify_custom_script is required")
			}
			svc.script = p.CustomScript
			continue
		}
		maker, ok := channelMakers[name]
		if !ok {
			return nil, fmt.Errorf("unknown notification channel: %q", name)
		}
		chs, err := maker(p)
		if errors.Is(err, errUnavailable) {
			log.Print("[WARN] %s channel disabled: %v", name, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", name, err)
		}
		svc.channels = append(svc.channels, chs...)
	}

	if len(svc.channels) == 0 && svc.script == "" {
		log.Print("[WARN] all notification channels were disabled due to initialization errors")
	}
	return svc, nil
}

// Send reports r if the OnError/OnComplete filters select it. nil-safe.
// delivery errors are logged, never returned.
func (s *Service) Send(ctx context.Context, r Run) {
	if s == nil || !s.wants(r) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	plain := s.message(r, false)
	for _, ch := range s.channels {
		text, dest := plain, ch.dest
		if ch.html {
			text = s.message(r, true)
		}
		if ch.subject {
			dest += "&subject=" + url.QueryEscape(r.Summary())
		}
		if err := ch.notifier.Send(ctx, dest, text); err != nil {
			s.log.Print("[WARN] notification failed for %s: %v", ch.notifier, err)
		}
	}

	if s.script != "" {
		if err := runScript(ctx, s.script, newScriptPayload(r, s.host)); err != nil {
			s.log.Print("[WARN] custom notification failed: %v", err)
		}
	}
}

func (s *Service) wants(r Run) bool {
	if r.OK() {
		return s.onComplete
	}
	return s.onError
}

// message formats r for a channel. with asHTML the content is escaped and the header bold.
func (s *Service) message(r Run, asHTML bool) string {
	esc := func(v string) string { return v }
	if asHTML {
		esc = html.EscapeString
	}

	var b strings.Builder
	header := fmt.Sprintf("%s on %s", r.Summary(), s.host)
	if asHTML {
		fmt.Fprintf(&b, "<b>%s</b>\n\n", esc(header))
	} else {
		fmt.Fprintf(&b, "%s\n\n", header)
	}

	line := func(label, val string) {
		if val != "" {
			fmt.Fprintf(&b, "%-9s %s\n", label+":", esc(val))
		}
	}
	line("target", r.BaseURL)
	line("browser", r.Browser)
	if r.Duration > 0 {
		line("duration", r.Duration.Round(time.Second).String())
	}
	line("report", r.ReportFile)
	line("error", r.Error)

	var passed []string
	for _, c := range r.Checks {
		if c.Passed {
			passed = append(passed, c.Name)
			continue
		}
		fmt.Fprintf(&b, "\nFAILED %s (%s)\n", esc(c.Name), c.Duration.Round(time.Millisecond))
		for _, f := range c.Failures {
			fmt.Fprintf(&b, "  - %s\n", esc(truncate(oneLine(f), maxFailureLen)))
		}
		if c.Screenshot != "" {
			fmt.Fprintf(&b, "  screenshot: %s\n", esc(c.Screenshot))
		}
	}
	if len(passed) > 0 {
		fmt.Fprintf(&b, "\npassed: %s\n", esc(strings.Join(passed, ", ")))
	}
	return b.String()
}

// oneLine collapses the lines of a multi-line assertion message.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// newTelegram is replaced in tests, the real constructor verifies the token with a live api call.
var newTelegram = func(p ntfy.TelegramParams) (ntfy.Notifier, error) {
	tg, err := ntfy.NewTelegram(p)
	if err != nil {
		return nil, err
	}
	return tg, nil
}

func makeTelegram(p Params) ([]channel, error) {
	if p.TelegramToken == "" {
		return nil, errors.New("notify_telegram_token is required")
	}
	if p.TelegramChat == "" {
		return nil, errors.New("notify_telegram_chat is required")
	}
	tg, err := newTelegram(ntfy.TelegramParams{Token: p.TelegramToken})
	if err != nil {
		// the token is part of the api url, keep it out of logs
		return nil, fmt.Errorf("%w: %s", errUnavailable, strings.ReplaceAll(err.Error(), p.TelegramToken, "[REDACTED]"))
	}
	return []channel{{notifier: tg, dest: fmt.Sprintf("telegram:%s?parseMode=HTML", p.TelegramChat), html: true}}, nil
}

func makeEmail(p Params) ([]channel, error) {
	switch {
	case p.SMTPHost == "":
		return nil, errors.New("notify_smtp_host is required")
	case p.EmailFrom == "":
		return nil, errors.New("notify_email_from is required")
	case len(p.EmailTo) == 0:
		return nil, errors.New("notify_email_to is required")
	}
	em := ntfy.NewEmail(ntfy.SMTPParams{
		Host:     p.SMTPHost,
		Port:     p.SMTPPort,
		Username: p.SMTPUsername,
		Password: p.SMTPPassword,
		StartTLS: p.SMTPStartTLS,
	})
	dest := fmt.Sprintf("mailto:%s?from=%s", strings.Join(p.EmailTo, ","), url.QueryEscape(p.EmailFrom))
	return []channel{{notifier: em, dest: dest, subject: true}}, nil
}

func makeSlack(p Params) ([]channel, error) {
	if p.SlackToken == "" {
		return nil, errors.New("notify_slack_token is required")
	}
	if p.SlackChannel == "" {
		return nil, errors.New("notify_slack_channel is required")
	}
	return []channel{{notifier: ntfy.NewSlack(p.SlackToken), dest: "slack:" + p.SlackChannel}}, nil
}

func makeWebhooks(p Params) ([]channel, error) {
	if len(p.WebhookURLs) == 0 {
		return nil, errors.New("notify_webhook_urls is required")
	}
	wh := ntfy.NewWebhook(ntfy.WebhookParams{})
	res := make([]channel, 0, len(p.WebhookURLs))
	for _, u := range p.WebhookURLs {
		res = append(res, channel{notifier: wh, dest: u})
	}
	return res, nil
}
