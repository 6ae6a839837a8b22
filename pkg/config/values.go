package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/umputun/gqlcheck/pkg/notify"
)

// Values holds scalar configuration values.
// Fields ending in *Set (e.g., HeadlessSet) track whether that field was explicitly
// set in config. This allows distinguishing explicit false/0 from "not set", enabling
// proper merge behavior where local config can override global config with zero values.
type Values struct {
	BaseURL          string
	LoginEmail       string
	Browser          string // chromium, firefox or webkit
	Headless         bool
	HeadlessSet      bool // tracks if headless was explicitly set
	SlowMoMs         int
	SlowMoMsSet      bool // tracks if slow_mo_ms was explicitly set
	TimeoutMs        int
	TimeoutMsSet     bool // tracks if timeout_ms was explicitly set
	InstallDriver    bool
	InstallDriverSet bool // tracks if install_driver was explicitly set
	ScreenshotDir    string
	ReportFile       string
	StubPort         int
	StubPortSet      bool // tracks if stub_port was explicitly set
	StubSettingsFile string

	Notify              notify.Params
	NotifyOnErrorSet    bool // tracks if notify_on_error was explicitly set
	NotifyOnCompleteSet bool // tracks if notify_on_complete was explicitly set
	NotifyTimeoutMsSet  bool // tracks if notify_timeout_ms was explicitly set
	NotifySMTPPortSet   bool // tracks if notify_smtp_port was explicitly set
	NotifyStartTLSSet   bool // tracks if notify_smtp_starttls was explicitly set
}

// valuesLoader loads Values with embedded filesystem fallback.
type valuesLoader struct {
	embedFS embed.FS
}

// newValuesLoader creates a new valuesLoader with the given embedded filesystem.
func newValuesLoader(embedFS embed.FS) *valuesLoader {
	return &valuesLoader{embedFS: embedFS}
}

// Load loads values from config files with fallback chain: local → global → embedded.
// localConfigPath and globalConfigPath are full paths to config files (not directories).
//
//nolint:dupl // intentional structural similarity with colorLoader.Load
func (vl *valuesLoader) Load(localConfigPath, globalConfigPath string) (Values, error) {
	// start with embedded defaults
	embedded, err := vl.parseValuesFromEmbedded()
	if err != nil {
		return Values{}, fmt.Errorf("parse embedded defaults: %w", err)
	}

	global, err := vl.parseValuesFromFile(globalConfigPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse global config: %w", err)
	}

	local, err := vl.parseValuesFromFile(localConfigPath)
	if err != nil {
		return Values{}, fmt.Errorf("parse local config: %w", err)
	}

	// merge: embedded → global → local (local wins)
	result := embedded
	result.mergeFrom(&global)
	result.mergeFrom(&local)

	return result, nil
}

// parseValuesFromFile reads a config file and parses it into Values.
// returns empty Values (not error) if file doesn't exist or contains only comments/whitespace.
func (vl *valuesLoader) parseValuesFromFile(path string) (Values, error) {
	if path == "" {
		return Values{}, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return Values{}, nil
		}
		return Values{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.TrimSpace(stripComments(string(data))) == "" {
		return Values{}, nil
	}

	return vl.parseValuesFromBytes(data)
}

// parseValuesFromEmbedded parses values from the embedded defaults/config file.
func (vl *valuesLoader) parseValuesFromEmbedded() (Values, error) {
	data, err := vl.embedFS.ReadFile("defaults/config")
	if err != nil {
		return Values{}, fmt.Errorf("read embedded defaults: %w", err)
	}
	return vl.parseValuesFromBytes(data)
}

// parseValuesFromBytes parses configuration from a byte slice into Values.
//
//nolint:gocyclo // flat list of keys, splitting would hurt readability
func (vl *valuesLoader) parseValuesFromBytes(data []byte) (Values, error) {
	// ignoreInlineComment: true prevents # from being treated as inline comment marker (colors use #)
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return Values{}, fmt.Errorf("parse config: %w", err)
	}

	var values Values
	section := cfg.Section("")

	// target
	if key, err := section.GetKey("base_url"); err == nil {
		values.BaseURL = strings.TrimRight(strings.TrimSpace(key.String()), "/")
	}
	if key, err := section.GetKey("login_email"); err == nil {
		values.LoginEmail = strings.TrimSpace(key.String())
	}

	// browser
	if key, err := section.GetKey("browser"); err == nil {
		val := strings.ToLower(strings.TrimSpace(key.String()))
		switch val {
		case "", "chromium", "firefox", "webkit":
			values.Browser = val
		default:
			return Values{}, fmt.Errorf("invalid browser: %q, must be chromium, firefox or webkit", val)
		}
	}
	if values.Headless, values.HeadlessSet, err = boolKey(section, "headless"); err != nil {
		return Values{}, err
	}
	if values.SlowMoMs, values.SlowMoMsSet, err = nonNegativeIntKey(section, "slow_mo_ms"); err != nil {
		return Values{}, err
	}
	if values.TimeoutMs, values.TimeoutMsSet, err = nonNegativeIntKey(section, "timeout_ms"); err != nil {
		return Values{}, err
	}
	if values.InstallDriver, values.InstallDriverSet, err = boolKey(section, "install_driver"); err != nil {
		return Values{}, err
	}

	// output
	if key, err := section.GetKey("screenshot_dir"); err == nil {
		values.ScreenshotDir = strings.TrimSpace(key.String())
	}
	if key, err := section.GetKey("report_file"); err == nil {
		values.ReportFile = strings.TrimSpace(key.String())
	}

	// stub server
	if values.StubPort, values.StubPortSet, err = nonNegativeIntKey(section, "stub_port"); err != nil {
		return Values{}, err
	}
	if values.StubPort > 65535 {
		return Values{}, fmt.Errorf("invalid stub_port: must be at most 65535, got %d", values.StubPort)
	}
	if key, err := section.GetKey("stub_settings_file"); err == nil {
		values.StubSettingsFile = strings.TrimSpace(key.String())
	}

	if err := vl.parseNotify(section, &values); err != nil {
		return Values{}, err
	}

	return values, nil
}

// parseNotify fills notification params from notify_* keys.
func (vl *valuesLoader) parseNotify(section *ini.Section, values *Values) (err error) {
	values.Notify.Channels = listKey(section, "notify_channels")
	if values.Notify.OnError, values.NotifyOnErrorSet, err = boolKey(section, "notify_on_error"); err != nil {
		return err
	}
	if values.Notify.OnComplete, values.NotifyOnCompleteSet, err = boolKey(section, "notify_on_complete"); err != nil {
		return err
	}
	if values.Notify.TimeoutMs, values.NotifyTimeoutMsSet, err = nonNegativeIntKey(section, "notify_timeout_ms"); err != nil {
		return err
	}

	strKeys := []struct {
		key   string
		field *string
	}{
		{"notify_telegram_token", &values.Notify.TelegramToken},
		{"notify_telegram_chat", &values.Notify.TelegramChat},
		{"notify_slack_token", &values.Notify.SlackToken},
		{"notify_slack_channel", &values.Notify.SlackChannel},
		{"notify_smtp_host", &values.Notify.SMTPHost},
		{"notify_smtp_username", &values.Notify.SMTPUsername},
		{"notify_smtp_password", &values.Notify.SMTPPassword},
		{"notify_email_from", &values.Notify.EmailFrom},
		{"notify_custom_script", &values.Notify.CustomScript},
	}
	for _, sk := range strKeys {
		if key, keyErr := section.GetKey(sk.key); keyErr == nil {
			*sk.field = strings.TrimSpace(key.String())
		}
	}

	if values.Notify.SMTPPort, values.NotifySMTPPortSet, err = nonNegativeIntKey(section, "notify_smtp_port"); err != nil {
		return err
	}
	if values.Notify.SMTPStartTLS, values.NotifyStartTLSSet, err = boolKey(section, "notify_smtp_starttls"); err != nil {
		return err
	}
	values.Notify.EmailTo = listKey(section, "notify_email_to")
	values.Notify.WebhookURLs = listKey(section, "notify_webhook_urls")
	return nil
}

// boolKey reads a boolean key. set is false when the key is missing or empty.
func boolKey(section *ini.Section, name string) (val, set bool, err error) {
	key, keyErr := section.GetKey(name)
	if keyErr != nil || strings.TrimSpace(key.String()) == "" {
		return false, false, nil
	}
	val, err = key.Bool()
	if err != nil {
		return false, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return val, true, nil
}

// nonNegativeIntKey reads an integer key that must be >= 0. set is false when the key is missing or empty.
func nonNegativeIntKey(section *ini.Section, name string) (val int, set bool, err error) {
	key, keyErr := section.GetKey(name)
	if keyErr != nil || strings.TrimSpace(key.String()) == "" {
		return 0, false, nil
	}
	val, err = key.Int()
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	if val < 0 {
		return 0, false, fmt.Errorf("invalid %s: must be non-negative, got %d", name, val)
	}
	return val, true, nil
}

// listKey reads a comma-separated key, dropping empty items.
func listKey(section *ini.Section, name string) []string {
	key, err := section.GetKey(name)
	if err != nil {
		return nil
	}
	var res []string
	for p := range strings.SplitSeq(key.String(), ",") {
		if t := strings.TrimSpace(p); t != "" {
			res = append(res, t)
		}
	}
	return res
}

// mergeFrom merges non-empty values from src into dst.
//
//nolint:gocyclo // one branch per field
func (dst *Values) mergeFrom(src *Values) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.LoginEmail != "" {
		dst.LoginEmail = src.LoginEmail
	}
	if src.Browser != "" {
		dst.Browser = src.Browser
	}
	if src.HeadlessSet {
		dst.Headless = src.Headless
		dst.HeadlessSet = true
	}
	if src.SlowMoMsSet {
		dst.SlowMoMs = src.SlowMoMs
		dst.SlowMoMsSet = true
	}
	if src.TimeoutMsSet {
		dst.TimeoutMs = src.TimeoutMs
		dst.TimeoutMsSet = true
	}
	if src.InstallDriverSet {
		dst.InstallDriver = src.InstallDriver
		dst.InstallDriverSet = true
	}
	if src.ScreenshotDir != "" {
		dst.ScreenshotDir = src.ScreenshotDir
	}
	if src.ReportFile != "" {
		dst.ReportFile = src.ReportFile
	}
	if src.StubPortSet {
		dst.StubPort = src.StubPort
		dst.StubPortSet = true
	}
	if src.StubSettingsFile != "" {
		dst.StubSettingsFile = src.StubSettingsFile
	}
	dst.mergeNotifyFrom(src)
}

// mergeNotifyFrom merges notification params from src into dst.
func (dst *Values) mergeNotifyFrom(src *Values) {
	if len(src.Notify.Channels) > 0 {
		dst.Notify.Channels = src.Notify.Channels
	}
	if src.NotifyOnErrorSet {
		dst.Notify.OnError = src.Notify.OnError
		dst.NotifyOnErrorSet = true
	}
	if src.NotifyOnCompleteSet {
		dst.Notify.OnComplete = src.Notify.OnComplete
		dst.NotifyOnCompleteSet = true
	}
	if src.NotifyTimeoutMsSet {
		dst.Notify.TimeoutMs = src.Notify.TimeoutMs
		dst.NotifyTimeoutMsSet = true
	}
	if src.NotifySMTPPortSet {
		dst.Notify.SMTPPort = src.Notify.SMTPPort
		dst.NotifySMTPPortSet = true
	}
	if src.NotifyStartTLSSet {
		dst.Notify.SMTPStartTLS = src.Notify.SMTPStartTLS
		dst.NotifyStartTLSSet = true
	}

	strFields := []struct{ dst, src *string }{
		{&dst.Notify.TelegramToken, &src.Notify.TelegramToken},
		{&dst.Notify.TelegramChat, &src.Notify.TelegramChat},
		{&dst.Notify.SlackToken, &src.Notify.SlackToken},
		{&dst.Notify.SlackChannel, &src.Notify.SlackChannel},
		{&dst.Notify.SMTPHost, &src.Notify.SMTPHost},
		{&dst.Notify.SMTPUsername, &src.Notify.SMTPUsername},
		{&dst.Notify.SMTPPassword, &src.Notify.SMTPPassword},
		{&dst.Notify.EmailFrom, &src.Notify.EmailFrom},
		{&dst.Notify.CustomScript, &src.Notify.CustomScript},
	}
	for _, f := range strFields {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}

	if len(src.Notify.EmailTo) > 0 {
		dst.Notify.EmailTo = src.Notify.EmailTo
	}
	if len(src.Notify.WebhookURLs) > 0 {
		dst.Notify.WebhookURLs = src.Notify.WebhookURLs
	}
}

// stripComments removes lines starting with # (comment lines) from content.
// empty lines are preserved, inline comments are not supported.
// handles both Unix (LF) and Windows (CRLF) line endings.
func stripComments(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	lines := make([]string, 0, strings.Count(content, "\n")+1)
	for line := range strings.SplitSeq(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
