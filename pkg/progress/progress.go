// Package progress provides timestamped logging to file and stdout with color support.
package progress

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/umputun/gqlcheck/pkg/config"
)

// Phase represents the check run stage, used for color coding.
type Phase string

// Phase constants for run stages.
const (
	PhaseSetup    Phase = "setup"    // enabling the service before a check
	PhaseCheck    Phase = "check"    // scenario steps
	PhaseTeardown Phase = "teardown" // disabling the service after a check
)

// Logger writes timestamped output to both file and stdout.
type Logger struct {
	file      *os.File
	stdout    io.Writer
	colors    *Colors
	startTime time.Time
	phase     Phase
}

// Config holds logger configuration.
type Config struct {
	Dir     string // directory for the progress file, current dir if empty
	BaseURL string // target application, also used to derive the progress filename
	Browser string // browser engine name
	NoColor bool   // disable color output (sets color.NoColor globally)
}

// NewLogger creates a logger writing to both a progress file and stdout.
// colors may be nil, basic terminal colors are used then.
func NewLogger(cfg Config, colors *Colors) (*Logger, error) {
	if cfg.NoColor {
		color.NoColor = true
	}
	if colors == nil {
		colors = NewColors(config.ColorConfig{})
	}

	progressPath := progressFilename(cfg.BaseURL)
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create progress dir: %w", err)
		}
		progressPath = filepath.Join(cfg.Dir, progressPath)
	}

	f, err := os.Create(progressPath) //nolint:gosec // path derived from base url
	if err != nil {
		return nil, fmt.Errorf("create progress file: %w", err)
	}

	l := &Logger{
		file:      f,
		stdout:    os.Stdout,
		colors:    colors,
		startTime: time.Now(),
		phase:     PhaseCheck,
	}

	target := cfg.BaseURL
	if target == "" {
		target = "(not set)"
	}
	l.writeFile("# gqlcheck Progress Log\n")
	l.writeFile("Target: %s\n", target)
	l.writeFile("Browser: %s\n", cfg.Browser)
	l.writeFile("Started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	l.writeFile("%s\n\n", strings.Repeat("-", 60))

	return l, nil
}

// Path returns the progress file path.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// SetPhase sets the current run phase for color coding.
func (l *Logger) SetPhase(phase Phase) {
	l.phase = phase
}

// timestampFormat is the format for timestamps: YY-MM-DD HH:MM:SS
const timestampFormat = "06-01-02 15:04:05"

// Print writes a timestamped message to both file and stdout.
func (l *Logger) Print(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.writeFile("[%s] %s\n", timestamp, msg)

	tsStr := l.colors.timestamp.Sprintf("[%s]", timestamp)
	msgStr := l.colors.ForPhase(l.phase).Sprint(msg)
	l.writeStdout("%s %s\n", tsStr, msgStr)
}

// PrintRaw writes without timestamp.
func (l *Logger) PrintRaw(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.writeFile("%s", msg)
	l.writeStdout("%s", msg)
}

// getTerminalWidth returns terminal width, using COLUMNS env var or syscall.
// Defaults to 80 if detection fails. Returns content width (total - 20 for timestamp).
func getTerminalWidth() int {
	const minWidth = 40

	if cols := os.Getenv("COLUMNS"); cols != "" {
		if w, err := strconv.Atoi(cols); err == nil && w > 0 {
			return max(w-20, minWidth)
		}
	}

	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return max(w-20, minWidth)
	}

	return 80 - 20
}

// wrapText wraps text to specified width, breaking on word boundaries.
func wrapText(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		wordLen := len(word)
		if i == 0 {
			result.WriteString(word)
			lineLen = wordLen
			continue
		}
		if lineLen+1+wordLen <= width {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wordLen
			continue
		}
		result.WriteString("\n")
		result.WriteString(word)
		lineLen = wordLen
	}

	return result.String()
}

// PrintAligned writes text with timestamp, handling multi-line content properly.
// the first line gets the timestamp, continuation lines are indented to align with it.
func (l *Logger) PrintAligned(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}

	timestamp := time.Now().Format(timestampFormat)
	phaseColor := l.colors.ForPhase(l.phase)
	tsPrefix := l.colors.timestamp.Sprintf("[%s]", timestamp)
	indent := strings.Repeat(" ", 20) // aligns with "[YY-MM-DD HH:MM:SS] "

	width := getTerminalWidth()
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if len(line) <= width {
			lines = append(lines, line)
			continue
		}
		for wrapped := range strings.SplitSeq(wrapText(line, width), "\n") {
			lines = append(lines, wrapped)
		}
	}

	for i, line := range lines {
		switch {
		case line == "":
			l.writeFile("\n")
			l.writeStdout("\n")
		case i == 0:
			l.writeFile("[%s] %s\n", timestamp, line)
			l.writeStdout("%s %s\n", tsPrefix, phaseColor.Sprint(line))
		default:
			l.writeFile("%s%s\n", indent, line)
			l.writeStdout("%s%s\n", indent, phaseColor.Sprint(line))
		}
	}
}

// Pass writes a passed check line.
func (l *Logger) Pass(format string, args ...any) {
	l.status("PASS", l.colors.pass, format, args...)
}

// Fail writes a failed check line.
func (l *Logger) Fail(format string, args ...any) {
	l.status("FAIL", l.colors.fail, format, args...)
}

// Error writes an error message.
func (l *Logger) Error(format string, args ...any) {
	l.status("ERROR", l.colors.err, format, args...)
}

// Warn writes a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.status("WARN", l.colors.warn, format, args...)
}

func (l *Logger) status(label string, c *color.Color, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format(timestampFormat)

	l.writeFile("[%s] %s: %s\n", timestamp, label, msg)

	tsStr := l.colors.timestamp.Sprintf("[%s]", timestamp)
	l.writeStdout("%s %s\n", tsStr, c.Sprintf("%s: %s", label, msg))
}

// Elapsed returns formatted elapsed time since start.
func (l *Logger) Elapsed() string {
	return humanize.RelTime(l.startTime, time.Now(), "", "")
}

// Close writes footer and closes the progress file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}

	l.writeFile("\n%s\n", strings.Repeat("-", 60))
	l.writeFile("Completed: %s (%s)\n", time.Now().Format("2006-01-02 15:04:05"), l.Elapsed())

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close progress file: %w", err)
	}
	return nil
}

func (l *Logger) writeFile(format string, args ...any) {
	if l.file != nil {
		fmt.Fprintf(l.file, format, args...)
	}
}

func (l *Logger) writeStdout(format string, args ...any) {
	fmt.Fprintf(l.stdout, format, args...)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]+`)

// progressFilename returns the progress file name for the target base url.
func progressFilename(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return "progress-gqlcheck.txt"
	}
	name := strings.Trim(unsafeNameChars.ReplaceAllString(u.Host, "-"), "-")
	return fmt.Sprintf("progress-gqlcheck-%s.txt", name)
}
