package progress

import (
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/umputun/gqlcheck/pkg/config"
)

// Colors holds the console colors used by the logger, one per phase and message kind.
type Colors struct {
	setup     *color.Color
	check     *color.Color
	teardown  *color.Color
	pass      *color.Color
	fail      *color.Color
	warn      *color.Color
	err       *color.Color
	timestamp *color.Color
	info      *color.Color
}

// NewColors creates Colors from "r,g,b" config values. unparsable or empty values
// fall back to basic terminal colors.
func NewColors(cfg config.ColorConfig) *Colors {
	return &Colors{
		setup:     rgbOr(cfg.Setup, color.FgCyan),
		check:     rgbOr(cfg.Check, color.FgGreen),
		teardown:  rgbOr(cfg.Teardown, color.FgMagenta),
		pass:      rgbOr(cfg.Pass, color.FgGreen),
		fail:      rgbOr(cfg.Fail, color.FgRed),
		warn:      rgbOr(cfg.Warn, color.FgYellow),
		err:       rgbOr(cfg.Error, color.FgRed),
		timestamp: rgbOr(cfg.Timestamp, color.FgWhite),
		info:      rgbOr(cfg.Info, color.FgWhite),
	}
}

// Info returns the color for informational messages.
func (c *Colors) Info() *color.Color { return c.info }

// Warn returns the color for warnings.
func (c *Colors) Warn() *color.Color { return c.warn }

// Error returns the color for errors.
func (c *Colors) Error() *color.Color { return c.err }

// Pass returns the color for passed checks.
func (c *Colors) Pass() *color.Color { return c.pass }

// Fail returns the color for failed checks.
func (c *Colors) Fail() *color.Color { return c.fail }

// ForPhase returns the color for the given phase.
func (c *Colors) ForPhase(p Phase) *color.Color {
	switch p {
	case PhaseSetup:
		return c.setup
	case PhaseTeardown:
		return c.teardown
	default:
		return c.check
	}
}

func rgbOr(rgb string, fallback color.Attribute) *color.Color {
	parts := strings.Split(rgb, ",")
	if len(parts) != 3 {
		return color.New(fallback)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return color.New(fallback)
		}
		vals[i] = v
	}
	return color.RGB(vals[0], vals[1], vals[2])
}
