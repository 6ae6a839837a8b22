package runner

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one check.
type Result struct {
	Name       string
	Passed     bool
	Duration   time.Duration
	Failures   []string // assertion messages, setup and teardown ones prefixed by the stage
	Screenshot string   // path of the failure screenshot, if taken
}

// Report is the outcome of a run.
type Report struct {
	BaseURL  string
	Browser  string
	Started  time.Time
	Duration time.Duration
	Results  []Result
}

// Passed returns the number of passed checks.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Failed returns the number of failed checks.
func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// FailedNames returns names of failed checks in run order.
func (r *Report) FailedNames() []string {
	var res []string
	for _, c := range r.Results {
		if !c.Passed {
			res = append(res, c.Name)
		}
	}
	return res
}

// Markdown formats the report as a markdown document.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# gqlcheck report\n\n")
	fmt.Fprintf(&sb, "- target: `%s`\n", r.BaseURL)
	fmt.Fprintf(&sb, "- browser: %s\n", r.Browser)
	fmt.Fprintf(&sb, "- started: %s\n", r.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "- duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "- result: %d passed, %d failed\n\n", r.Passed(), r.Failed())

	sb.WriteString("| check | result | duration |\n")
	sb.WriteString("|-------|--------|----------|\n")
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "**FAIL**"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", res.Name, status, res.Duration.Round(time.Millisecond))
	}

	for _, res := range r.Results {
		if res.Passed {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", res.Name)
		if res.Screenshot != "" {
			fmt.Fprintf(&sb, "screenshot: `%s`\n\n", res.Screenshot)
		}
		sb.WriteString("```text\n")
		for _, f := range res.Failures {
			sb.WriteString(f)
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}
	return sb.String()
}
