package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// scriptPayload is the json document a custom script reads from stdin.
type scriptPayload struct {
	Status   string `json:"status"` // "success", "failure" or "aborted"
	Summary  string `json:"summary"`
	Host     string `json:"host"`
	Duration string `json:"duration"`
	Passed   int    `json:"passed"`
	Failed   int    `json:"failed"`
	Run
}

func newScriptPayload(r Run, host string) scriptPayload {
	failed := len(r.Failed())
	status := "success"
	switch {
	case r.Error != "":
		status = "aborted"
	case failed > 0:
		status = "failure"
	}
	return scriptPayload{
		Status:   status,
		Summary:  r.Summary(),
		Host:     host,
		Duration: r.Duration.Round(time.Second).String(),
		Passed:   len(r.Checks) - failed,
		Failed:   failed,
		Run:      r,
	}
}

// runScript pipes payload as json to the script's stdin. script output is attached to the
// returned error when the script fails.
func runScript(ctx context.Context, path string, payload scriptPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, path) //nolint:gosec // path comes from user config, not user input
	cmd.Stdin = bytes.NewReader(data)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err = cmd.Run(); err != nil {
		if out := strings.TrimSpace(output.String()); out != "" {
			return fmt.Errorf("script %s: %w, output: %s", path, err, out)
		}
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}
