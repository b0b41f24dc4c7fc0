package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"borgsched/internal/config"
)

// runHook executes a hook command through the shell with a timeout.
// Output is captured small: hooks report through their exit status,
// the tail is only for the failure message.
func runHook(ctx context.Context, command string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = config.DefaultHookTimeout
	}
	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(hookCtx, "/bin/sh", "-c", command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if hookCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("hook timed out after %s", timeout)
	}
	tail := lastLine(out.String())
	if tail != "" {
		return fmt.Errorf("hook failed: %w: %s", err, tail)
	}
	return fmt.Errorf("hook failed: %w", err)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
