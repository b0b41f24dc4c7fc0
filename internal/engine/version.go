package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version runs `<engine> --version` as a preflight check. Failing here
// means the engine binary is missing or broken; the daemon refuses to
// start rather than discover that on the first scheduled run.
func Version(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = "borg"
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("engine binary %q not found: %w", path, err)
	}
	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("engine version check: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
