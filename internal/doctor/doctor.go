package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"borgsched/internal/config"
	"borgsched/internal/engine"
	"borgsched/internal/lock"
	"borgsched/internal/secret"
)

type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Run performs the preflight checks an operator wants before trusting
// the daemon with a schedule: engine present, secrets resolvable with
// safe permissions, lock directory writable.
func Run(ctx context.Context, snap *config.Snapshot) []CheckResult {
	var results []CheckResult

	results = append(results, checkEngine(ctx, snap.Settings.EnginePath))
	results = append(results, checkLockDir())

	resolver := secret.FileResolver{}
	seen := make(map[string]bool)
	for _, job := range snap.Jobs {
		for _, repo := range job.Repositories {
			if seen[repo.Name] {
				continue
			}
			seen[repo.Name] = true
			results = append(results, checkRepository(resolver, repo))
		}
	}
	if len(seen) == 0 {
		results = append(results, CheckResult{Name: "repositories", OK: false, Detail: "no repositories referenced by any job"})
	}

	return results
}

func checkEngine(ctx context.Context, path string) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	version, err := engine.Version(ctx, path)
	if err != nil {
		return CheckResult{Name: "engine", OK: false, Detail: err.Error()}
	}
	return CheckResult{Name: "engine", OK: true, Detail: version}
}

func checkLockDir() CheckResult {
	dir := lock.DefaultLockDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return CheckResult{Name: "lock dir", OK: false, Detail: fmt.Sprintf("create %s: %v", dir, err)}
	}
	probe := filepath.Join(dir, ".doctor")
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		return CheckResult{Name: "lock dir", OK: false, Detail: fmt.Sprintf("%s not writable: %v", dir, err)}
	}
	os.Remove(probe)
	return CheckResult{Name: "lock dir", OK: true, Detail: dir + " writable"}
}

func checkRepository(resolver secret.Resolver, repo *config.Repository) CheckResult {
	name := "repository " + repo.Name
	if _, err := resolver.Resolve(repo); err != nil {
		return CheckResult{Name: name, OK: false, Detail: err.Error()}
	}
	return CheckResult{Name: name, OK: true, Detail: "credentials resolvable"}
}
