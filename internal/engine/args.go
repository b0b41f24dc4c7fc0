package engine

import (
	"strconv"

	"borgsched/internal/config"
)

// ArchiveGlob returns the pattern matching this host's archives, so
// prune and check never touch archives written by another machine
// sharing the repository.
func ArchiveGlob(hostname string) string {
	return hostname + "-*"
}

// CreateArgs assembles the argument list for a create run. The
// archive name is {hostname}-{now} resolved by the engine itself.
func CreateArgs(job *config.Job, hostname string, dryRun, verbose bool) []string {
	args := []string{
		"--filter", "AMEds",
		"--list",
		"--stats",
		"--show-rc",
		"--compression", "zstd",
		"--exclude-caches",
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	if verbose {
		args = append(args, "--verbose")
	}
	for _, ex := range job.Exclude {
		args = append(args, "--exclude", ex)
	}
	args = append(args, job.CreateArgs...)
	args = append(args, "::"+hostname+"-{now}")
	args = append(args, job.Sources...)
	return args
}

func PruneArgs(job *config.Job, hostname string, dryRun, verbose bool) []string {
	r := job.Retention
	args := []string{
		"--list",
		"--glob-archives", ArchiveGlob(hostname),
		"--show-rc",
		"--keep-daily", strconv.Itoa(r.KeepDaily),
		"--keep-weekly", strconv.Itoa(r.KeepWeekly),
		"--keep-monthly", strconv.Itoa(r.KeepMonthly),
		"--keep-yearly", strconv.Itoa(r.KeepYearly),
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return append(args, job.PruneArgs...)
}

func CheckArgs(job *config.Job, hostname string, verbose bool) []string {
	args := []string{
		"--glob-archives", ArchiveGlob(hostname),
	}
	if verbose {
		args = append(args, "--verbose")
	}
	return append(args, job.CheckArgs...)
}
