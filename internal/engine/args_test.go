package engine

import (
	"reflect"
	"strings"
	"testing"

	"borgsched/internal/config"
)

func argJob() *config.Job {
	return &config.Job{
		Name:      "db",
		Sources:   []string{"/var/lib/db", "/etc/db"},
		Exclude:   []string{"/var/lib/db/tmp"},
		Retention: config.RetentionConfig{KeepDaily: 7, KeepWeekly: 4, KeepMonthly: 2, KeepYearly: 1},
	}
}

func TestCreateArgs(t *testing.T) {
	args := CreateArgs(argJob(), "web01", false, false)

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--filter AMEds",
		"--stats",
		"--compression zstd",
		"--exclude-caches",
		"--exclude /var/lib/db/tmp",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("create args missing %q: %v", want, args)
		}
	}
	if strings.Contains(joined, "--dry-run") {
		t.Error("dry-run flag present without dry run")
	}

	// Archive spec comes right before the source paths.
	n := len(args)
	if args[n-3] != "::web01-{now}" {
		t.Errorf("archive spec = %q, want ::web01-{now}", args[n-3])
	}
	if args[n-2] != "/var/lib/db" || args[n-1] != "/etc/db" {
		t.Errorf("sources misplaced: %v", args[n-2:])
	}
}

func TestCreateArgs_DryRunAndPatches(t *testing.T) {
	job := argJob()
	job.CreateArgs = []string{"--comment", "nightly"}
	args := CreateArgs(job, "web01", true, true)

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--dry-run") {
		t.Error("dry-run flag missing")
	}
	if !strings.Contains(joined, "--verbose") {
		t.Error("verbose flag missing")
	}
	if !strings.Contains(joined, "--comment nightly") {
		t.Error("job-level extra args missing")
	}
}

func TestPruneArgs_HostScopedWithRetention(t *testing.T) {
	args := PruneArgs(argJob(), "web01", false, false)

	wantPairs := [][2]string{
		{"--glob-archives", "web01-*"},
		{"--keep-daily", "7"},
		{"--keep-weekly", "4"},
		{"--keep-monthly", "2"},
		{"--keep-yearly", "1"},
	}
	for _, p := range wantPairs {
		found := false
		for i := 0; i < len(args)-1; i++ {
			if args[i] == p[0] && args[i+1] == p[1] {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("prune args missing %s %s: %v", p[0], p[1], args)
		}
	}
}

func TestCheckArgs_HostScoped(t *testing.T) {
	job := argJob()
	job.CheckArgs = []string{"--repair"}
	args := CheckArgs(job, "web01", false)
	want := []string{"--glob-archives", "web01-*", "--repair"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("check args = %v, want %v", args, want)
	}
}

func TestArchiveGlob(t *testing.T) {
	if got := ArchiveGlob("web01"); got != "web01-*" {
		t.Errorf("ArchiveGlob = %q", got)
	}
}
