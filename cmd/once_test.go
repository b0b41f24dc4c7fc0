package cmd

import (
	"strings"
	"testing"
	"time"

	"borgsched/internal/config"
)

func testSnapshot(t *testing.T, disableDB bool) *config.Snapshot {
	t.Helper()
	cfg := &config.Config{
		Repositories: []config.RepositoryConfig{
			{Name: "offsite", URL: "ssh://backup@host/./repo", PassphraseFile: "/etc/borgsched/offsite.pass"},
		},
		Jobs: []config.JobConfig{
			{
				Name:         "db",
				Sources:      []string{"/var/lib/db"},
				Repositories: []string{"offsite"},
				Schedule:     &config.ScheduleConfig{Cron: "0 2 * * *"},
			},
		},
	}
	if disableDB {
		off := false
		cfg.Jobs[0].Enabled = &off
	}
	config.ApplyDefaults(cfg)
	snap, err := config.Validate(cfg, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestSelectJobs(t *testing.T) {
	snap := testSnapshot(t, false)

	t.Run("named job", func(t *testing.T) {
		jobs, err := selectJobs(snap, "db", false)
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) != 1 || jobs[0].Name != "db" {
			t.Errorf("jobs = %+v", jobs)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		if _, err := selectJobs(snap, "nope", false); err == nil {
			t.Fatal("unknown job should be an error")
		}
	})

	t.Run("disabled job refused", func(t *testing.T) {
		if _, err := selectJobs(testSnapshot(t, true), "db", false); err == nil || !strings.Contains(err.Error(), "disabled") {
			t.Fatalf("err = %v, want disabled", err)
		}
	})

	t.Run("all", func(t *testing.T) {
		jobs, err := selectJobs(snap, "", true)
		if err != nil {
			t.Fatal(err)
		}
		if len(jobs) != 1 {
			t.Errorf("jobs = %d, want 1", len(jobs))
		}
	})

	t.Run("neither job nor all", func(t *testing.T) {
		if _, err := selectJobs(snap, "", false); err == nil {
			t.Fatal("empty selection should be a usage error, not a silent success")
		}
	})
}
