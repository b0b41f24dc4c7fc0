package config

import (
	"strings"
	"testing"
	"time"
)

func baseConfig() *Config {
	cfg := &Config{
		Repositories: []RepositoryConfig{
			{Name: "offsite", URL: "ssh://backup@host/./repo", PassphraseFile: "/etc/borgsched/offsite.pass"},
		},
		Jobs: []JobConfig{
			{
				Name:         "db",
				Sources:      []string{"/var/lib/db"},
				Repositories: []string{"offsite"},
				Schedule:     &ScheduleConfig{Cron: "0 2 * * *"},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_NilConfig(t *testing.T) {
	_, err := Validate(nil, time.Now())
	if err == nil {
		t.Fatal("Validate(nil) should return error")
	}
}

func TestValidate_OK(t *testing.T) {
	snap, err := Validate(baseConfig(), time.Now())
	if err != nil {
		t.Fatalf("Validate should succeed: %v", err)
	}
	if len(snap.Jobs) != 1 {
		t.Fatalf("snapshot jobs = %d, want 1", len(snap.Jobs))
	}
	job := snap.Jobs[0]
	if !job.Prune || !job.Check {
		t.Error("prune and check should default to enabled")
	}
	if job.Retention.KeepDaily != 7 {
		t.Errorf("default keep_daily = %d, want 7", job.Retention.KeepDaily)
	}
	if job.Fingerprint == "" {
		t.Error("job fingerprint should be set")
	}
	if len(job.Repositories) != 1 || job.Repositories[0].URL != "ssh://backup@host/./repo" {
		t.Errorf("repository not resolved: %+v", job.Repositories)
	}
}

func TestValidate_EnabledDefaultsOn(t *testing.T) {
	// baseConfig never sets enabled; an omitted key must mean on.
	snap, err := Validate(baseConfig(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(snap.EnabledJobs()); got != 1 {
		t.Fatalf("job without enabled key: EnabledJobs() = %d, want 1", got)
	}

	off := false
	cfg := baseConfig()
	cfg.Jobs[0].Enabled = &off
	snap, err = Validate(cfg, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(snap.EnabledJobs()); got != 0 {
		t.Fatalf("explicitly disabled job: EnabledJobs() = %d, want 0", got)
	}
}

func TestValidate_DuplicateJobName(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs = append(cfg.Jobs, cfg.Jobs[0])
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("duplicate job name should fail validation")
	}
	if !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestValidate_NoRepositories(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].Repositories = nil
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("job without repositories should fail validation")
	}
}

func TestValidate_UnknownRepositoryRef(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].Repositories = []string{"nope"}
	_, err := Validate(cfg, time.Now())
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected unknown repository error, got %v", err)
	}
}

func TestValidate_NegativeRetention(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].Retention.KeepWeekly = -1
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("negative retention should fail validation")
	}
}

func TestValidate_RetentionKeepsNothing(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].Retention = &RetentionConfig{}
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("all-zero retention should fail validation")
	}
}

func TestValidate_MissingPassphraseRef(t *testing.T) {
	cfg := baseConfig()
	cfg.Repositories[0].PassphraseFile = ""
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("repository without passphrase reference should fail validation")
	}
}

func TestValidate_BadCron(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].Schedule = &ScheduleConfig{Cron: "not a cron"}
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("invalid cron should fail validation")
	}
}

func TestValidate_CronAndEveryExclusive(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].Schedule = &ScheduleConfig{Cron: "0 2 * * *", Every: time.Hour}
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("cron and every together should fail validation")
	}
}

func TestValidate_UnknownExtraArgsOp(t *testing.T) {
	cfg := baseConfig()
	cfg.Jobs[0].ExtraArgs = map[string]*ArgsPatch{"compact": {Append: []string{"-x"}}}
	_, err := Validate(cfg, time.Now())
	if err == nil {
		t.Fatal("extra_args for unknown operation should fail validation")
	}
}

func TestValidate_MergesEngineAndJobArgs(t *testing.T) {
	cfg := baseConfig()
	cfg.Engine.ExtraArgs = map[string]*ArgsPatch{
		OpCreate: {Append: []string{"--one-file-system", "--noatime"}},
	}
	cfg.Jobs[0].ExtraArgs = map[string]*ArgsPatch{
		OpCreate: {Append: []string{"--comment", "db"}, Remove: []string{"--noatime"}},
	}
	snap, err := Validate(cfg, time.Now())
	if err != nil {
		t.Fatalf("Validate should succeed: %v", err)
	}
	got := snap.Jobs[0].CreateArgs
	want := []string{"--one-file-system", "--comment", "db"}
	if len(got) != len(want) {
		t.Fatalf("CreateArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CreateArgs = %v, want %v", got, want)
		}
	}
}

func TestValidate_FingerprintTracksChanges(t *testing.T) {
	snap1, err := Validate(baseConfig(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	cfg := baseConfig()
	cfg.Jobs[0].Sources = []string{"/var/lib/db", "/etc/db"}
	snap2, err := Validate(cfg, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if snap1.Jobs[0].Fingerprint == snap2.Jobs[0].Fingerprint {
		t.Error("fingerprint should change when job sources change")
	}

	snap3, err := Validate(baseConfig(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if snap1.Jobs[0].Fingerprint != snap3.Jobs[0].Fingerprint {
		t.Error("fingerprint should be stable for identical config")
	}
}

func TestValidate_DoesNotMutateOnFailure(t *testing.T) {
	good := baseConfig()
	snap, err := Validate(good, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	bad := baseConfig()
	bad.Jobs[0].Retention.KeepDaily = -1
	if _, err := Validate(bad, time.Now()); err == nil {
		t.Fatal("expected validation failure")
	}

	// The previously built snapshot is unaffected.
	if snap.Jobs[0].Retention.KeepDaily != 7 {
		t.Error("earlier snapshot mutated by failed validation")
	}
}
