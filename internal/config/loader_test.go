package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleDoc = `
settings:
  concurrency_limit: 2
  default_timeout: 45m
  log_level: debug
repositories:
  - name: offsite
    url: ssh://backup@host/./repo
    passphrase_file: /etc/borgsched/offsite.pass
    ssh_key_file: /etc/borgsched/id_ed25519
jobs:
  - name: db
    enabled: true
    sources:
      - /var/lib/db
    exclude:
      - /var/lib/db/tmp
    repositories: [offsite]
    retention:
      keep_daily: 14
    schedule:
      cron: "0 2 * * *"
    hooks:
      pre: systemctl stop db
      post: systemctl start db
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Settings.ConcurrencyLimit != 2 {
		t.Errorf("concurrency_limit = %d, want 2", cfg.Settings.ConcurrencyLimit)
	}
	if cfg.Settings.DefaultTimeout != 45*time.Minute {
		t.Errorf("default_timeout = %s, want 45m", cfg.Settings.DefaultTimeout)
	}
	if len(cfg.Jobs) != 1 || cfg.Jobs[0].Name != "db" {
		t.Fatalf("jobs = %+v", cfg.Jobs)
	}
	if cfg.Jobs[0].Enabled == nil || !*cfg.Jobs[0].Enabled {
		t.Error("enabled: true not decoded")
	}
	if cfg.Jobs[0].Retention == nil || cfg.Jobs[0].Retention.KeepDaily != 14 {
		t.Errorf("retention not decoded: %+v", cfg.Jobs[0].Retention)
	}
	if cfg.Jobs[0].Hooks == nil || cfg.Jobs[0].Hooks.Pre != "systemctl stop db" {
		t.Errorf("hooks not decoded: %+v", cfg.Jobs[0].Hooks)
	}
	if cfg.Repositories[0].SSHKeyFile != "/etc/borgsched/id_ed25519" {
		t.Errorf("ssh_key_file = %q", cfg.Repositories[0].SSHKeyFile)
	}
}

func TestParse_EnabledOmitted(t *testing.T) {
	const doc = `
repositories:
  - name: offsite
    url: ssh://backup@host/./repo
    passphrase_file: /etc/borgsched/offsite.pass
jobs:
  - name: db
    sources: [/var/lib/db]
    repositories: [offsite]
    schedule:
      cron: "0 2 * * *"
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Jobs[0].Enabled != nil {
		t.Errorf("omitted enabled should decode as nil, got %v", *cfg.Jobs[0].Enabled)
	}
	ApplyDefaults(cfg)
	snap, err := Validate(cfg, time.Now())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := len(snap.EnabledJobs()); got != 1 {
		t.Fatalf("job without enabled key must run: EnabledJobs() = %d, want 1", got)
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("jobs: [unclosed"))
	if err == nil {
		t.Fatal("malformed yaml should fail")
	}
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Kind != KindSyntax {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func TestLoad_PermissionCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("world readable refused", func(t *testing.T) {
		if _, err := Load(path, true); err == nil {
			t.Fatal("0644 config should be refused")
		}
	})

	t.Run("check disabled", func(t *testing.T) {
		if _, err := Load(path, false); err != nil {
			t.Fatalf("Load without perm check: %v", err)
		}
	})

	t.Run("owner only accepted", func(t *testing.T) {
		if err := os.Chmod(path, 0600); err != nil {
			t.Fatal(err)
		}
		v, err := Load(path, true)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		cfg, err := Unmarshal(v)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if len(cfg.Jobs) != 1 {
			t.Errorf("jobs = %d, want 1", len(cfg.Jobs))
		}
	})
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	if err == nil {
		t.Fatal("missing config file should fail")
	}
}

func TestWriteThenLoad(t *testing.T) {
	cfg := baseConfig()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Write(cfg, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != 0600 {
		t.Errorf("written config mode = %o, want 0600", got)
	}

	v, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := Unmarshal(v)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	ApplyDefaults(got)

	snapGot, err := Validate(got, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Validate round-tripped config: %v", err)
	}
	snapWant, err := Validate(cfg, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if snapGot.Jobs[0].Fingerprint != snapWant.Jobs[0].Fingerprint {
		t.Error("round trip changed the job fingerprint")
	}
}
