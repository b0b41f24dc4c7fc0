package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warning": true, "error": true, "critical": true,
}

// Validate checks every invariant of the raw config and builds the
// immutable Snapshot. It is total and side-effect free: on error the
// caller's live state is untouched. Secret references are checked for
// presence of the reference itself; the referenced files are resolved
// lazily at run time by the credential scope.
func Validate(cfg *Config, now time.Time) (*Snapshot, error) {
	if cfg == nil {
		return nil, validationErrorf("config is nil")
	}

	s := cfg.Settings
	if s.ConcurrencyLimit < 1 {
		return nil, validationErrorf("settings.concurrency_limit must be >= 1, got %d", s.ConcurrencyLimit)
	}
	if s.DefaultTimeout <= 0 {
		return nil, validationErrorf("settings.default_timeout must be positive")
	}
	if s.MaxAttempts < 1 {
		return nil, validationErrorf("settings.max_attempts must be >= 1, got %d", s.MaxAttempts)
	}
	if !logLevels[s.LogLevel] {
		return nil, validationErrorf("settings.log_level %q is not a known level", s.LogLevel)
	}
	enginePath := DefaultEnginePath
	if cfg.Engine != nil && cfg.Engine.Path != "" {
		enginePath = cfg.Engine.Path
	}

	repos := make(map[string]*Repository, len(cfg.Repositories))
	for i := range cfg.Repositories {
		rc := &cfg.Repositories[i]
		if rc.Name == "" {
			return nil, validationErrorf("repositories[%d]: name is required", i)
		}
		if _, dup := repos[rc.Name]; dup {
			return nil, validationErrorf("duplicate repository name %q", rc.Name)
		}
		if rc.URL == "" {
			return nil, validationErrorf("repository %q: url is required", rc.Name)
		}
		if rc.PassphraseFile == "" {
			return nil, validationErrorf("repository %q: passphrase_file is required", rc.Name)
		}
		repos[rc.Name] = &Repository{
			Name:           rc.Name,
			URL:            rc.URL,
			PassphraseFile: rc.PassphraseFile,
			SSHKeyFile:     rc.SSHKeyFile,
		}
	}

	settings := Settings{
		ConcurrencyLimit: s.ConcurrencyLimit,
		DefaultTimeout:   s.DefaultTimeout,
		GracePeriod:      s.GracePeriod,
		LogLevel:         s.LogLevel,
		HistorySize:      s.HistorySize,
		MaxAttempts:      s.MaxAttempts,
		RetryDelay:       s.RetryDelay,
		RetryMaxDelay:    s.RetryMaxDelay,
		Hostname:         s.Hostname,
		DryRun:           s.DryRun,
		WatchConfig:      s.WatchConfig,
		EnginePath:       enginePath,
	}

	snap := &Snapshot{Settings: settings, LoadedAt: now}

	seen := make(map[string]bool, len(cfg.Jobs))
	for i := range cfg.Jobs {
		jc := &cfg.Jobs[i]
		if jc.Name == "" {
			return nil, validationErrorf("jobs[%d]: name is required", i)
		}
		if seen[jc.Name] {
			return nil, validationErrorf("duplicate job name %q", jc.Name)
		}
		seen[jc.Name] = true

		if len(jc.Sources) == 0 {
			return nil, validationErrorf("job %q: at least one source path is required", jc.Name)
		}
		if len(jc.Repositories) == 0 {
			return nil, validationErrorf("job %q: at least one repository is required", jc.Name)
		}

		var jobRepos []*Repository
		for _, ref := range jc.Repositories {
			repo, ok := repos[ref]
			if !ok {
				return nil, validationErrorf("job %q references unknown repository %q", jc.Name, ref)
			}
			jobRepos = append(jobRepos, repo)
		}

		if err := validateRetention(jc.Name, jc.Retention); err != nil {
			return nil, err
		}
		if err := validateSchedule(jc.Name, jc.Schedule); err != nil {
			return nil, err
		}
		if jc.LogLevel != "" && !logLevels[jc.LogLevel] {
			return nil, validationErrorf("job %q: log_level %q is not a known level", jc.Name, jc.LogLevel)
		}
		for op := range jc.ExtraArgs {
			if op != OpCreate && op != OpPrune && op != OpCheck {
				return nil, validationErrorf("job %q: extra_args for unknown operation %q", jc.Name, op)
			}
		}

		fp, err := fingerprintJob(jc, jobRepos, &settings)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Detail: "fingerprinting", Err: err}
		}

		job := &Job{
			Name:         jc.Name,
			Enabled:      jc.Enabled == nil || *jc.Enabled,
			Sources:      append([]string(nil), jc.Sources...),
			Exclude:      append([]string(nil), jc.Exclude...),
			Repositories: jobRepos,
			Retention:    *jc.Retention,
			Schedule:     jc.Schedule,
			Hooks:        jc.Hooks,
			Timeout:      jc.Timeout,
			LogLevel:     jc.LogLevel,
			Prune:        jc.Prune == nil || *jc.Prune,
			Check:        jc.Check == nil || *jc.Check,
			CreateArgs:   mergedArgs(cfg, jc, OpCreate),
			PruneArgs:    mergedArgs(cfg, jc, OpPrune),
			CheckArgs:    mergedArgs(cfg, jc, OpCheck),
			Fingerprint:  fp,
		}
		snap.Jobs = append(snap.Jobs, job)
	}

	if cfg.Notifications != nil && cfg.Notifications.Webhook != nil && cfg.Notifications.Webhook.Enabled {
		w := cfg.Notifications.Webhook
		if w.URL == "" {
			return nil, validationErrorf("notifications.webhook: url is required when enabled")
		}
		snap.Webhook = w
	}

	return snap, nil
}

func validateRetention(job string, r *RetentionConfig) error {
	if r == nil {
		return validationErrorf("job %q: retention is required", job)
	}
	for _, kv := range []struct {
		name string
		n    int
	}{
		{"keep_daily", r.KeepDaily},
		{"keep_weekly", r.KeepWeekly},
		{"keep_monthly", r.KeepMonthly},
		{"keep_yearly", r.KeepYearly},
	} {
		if kv.n < 0 {
			return validationErrorf("job %q: retention.%s must be >= 0, got %d", job, kv.name, kv.n)
		}
	}
	if r.KeepDaily+r.KeepWeekly+r.KeepMonthly+r.KeepYearly == 0 {
		return validationErrorf("job %q: retention keeps nothing; at least one keep count must be > 0", job)
	}
	return nil
}

func validateSchedule(job string, s *ScheduleConfig) error {
	if s == nil {
		return nil // manual-only job; never due on its own
	}
	if s.Cron != "" && s.Every != 0 {
		return validationErrorf("job %q: schedule cron and every are mutually exclusive", job)
	}
	if s.Cron != "" {
		if _, err := cronParser.Parse(s.Cron); err != nil {
			return &Error{
				Kind:   KindValidation,
				Detail: fmt.Sprintf("job %q: schedule cron %q", job, s.Cron),
				Err:    err,
			}
		}
	}
	if s.Every < 0 {
		return validationErrorf("job %q: schedule every must be positive", job)
	}
	if s.Cron == "" && s.Every == 0 {
		return validationErrorf("job %q: schedule needs cron or every", job)
	}
	if s.JitterMinutes < 0 {
		return validationErrorf("job %q: schedule jitter_minutes must be >= 0", job)
	}
	return nil
}

func mergedArgs(cfg *Config, jc *JobConfig, op string) []string {
	var base *ArgsPatch
	if cfg.Engine != nil && cfg.Engine.ExtraArgs != nil {
		base = cfg.Engine.ExtraArgs[op]
	}
	var job *ArgsPatch
	if jc.ExtraArgs != nil {
		job = jc.ExtraArgs[op]
	}
	return MergeArgs(nil, base, job)
}
