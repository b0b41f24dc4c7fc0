package config

import "time"

// Defaults mirror the long-standing daemon behavior: jobs keep a week
// of dailies, prune and check run unless switched off, and a single
// job executes at a time unless the operator raises the budget.
const (
	DefaultConcurrencyLimit = 1
	DefaultTimeoutValue     = time.Hour
	DefaultGracePeriod      = 30 * time.Second
	DefaultHistorySize      = 100
	DefaultMaxAttempts      = 3
	DefaultRetryDelay       = 30 * time.Second
	DefaultRetryMaxDelay    = 10 * time.Minute
	DefaultLogLevel         = "info"
	DefaultEnginePath       = "borg"
	DefaultHookTimeout      = 5 * time.Minute
)

func DefaultRetention() RetentionConfig {
	return RetentionConfig{KeepDaily: 7, KeepWeekly: 4, KeepMonthly: 2, KeepYearly: 1}
}

// ApplyDefaults fills unset settings in place on the raw config. It
// runs before Validate so validation sees the effective values.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	s := &cfg.Settings
	if s.ConcurrencyLimit == 0 {
		s.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	if s.DefaultTimeout == 0 {
		s.DefaultTimeout = DefaultTimeoutValue
	}
	if s.GracePeriod == 0 {
		s.GracePeriod = DefaultGracePeriod
	}
	if s.HistorySize == 0 {
		s.HistorySize = DefaultHistorySize
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = DefaultRetryDelay
	}
	if s.RetryMaxDelay == 0 {
		s.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if cfg.Engine == nil {
		cfg.Engine = &EngineConfig{}
	}
	if cfg.Engine.Path == "" {
		cfg.Engine.Path = DefaultEnginePath
	}
	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		if job.Retention == nil {
			r := DefaultRetention()
			job.Retention = &r
		}
		if job.Timeout == 0 {
			job.Timeout = s.DefaultTimeout
		}
		if job.Hooks != nil && job.Hooks.Timeout == 0 {
			job.Hooks.Timeout = DefaultHookTimeout
		}
	}
}
