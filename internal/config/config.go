package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the raw, declarative configuration document. It is what
// operators write; Validate turns it into an immutable Snapshot.
type Config struct {
	Settings      SettingsConfig       `mapstructure:"settings" yaml:"settings"`
	Engine        *EngineConfig        `mapstructure:"engine" yaml:"engine,omitempty"`
	Repositories  []RepositoryConfig   `mapstructure:"repositories" yaml:"repositories"`
	Jobs          []JobConfig          `mapstructure:"jobs" yaml:"jobs"`
	Notifications *NotificationsConfig `mapstructure:"notifications" yaml:"notifications,omitempty"`
}

type SettingsConfig struct {
	ConcurrencyLimit int           `mapstructure:"concurrency_limit" yaml:"concurrency_limit,omitempty"`
	DefaultTimeout   time.Duration `mapstructure:"default_timeout" yaml:"default_timeout,omitempty"`
	GracePeriod      time.Duration `mapstructure:"grace_period" yaml:"grace_period,omitempty"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level,omitempty"`
	HistorySize      int           `mapstructure:"history_size" yaml:"history_size,omitempty"`
	MaxAttempts      int           `mapstructure:"max_attempts" yaml:"max_attempts,omitempty"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" yaml:"retry_delay,omitempty"`
	RetryMaxDelay    time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay,omitempty"`
	Hostname         string        `mapstructure:"hostname" yaml:"hostname,omitempty"`
	DryRun           bool          `mapstructure:"dry_run" yaml:"dry_run,omitempty"`
	WatchConfig      bool          `mapstructure:"watch_config" yaml:"watch_config,omitempty"`
}

type EngineConfig struct {
	Path      string                `mapstructure:"path" yaml:"path,omitempty"`
	ExtraArgs map[string]*ArgsPatch `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
}

// ArgsPatch adds to or removes from a base argument list. Merge
// semantics are explicit so a job-level patch never silently drops the
// engine-level base arguments.
type ArgsPatch struct {
	Append []string `mapstructure:"append" yaml:"append,omitempty"`
	Remove []string `mapstructure:"remove" yaml:"remove,omitempty"`
}

type RepositoryConfig struct {
	Name           string `mapstructure:"name" yaml:"name"`
	URL            string `mapstructure:"url" yaml:"url"`
	PassphraseFile string `mapstructure:"passphrase_file" yaml:"passphrase_file"`
	SSHKeyFile     string `mapstructure:"ssh_key_file" yaml:"ssh_key_file,omitempty"`
}

type JobConfig struct {
	Name         string                `mapstructure:"name" yaml:"name"`
	Enabled      *bool                 `mapstructure:"enabled" yaml:"enabled,omitempty"`
	Sources      []string              `mapstructure:"sources" yaml:"sources"`
	Exclude      []string              `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Repositories []string              `mapstructure:"repositories" yaml:"repositories"`
	Retention    *RetentionConfig      `mapstructure:"retention" yaml:"retention,omitempty"`
	Schedule     *ScheduleConfig       `mapstructure:"schedule" yaml:"schedule,omitempty"`
	Hooks        *HooksConfig          `mapstructure:"hooks" yaml:"hooks,omitempty"`
	Timeout      time.Duration         `mapstructure:"timeout" yaml:"timeout,omitempty"`
	LogLevel     string                `mapstructure:"log_level" yaml:"log_level,omitempty"`
	Prune        *bool                 `mapstructure:"prune" yaml:"prune,omitempty"`
	Check        *bool                 `mapstructure:"check" yaml:"check,omitempty"`
	ExtraArgs    map[string]*ArgsPatch `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
}

type RetentionConfig struct {
	KeepDaily   int `mapstructure:"keep_daily" yaml:"keep_daily"`
	KeepWeekly  int `mapstructure:"keep_weekly" yaml:"keep_weekly"`
	KeepMonthly int `mapstructure:"keep_monthly" yaml:"keep_monthly"`
	KeepYearly  int `mapstructure:"keep_yearly" yaml:"keep_yearly"`
}

type ScheduleConfig struct {
	Cron          string        `mapstructure:"cron" yaml:"cron,omitempty"`
	Every         time.Duration `mapstructure:"every" yaml:"every,omitempty"`
	JitterMinutes int           `mapstructure:"jitter_minutes" yaml:"jitter_minutes,omitempty"`
}

type HooksConfig struct {
	Pre     string        `mapstructure:"pre" yaml:"pre,omitempty"`
	Post    string        `mapstructure:"post" yaml:"post,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

type NotificationsConfig struct {
	Webhook *WebhookConfig `mapstructure:"webhook" yaml:"webhook,omitempty"`
}

type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
	Events  []string      `mapstructure:"events" yaml:"events,omitempty"`
}

func Unmarshal(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, &Error{Kind: KindSyntax, Detail: "decoding configuration", Err: err}
	}
	return &c, nil
}
