package config

import (
	"fmt"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// Operation names used as extra_args keys and in events.
const (
	OpCreate = "create"
	OpPrune  = "prune"
	OpCheck  = "check"
)

// Snapshot is the fully validated configuration effective at a point in
// time. It is never mutated after Validate returns it; a reload builds
// a new Snapshot and swaps it, and runs already holding the old one
// keep using it until they finish.
type Snapshot struct {
	Settings Settings
	Jobs     []*Job
	Webhook  *WebhookConfig
	Warnings []string
	LoadedAt time.Time
}

type Settings struct {
	ConcurrencyLimit int
	DefaultTimeout   time.Duration
	GracePeriod      time.Duration
	LogLevel         string
	HistorySize      int
	MaxAttempts      int
	RetryDelay       time.Duration
	RetryMaxDelay    time.Duration
	Hostname         string
	DryRun           bool
	WatchConfig      bool
	EnginePath       string
}

// Job is a validated job definition with repository references
// resolved. Fingerprint changes whenever any effective field of the
// job changes, which is what reload uses to decide "changed".
type Job struct {
	Name         string
	Enabled      bool
	Sources      []string
	Exclude      []string
	Repositories []*Repository
	Retention    RetentionConfig
	Schedule     *ScheduleConfig
	Hooks        *HooksConfig
	Timeout      time.Duration
	LogLevel     string
	Prune        bool
	Check        bool
	CreateArgs   []string
	PruneArgs    []string
	CheckArgs    []string
	Fingerprint  string
}

type Repository struct {
	Name           string
	URL            string
	PassphraseFile string
	SSHKeyFile     string
}

// JobByName returns the snapshot's job with the given name, or nil.
func (s *Snapshot) JobByName(name string) *Job {
	for _, j := range s.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// EnabledJobs returns the jobs that are enabled in this snapshot.
func (s *Snapshot) EnabledJobs() []*Job {
	var out []*Job
	for _, j := range s.Jobs {
		if j.Enabled {
			out = append(out, j)
		}
	}
	return out
}

func fingerprintJob(jc *JobConfig, repos []*Repository, settings *Settings) (string, error) {
	type fp struct {
		Job      *JobConfig
		Repos    []*Repository
		Timeout  time.Duration
		Attempts int
		DryRun   bool
	}
	data, err := yaml.Marshal(fp{
		Job:      jc,
		Repos:    repos,
		Timeout:  jc.Timeout,
		Attempts: settings.MaxAttempts,
		DryRun:   settings.DryRun,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint job %q: %w", jc.Name, err)
	}
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum[:16]), nil
}
