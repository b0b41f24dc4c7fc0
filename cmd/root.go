package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"borgsched/internal/config"
	"borgsched/internal/event"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "borgsched",
	Short: "Scheduling daemon for borg-compatible backup engines",
	Long:  "Borgsched turns a declarative config of backup jobs (sources, repositories, retention, schedule, hooks) into supervised engine runs with per-repository locking, retry, and live reload.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (default $BORGSCHED_CONFIG or /etc/borgsched/config.yaml)")
}

func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// loadSnapshot reads, defaults, and validates the configuration.
// Unknown keys become snapshot warnings, never errors.
func loadSnapshot(checkPerms bool) (*config.Snapshot, *config.Config, error) {
	v, err := config.Load(cfgPath, checkPerms)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	config.ApplyDefaults(cfg)
	snap, err := config.Validate(cfg, time.Now())
	if err != nil {
		return nil, nil, err
	}
	snap.Warnings = config.UnknownKeys(v.AllSettings())
	return snap, cfg, nil
}

// applyLogLevels installs the snapshot's global level and any per-job
// overrides on the loggo hierarchy.
func applyLogLevels(snap *config.Snapshot) {
	event.ConfigureLevel("borgsched", snap.Settings.LogLevel)
	for _, job := range snap.Jobs {
		event.ConfigureJobLevel("borgsched", job.Name, job.LogLevel)
	}
}
