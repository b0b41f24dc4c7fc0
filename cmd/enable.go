package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"borgsched/internal/config"
)

func init() {
	rootCmd.AddCommand(enableCmd)
	enableCmd.AddCommand(enableJobCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable a job",
}

var enableJobCmd = &cobra.Command{
	Use:   "job [name]",
	Short: "Enable a job by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnableJob,
}

func runEnableJob(cmd *cobra.Command, args []string) error {
	if err := setJobEnabled(args[0], true); err != nil {
		return err
	}
	cmd.Printf("Job %q enabled\n", args[0])
	return nil
}

// setJobEnabled rewrites the config file with the job's enabled flag
// flipped. A running daemon picks the change up on its next reload.
func setJobEnabled(jobName string, enabled bool) error {
	v, err := config.Load(cfgPath, false)
	if err != nil {
		return err
	}
	cfg, err := config.Unmarshal(v)
	if err != nil {
		return err
	}
	found := false
	for i := range cfg.Jobs {
		if cfg.Jobs[i].Name == jobName {
			cfg.Jobs[i].Enabled = &enabled
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("job %q not found", jobName)
	}
	path := cfgPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	return config.Write(cfg, path)
}
