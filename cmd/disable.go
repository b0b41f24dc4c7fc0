package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(disableCmd)
	disableCmd.AddCommand(disableJobCmd)
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable a job",
}

var disableJobCmd = &cobra.Command{
	Use:   "job [name]",
	Short: "Disable a job by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisableJob,
}

func runDisableJob(cmd *cobra.Command, args []string) error {
	if err := setJobEnabled(args[0], false); err != nil {
		return err
	}
	cmd.Printf("Job %q disabled\n", args[0])
	return nil
}
