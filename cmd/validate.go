package cmd

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	snap, _, err := loadSnapshot(false)
	if err != nil {
		return err
	}
	for _, w := range snap.Warnings {
		cmd.PrintErrf("Warning: unknown config key %q\n", w)
	}
	cmd.Printf("Configuration OK: %d jobs\n", len(snap.Jobs))
	return nil
}
