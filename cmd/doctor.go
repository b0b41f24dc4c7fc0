package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"borgsched/internal/doctor"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, engine binary, secrets, and lock directory",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	snap, _, err := loadSnapshot(true)
	if err != nil {
		cmd.Printf("Config: ERROR: %v\n", err)
		return err
	}
	for _, w := range snap.Warnings {
		cmd.Printf("Config: WARNING: unknown key %q\n", w)
	}

	results := doctor.Run(context.Background(), snap)
	allOK := true
	for _, r := range results {
		status := "OK"
		if !r.OK {
			status = "ERROR"
			allOK = false
		}
		cmd.Printf("%-24s %s: %s\n", r.Name, status, r.Detail)
	}
	if !allOK {
		return fmt.Errorf("one or more checks failed; see output above")
	}
	return nil
}
