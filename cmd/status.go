package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"borgsched/internal/runner"
	"borgsched/internal/schedule"
)

var statusFile string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusFile, "status-file", runner.DefaultStatusPath, "Path of the daemon's published status file")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backup status (last run, next run, job state)",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	snap, _, err := loadSnapshot(false)
	if err != nil {
		return err
	}

	writtenAt, records, err := runner.ReadStatus(statusFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		cmd.Println("No run history yet (daemon not running, or it has not completed a run)")
	}
	last := lastRunByJob(records)

	now := time.Now()
	for _, job := range snap.Jobs {
		state := "enabled"
		if !job.Enabled {
			state = "disabled"
		}

		lastCol := "never"
		if rec, ok := last[job.Name]; ok {
			lastCol = string(rec.Outcome) + " " + rec.End.Format("2006-01-02 15:04")
			if rec.Summary != "" {
				lastCol += " (" + rec.Summary + ")"
			}
		}

		next, desc, err := schedule.NextRun(job.Schedule, now)
		nextCol := "manual"
		if err == nil && !next.IsZero() {
			nextCol = next.Format("2006-01-02 15:04") + " (" + desc + ")"
		}

		cmd.Printf("%-20s %-8s last=%s next=%s\n", job.Name, state, lastCol, nextCol)
	}

	if !writtenAt.IsZero() {
		cmd.Printf("\n%d run(s) on record, published %s\n", len(records), writtenAt.Format(time.RFC3339))
	}
	return nil
}

// lastRunByJob picks each job's newest finished record. Records arrive
// newest last, so a plain overwrite keeps the latest.
func lastRunByJob(records []runner.RunRecord) map[string]runner.RunRecord {
	last := make(map[string]runner.RunRecord, len(records))
	for _, rec := range records {
		last[rec.Job] = rec
	}
	return last
}
