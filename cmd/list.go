package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"borgsched/internal/schedule"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured jobs and their next run times",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	snap, _, err := loadSnapshot(false)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, job := range snap.Jobs {
		state := "enabled"
		if !job.Enabled {
			state = "disabled"
		}
		var repos []string
		for _, r := range job.Repositories {
			repos = append(repos, r.Name)
		}

		next, desc, err := schedule.NextRun(job.Schedule, now)
		when := "manual"
		if err == nil && !next.IsZero() {
			when = next.Format("2006-01-02 15:04") + " (" + desc + ")"
		}

		cmd.Printf("%-20s %-8s repos=%s next=%s keep=%d/%d/%d/%d\n",
			job.Name, state, strings.Join(repos, ","), when,
			job.Retention.KeepDaily, job.Retention.KeepWeekly,
			job.Retention.KeepMonthly, job.Retention.KeepYearly)
	}
	return nil
}
