package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"borgsched/internal/config"
	"borgsched/internal/engine"
	"borgsched/internal/lock"
	"borgsched/internal/runner"
	"borgsched/internal/secret"
)

var onceJob string
var onceAll bool

func init() {
	rootCmd.AddCommand(onceCmd)
	onceCmd.Flags().StringVar(&onceJob, "job", "", "Run only this job by name")
	onceCmd.Flags().BoolVar(&onceAll, "all", true, "Run all enabled jobs")
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run eligible jobs immediately, then exit",
	Long:  "Run the given job or all enabled jobs once, ignoring schedules. Exits 0 if every run succeeded, non-zero otherwise.",
	RunE:  runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	snap, _, err := loadSnapshot(false)
	if err != nil {
		return err
	}
	applyLogLevels(snap)
	for _, w := range snap.Warnings {
		cmd.PrintErrf("Warning: unknown config key %q ignored\n", w)
	}

	jobs, err := selectJobs(snap, onceJob, onceAll)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		cmd.Println("No enabled jobs to run")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	sink, err := buildSink(snap)
	if err != nil {
		return err
	}
	r := runner.New(
		snap.Settings,
		engine.NewBorg(snap.Settings.EnginePath, 0),
		secret.FileResolver{},
		lock.NewKeyed(),
		sink,
		clock.WallClock,
	)

	failed := 0
	for i, job := range jobs {
		cmd.Printf("[%d/%d] Running job %q ...\n", i+1, len(jobs), job.Name)
		start := time.Now()
		records := r.RunJob(ctx, job)
		duration := time.Since(start).Round(time.Second)
		for _, rec := range records {
			switch {
			case rec.Failed():
				failed++
				cmd.Printf("  %s: FAILED (%s): %s\n", rec.Repository, rec.Reason, rec.Summary)
			case rec.Outcome == runner.OutcomeWarning:
				cmd.Printf("  %s: OK with warnings: %v\n", rec.Repository, rec.Warnings)
			case rec.Outcome == runner.OutcomeSkipped:
				cmd.Printf("  %s: skipped: %s\n", rec.Repository, rec.Summary)
			default:
				cmd.Printf("  %s: OK\n", rec.Repository)
			}
		}
		cmd.Printf("  Finished in %s\n", duration)
	}

	if failed > 0 {
		return fmt.Errorf("%d run(s) failed", failed)
	}
	cmd.Println("All runs completed successfully.")
	return nil
}

// selectJobs resolves the --job and --all flags against the snapshot.
// An empty selection is only valid when --all filtered everything out;
// asking for neither a named job nor all of them is a usage error.
func selectJobs(snap *config.Snapshot, jobName string, all bool) ([]*config.Job, error) {
	if jobName != "" {
		job := snap.JobByName(jobName)
		if job == nil {
			return nil, fmt.Errorf("job %q not found", jobName)
		}
		if !job.Enabled {
			return nil, fmt.Errorf("job %q is disabled", jobName)
		}
		return []*config.Job{job}, nil
	}
	if !all {
		return nil, fmt.Errorf("nothing to run: pass --job NAME or --all")
	}
	return snap.EnabledJobs(), nil
}
