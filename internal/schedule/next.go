package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"borgsched/internal/config"
)

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NextRun returns the next due time strictly after 'from' for the
// given schedule, plus a short description for listings. The caller
// passes the run's start time, not its completion time, so variable
// run duration never drifts the schedule.
//
// JitterMinutes is a fixed per-job offset: operators give jobs that
// share a repository different jitter values to spread their slots.
func NextRun(s *config.ScheduleConfig, from time.Time) (time.Time, string, error) {
	if s == nil {
		return time.Time{}, "manual", nil
	}
	jitter := time.Duration(s.JitterMinutes) * time.Minute

	if s.Cron != "" {
		sched, err := parser.Parse(s.Cron)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("parse cron %q: %w", s.Cron, err)
		}
		return sched.Next(from).Add(jitter), "cron " + s.Cron, nil
	}
	if s.Every > 0 {
		return from.Add(s.Every).Add(jitter), "every " + s.Every.String(), nil
	}
	return time.Time{}, "manual", nil
}
