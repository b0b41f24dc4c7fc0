package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo/v2"

	"borgsched/internal/config"
	"borgsched/internal/engine"
	"borgsched/internal/event"
	"borgsched/internal/lock"
	"borgsched/internal/runner"
	"borgsched/internal/schedule"
	"borgsched/internal/secret"
)

// Scheduler owns the job clock: it decides which jobs are due,
// dispatches them to runners within the concurrency budget, and folds
// their outcomes back into per-job schedule state. All decisions
// happen on one loop; reload and shutdown arrive as messages, never as
// interrupts of in-flight work.
type Scheduler struct {
	Engine  engine.Invoker
	Creds   secret.Resolver
	Sink    event.Sink
	History *runner.History
	Clock   clock.Clock

	// StatusPath, when set, is where the history ring is published
	// after every completed run for the status command to read.
	StatusPath string

	locks   *lock.Keyed
	reloads chan *config.Snapshot
	logger  loggo.Logger
}

type jobResult struct {
	name    string
	start   time.Time
	records []runner.RunRecord
}

func New(eng engine.Invoker, creds secret.Resolver, sink event.Sink, history *runner.History, clk clock.Clock) *Scheduler {
	if sink == nil {
		sink = event.Discard
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Scheduler{
		Engine:  eng,
		Creds:   creds,
		Sink:    sink,
		History: history,
		Clock:   clk,
		locks:   lock.NewKeyed(),
		reloads: make(chan *config.Snapshot, 1),
		logger:  loggo.GetLogger("borgsched.scheduler"),
	}
}

// Reload hands a new validated snapshot to the decision loop. The
// caller has already rejected invalid configuration; a snapshot that
// reaches here is always applied. Latest wins: a reload queued behind
// an unconsumed one replaces it.
func (s *Scheduler) Reload(snap *config.Snapshot) {
	for {
		select {
		case s.reloads <- snap:
			return
		default:
		}
		select {
		case <-s.reloads:
		default:
		}
	}
}

// Run drives the decision loop until ctx is cancelled, then drains
// in-flight runs within the grace period and returns.
func (s *Scheduler) Run(ctx context.Context, snap *config.Snapshot) error {
	states := newStateSet()
	current := snap
	s.install(states, snap, s.Clock.Now())

	// Runs survive scheduler cancellation until the grace period
	// expires, so their context is detached from ctx.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	results := make(chan jobResult)
	running := 0

	for {
		running += s.dispatch(runCtx, states, current, running, results)

		var timer clock.Timer
		var timerCh <-chan time.Time
		if js := states.peek(); js != nil && running < current.Settings.ConcurrencyLimit {
			wait := js.nextDue.Sub(s.Clock.Now())
			if wait < 0 {
				wait = 0
			}
			timer = s.Clock.NewTimer(wait)
			timerCh = timer.Chan()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return s.drain(cancelRuns, results, running, current.Settings.GracePeriod)
		case newSnap := <-s.reloads:
			s.applyReload(states, newSnap)
			current = newSnap
		case res := <-results:
			running--
			s.complete(states, res)
		case <-timerCh:
			// Fall through to dispatch.
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (s *Scheduler) install(states *stateSet, snap *config.Snapshot, now time.Time) {
	for _, job := range snap.EnabledJobs() {
		if job.Schedule == nil {
			continue // manual job, only `once` runs it
		}
		next, desc, err := schedule.NextRun(job.Schedule, now)
		if err != nil {
			// Validation already parsed the schedule; treat this as a
			// config defect and keep the job out of the rotation.
			s.logger.Errorf("job %q: %v", job.Name, err)
			continue
		}
		states.add(&jobState{
			name:        job.Name,
			job:         job,
			snap:        snap,
			nextDue:     next,
			description: desc,
		})
	}
}

// dispatch starts every due job that fits in the concurrency budget.
// Jobs beyond the budget stay due and are picked up when a slot frees:
// at-least-eventually-run, not strictly on time under saturation.
func (s *Scheduler) dispatch(ctx context.Context, states *stateSet, current *config.Snapshot, running int, results chan<- jobResult) int {
	started := 0
	now := s.Clock.Now()
	for running+started < current.Settings.ConcurrencyLimit {
		js := states.popDue(now)
		if js == nil {
			break
		}
		js.running = true
		js.dueNow = false

		r := runner.New(js.snap.Settings, s.Engine, s.Creds, s.locks, s.Sink, s.Clock)
		job := js.job
		name := js.name
		start := now
		go func() {
			records := r.RunJob(ctx, job)
			results <- jobResult{name: name, start: start, records: records}
		}()
		started++
	}
	return started
}

// complete folds a finished run into schedule state. Next-due is
// computed from the run's start time so long runs do not drift the
// schedule.
func (s *Scheduler) complete(states *stateSet, res jobResult) {
	for _, rec := range res.records {
		if s.History != nil {
			s.History.Add(rec)
		}
	}
	s.publishStatus()

	js := states.byName[res.name]
	if js == nil {
		return
	}
	if js.removed {
		states.drop(js)
		s.logger.Infof("job %q retired after final run", res.name)
		return
	}

	failed := false
	for _, rec := range res.records {
		if rec.Failed() {
			failed = true
			break
		}
	}
	if failed {
		js.failures++
		if js.failures > 1 {
			s.emit(res.name, event.OutcomeWarning, fmt.Sprintf("%d consecutive failures", js.failures))
		}
	} else {
		js.failures = 0
	}

	if js.dueNow {
		// The job definition changed while it ran; run-on-change
		// applies as soon as the slot frees.
		js.dueNow = false
		states.requeue(js, s.Clock.Now())
		return
	}
	next, _, err := schedule.NextRun(js.job.Schedule, res.start)
	if err != nil || next.IsZero() {
		states.drop(js)
		return
	}
	states.requeue(js, next)
}

// applyReload diffs the new snapshot against current state. Removed
// jobs finish their current run and are never dispatched again; added
// and changed jobs become due immediately (run-on-change).
func (s *Scheduler) applyReload(states *stateSet, snap *config.Snapshot) {
	now := s.Clock.Now()
	s.emit("", event.OutcomeReloaded, fmt.Sprintf("configuration loaded at %s", snap.LoadedAt.Format(time.RFC3339)))

	keep := make(map[string]bool)
	for _, job := range snap.EnabledJobs() {
		if job.Schedule == nil {
			continue
		}
		keep[job.Name] = true
		js, ok := states.byName[job.Name]
		if !ok {
			_, desc, err := schedule.NextRun(job.Schedule, now)
			if err != nil {
				s.logger.Errorf("job %q: %v", job.Name, err)
				continue
			}
			states.add(&jobState{
				name:        job.Name,
				job:         job,
				snap:        snap,
				nextDue:     now, // run-on-change
				description: desc,
			})
			s.emit(job.Name, event.OutcomeReloaded, "job added, due now")
			continue
		}

		changed := js.job.Fingerprint != job.Fingerprint
		js.job = job
		js.snap = snap
		js.removed = false
		if changed {
			if js.running {
				js.dueNow = true
			} else {
				states.bump(js, now)
			}
			s.emit(job.Name, event.OutcomeReloaded, "job changed, due now")
		}
	}

	for name, js := range states.byName {
		if keep[name] {
			continue
		}
		if js.running {
			js.removed = true
			s.emit(name, event.OutcomeReloaded, "job removed, retiring after current run")
			continue
		}
		states.drop(js)
		s.emit(name, event.OutcomeReloaded, "job removed")
	}
}

// drain waits for in-flight runs after shutdown. When the grace
// period expires the run context is cancelled, which the runners
// observe at their next state-machine transition.
func (s *Scheduler) drain(cancelRuns context.CancelFunc, results <-chan jobResult, running int, grace time.Duration) error {
	s.emit("", event.OutcomeShutdown, fmt.Sprintf("%d runs in flight", running))
	if running == 0 {
		return nil
	}
	var graceCh <-chan time.Time
	if grace > 0 {
		graceCh = s.Clock.After(grace)
	}
	for running > 0 {
		select {
		case res := <-results:
			running--
			for _, rec := range res.records {
				if s.History != nil {
					s.History.Add(rec)
				}
			}
		case <-graceCh:
			s.logger.Warningf("grace period expired, cancelling %d runs", running)
			cancelRuns()
			graceCh = nil
		}
	}
	s.publishStatus()
	return nil
}

// publishStatus writes the full history ring to the status file.
func (s *Scheduler) publishStatus() {
	if s.StatusPath == "" || s.History == nil {
		return
	}
	if err := runner.WriteStatus(s.StatusPath, s.History.Recent(0)); err != nil {
		s.logger.Warningf("status file: %v", err)
	}
}

func (s *Scheduler) emit(job, outcome, detail string) {
	s.Sink.Emit(event.Event{
		Timestamp: s.Clock.Now(),
		Job:       job,
		Outcome:   outcome,
		Detail:    detail,
	})
}
