package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"borgsched/internal/config"
	"borgsched/internal/engine"
	"borgsched/internal/event"
	"borgsched/internal/lock"
	"borgsched/internal/secret"
)

// Runner executes the full lifecycle of one backup job against its
// repositories: pre-hook, create, prune, check, post-hook. Every
// failure is contained into the finalized RunRecord; nothing escapes
// to the caller as an error.
type Runner struct {
	Engine        engine.Invoker
	Creds         secret.Resolver
	Locks         *lock.Keyed
	Sink          event.Sink
	Clock         clock.Clock
	Hostname      string
	DryRun        bool
	Verbose       bool
	MaxAttempts   int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

// New builds a runner for one configuration snapshot.
func New(settings config.Settings, eng engine.Invoker, creds secret.Resolver, locks *lock.Keyed, sink event.Sink, clk clock.Clock) *Runner {
	host := settings.Hostname
	if host == "" {
		host, _ = os.Hostname()
		if host == "" {
			host = "localhost"
		}
	}
	if sink == nil {
		sink = event.Discard
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Runner{
		Engine:        eng,
		Creds:         creds,
		Locks:         locks,
		Sink:          sink,
		Clock:         clk,
		Hostname:      host,
		DryRun:        settings.DryRun,
		Verbose:       settings.LogLevel == "debug" || settings.LogLevel == "trace",
		MaxAttempts:   settings.MaxAttempts,
		RetryDelay:    settings.RetryDelay,
		RetryMaxDelay: settings.RetryMaxDelay,
	}
}

// RunJob executes the job against each of its repositories in turn,
// one sub-run per repository. Cancellation is observed between
// sub-runs; repositories not yet started get a Skipped record.
func (r *Runner) RunJob(ctx context.Context, job *config.Job) []RunRecord {
	records := make([]RunRecord, 0, len(job.Repositories))
	for _, repo := range job.Repositories {
		if ctx.Err() != nil {
			rec := newRecord(job.Name, repo.Name, r.now())
			records = append(records, rec.finalize(r.now(), OutcomeSkipped, ReasonCancelled, "cancelled before start"))
			continue
		}
		records = append(records, r.RunRepo(ctx, job, repo))
	}
	return records
}

// RunRepo drives the state machine for one (job, repository) pair:
// Pending, PreHook, Create, Prune, Check, PostHook, Done, with Failed
// absorbing from any stage.
func (r *Runner) RunRepo(ctx context.Context, job *config.Job, repo *config.Repository) RunRecord {
	rec := newRecord(job.Name, repo.Name, r.now())
	r.emit(job.Name, repo.Name, "", event.OutcomeStarted, "")

	if job.Hooks != nil && job.Hooks.Pre != "" {
		if err := runHook(ctx, job.Hooks.Pre, job.Hooks.Timeout); err != nil {
			r.emit(job.Name, repo.Name, "pre_hook", event.OutcomeFailed, err.Error())
			return r.done(rec, OutcomeFailed, ReasonPreHookFailed, err.Error())
		}
	}

	creds, err := r.Creds.Resolve(repo)
	if err != nil {
		// secret.Error carries references only, never values.
		r.emit(job.Name, repo.Name, "", event.OutcomeFailed, err.Error())
		return r.done(rec, OutcomeFailed, ReasonCredential, err.Error())
	}

	repoLock := r.Locks.For(repo.Name)
	if err := repoLock.Acquire(ctx); err != nil {
		return r.done(rec, OutcomeSkipped, ReasonCancelled, "cancelled waiting for repository lock")
	}

	createRes, err := r.invokeWithRetry(ctx, rec, engine.OpCreate, creds,
		engine.CreateArgs(job, r.Hostname, r.DryRun, r.Verbose), job.Timeout)
	if err != nil {
		_ = repoLock.Release(ctx)
		reason := ReasonCreateFailed
		if engine.IsLocked(err) {
			reason = ReasonRepositoryLocked
		} else if ctx.Err() != nil {
			reason = ReasonCancelled
		}
		r.emit(job.Name, repo.Name, string(engine.OpCreate), event.OutcomeFailed, err.Error())
		// Prune and check are skipped: never reshape a repository that
		// may hold a partial backup set.
		return r.done(rec, OutcomeFailed, reason, err.Error())
	}
	if createRes.Warning {
		rec.addWarning("create completed with warnings")
		r.emit(job.Name, repo.Name, string(engine.OpCreate), event.OutcomeWarning, "completed with warnings")
	} else {
		r.emit(job.Name, repo.Name, string(engine.OpCreate), event.OutcomeSuccess, "")
	}

	if job.Prune && ctx.Err() == nil {
		r.runFollowup(ctx, rec, engine.OpPrune, creds,
			engine.PruneArgs(job, r.Hostname, r.DryRun, r.Verbose), job.Timeout)
	}
	if job.Check && ctx.Err() == nil {
		r.runFollowup(ctx, rec, engine.OpCheck, creds,
			engine.CheckArgs(job, r.Hostname, r.Verbose), job.Timeout)
	}
	_ = repoLock.Release(ctx)

	if job.Hooks != nil && job.Hooks.Post != "" {
		// The post-hook owes its run to the successful create; a
		// shutdown in progress must not cancel it, its own timeout
		// still bounds it.
		if err := runHook(context.WithoutCancel(ctx), job.Hooks.Post, job.Hooks.Timeout); err != nil {
			rec.addWarning("post hook: " + err.Error())
			r.emit(job.Name, repo.Name, "post_hook", event.OutcomeWarning, err.Error())
		}
	}

	final := r.done(rec, OutcomeSuccess, ReasonNone, "")
	return final
}

// runFollowup runs prune or check after a successful create. Failure
// is recorded as a warning and never rolls back the create.
func (r *Runner) runFollowup(ctx context.Context, rec *RunRecord, op engine.Operation, creds *secret.Credentials, args []string, timeout time.Duration) {
	if _, err := r.invokeWithRetry(ctx, rec, op, creds, args, timeout); err != nil {
		rec.addWarning(string(op) + ": " + err.Error())
		r.emit(rec.Job, rec.Repository, string(op), event.OutcomeWarning, err.Error())
		return
	}
	r.emit(rec.Job, rec.Repository, string(op), event.OutcomeSuccess, "")
}

func (r *Runner) invokeWithRetry(ctx context.Context, rec *RunRecord, op engine.Operation, creds *secret.Credentials, args []string, timeout time.Duration) (*engine.Result, error) {
	attempts := 0
	attemptLimit := r.MaxAttempts
	if attemptLimit < 1 {
		attemptLimit = 1
	}
	delay := r.RetryDelay
	if delay <= 0 {
		delay = config.DefaultRetryDelay
	}

	var res *engine.Result
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attempts++
			var invokeErr error
			res, invokeErr = r.Engine.Invoke(ctx, op, creds, args, timeout)
			if res != nil && res.DecodeWarnings > 0 {
				r.emit(rec.Job, rec.Repository, string(op), event.OutcomeDecodeWarning,
					fmt.Sprintf("%d undecodable byte sequences replaced", res.DecodeWarnings))
			}
			return invokeErr
		},
		IsFatalError: func(err error) bool {
			return !engine.IsTransient(err)
		},
		NotifyFunc: func(err error, attempt int) {
			r.emit(rec.Job, rec.Repository, string(op), event.OutcomeRetry,
				fmt.Sprintf("attempt %d: %v", attempt, err))
		},
		Attempts:    attemptLimit,
		Delay:       delay,
		MaxDelay:    r.RetryMaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       r.Clock,
		Stop:        ctx.Done(),
	})
	if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
		err = retry.LastError(err)
	}

	opRes := OpResult{Operation: string(op), Attempts: attempts}
	if res != nil {
		opRes.ExitStatus = res.ExitStatus
		opRes.Duration = res.Duration
	}
	if err != nil {
		opRes.Err = err.Error()
	}
	rec.Ops = append(rec.Ops, opRes)
	if op == engine.OpCreate {
		rec.Attempts = attempts
	}
	return res, err
}

func (r *Runner) done(rec *RunRecord, outcome Outcome, reason FailReason, summary string) RunRecord {
	final := rec.finalize(r.now(), outcome, reason, summary)
	r.Sink.Emit(event.Event{
		Timestamp:  final.End,
		Job:        final.Job,
		Repository: final.Repository,
		Outcome:    string(final.Outcome),
		Detail:     final.Summary,
	})
	return final
}

func (r *Runner) now() time.Time { return r.Clock.Now() }

func (r *Runner) emit(job, repo, op, outcome, detail string) {
	r.Sink.Emit(event.Event{
		Timestamp:  r.now(),
		Job:        job,
		Repository: repo,
		Operation:  op,
		Outcome:    outcome,
		Detail:     detail,
	})
}
