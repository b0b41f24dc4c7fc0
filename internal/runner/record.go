package runner

import (
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeWarning means the backup exists but prune, check, or the
	// post-hook failed. Operators treat this differently from a run
	// with no backup at all.
	OutcomeWarning Outcome = "success_with_warnings"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

type FailReason string

const (
	ReasonNone             FailReason = ""
	ReasonPreHookFailed    FailReason = "pre_hook_failed"
	ReasonCredential       FailReason = "credential"
	ReasonCreateFailed     FailReason = "create_failed"
	ReasonRepositoryLocked FailReason = "repository_locked"
	ReasonCancelled        FailReason = "cancelled"
)

// OpResult is one engine operation or hook within a run.
type OpResult struct {
	Operation  string        `json:"operation"`
	ExitStatus int           `json:"exit_status"`
	Duration   time.Duration `json:"duration"`
	Attempts   int           `json:"attempts"`
	Err        string        `json:"error,omitempty"`
}

// RunRecord is one execution of (job, repository). The owning runner
// mutates it until Finalize, after which it is handed around by value
// and never changes.
type RunRecord struct {
	ID         string     `json:"id"`
	Job        string     `json:"job"`
	Repository string     `json:"repository"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Outcome    Outcome    `json:"outcome"`
	Reason     FailReason `json:"reason,omitempty"`
	Attempts   int        `json:"attempts"`
	Warnings   []string   `json:"warnings,omitempty"`
	Ops        []OpResult `json:"ops,omitempty"`
	Summary    string     `json:"summary,omitempty"`

	finalized bool
}

func newRecord(job, repository string, start time.Time) *RunRecord {
	return &RunRecord{
		ID:         uuid.NewString(),
		Job:        job,
		Repository: repository,
		Start:      start,
	}
}

func (r *RunRecord) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *RunRecord) finalize(end time.Time, outcome Outcome, reason FailReason, summary string) RunRecord {
	if r.finalized {
		return *r
	}
	r.End = end
	r.Outcome = outcome
	r.Reason = reason
	r.Summary = summary
	if outcome == OutcomeSuccess && len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
	}
	r.finalized = true
	return *r
}

// Failed reports whether the run ended without a usable backup.
func (r RunRecord) Failed() bool {
	return r.Outcome == OutcomeFailed
}
