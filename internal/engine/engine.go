package engine

import (
	"context"
	"time"

	"borgsched/internal/secret"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpPrune  Operation = "prune"
	OpCheck  Operation = "check"
)

// Result is the outcome of one engine invocation. Warning is set for
// the engine's "completed with warnings" exit status; the operation
// still counts as done.
type Result struct {
	ExitStatus     int
	Lines          []string
	Duration       time.Duration
	DecodeWarnings int
	Warning        bool
}

// Invoker dispatches one logical operation against one repository.
// Implementations must not mutate anything beyond what the operation
// itself does to the repository.
type Invoker interface {
	Invoke(ctx context.Context, op Operation, creds *secret.Credentials, args []string, timeout time.Duration) (*Result, error)
}
