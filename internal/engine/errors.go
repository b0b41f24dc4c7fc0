package engine

import "fmt"

type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindFailure ErrorKind = "engine_failure"
	KindLocked  ErrorKind = "repository_locked"
	KindSpawn   ErrorKind = "spawn"
)

// Error is a failed engine invocation. Transient failures may be
// retried; permanent ones surface immediately. A lock conflict is
// always permanent: another writer owns the repository and racing it
// is how repositories get corrupted.
type Error struct {
	Kind      ErrorKind
	Op        Operation
	Status    int
	Summary   string
	Transient bool
}

func (e *Error) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("engine %s failed (%s, exit %d): %s", e.Op, e.Kind, e.Status, e.Summary)
	}
	return fmt.Sprintf("engine %s failed (%s, exit %d)", e.Op, e.Kind, e.Status)
}

// IsTransient reports whether err is an engine error worth retrying.
func IsTransient(err error) bool {
	ee, ok := err.(*Error)
	return ok && ee.Transient
}

// IsLocked reports whether err is a repository lock conflict.
func IsLocked(err error) bool {
	ee, ok := err.(*Error)
	return ok && ee.Kind == KindLocked
}
