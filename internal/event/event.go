package event

import "time"

// Event is the single observability record the core emits. Everything
// downstream (logs, webhooks, history) consumes these; no component
// ever reports errors upward through any other channel.
type Event struct {
	Timestamp  time.Time
	Job        string
	Repository string
	Operation  string
	Outcome    string
	Detail     string
}

// Outcome values. Free-form detail goes in Detail; Outcome stays
// machine-matchable.
const (
	OutcomeStarted       = "started"
	OutcomeSuccess       = "success"
	OutcomeWarning       = "warning"
	OutcomeFailed        = "failed"
	OutcomeSkipped       = "skipped"
	OutcomeRetry         = "retry"
	OutcomeDecodeWarning = "decode_warning"
	OutcomeReloaded      = "reloaded"
	OutcomeReloadFailed  = "reload_failed"
	OutcomeShutdown      = "shutdown"
)

type Sink interface {
	Emit(e Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}
