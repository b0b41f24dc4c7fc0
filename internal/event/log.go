package event

import (
	"strings"

	"github.com/juju/loggo/v2"
)

// LogSink renders events through the loggo hierarchy. Each job gets a
// child logger under the root module, so per-job log levels work the
// same way they do for the rest of the daemon.
type LogSink struct {
	root string
}

func NewLogSink(root string) *LogSink {
	if root == "" {
		root = "borgsched"
	}
	return &LogSink{root: root}
}

func (s *LogSink) Emit(e Event) {
	name := s.root + ".event"
	if e.Job != "" {
		name = s.root + ".job." + e.Job
	}
	logger := loggo.GetLogger(name)

	msg := format(e)
	switch e.Outcome {
	case OutcomeFailed, OutcomeReloadFailed:
		logger.Errorf("%s", msg)
	case OutcomeWarning, OutcomeDecodeWarning, OutcomeRetry:
		logger.Warningf("%s", msg)
	default:
		logger.Infof("%s", msg)
	}
}

func format(e Event) string {
	var b strings.Builder
	b.WriteString("outcome=")
	b.WriteString(e.Outcome)
	if e.Repository != "" {
		b.WriteString(" repository=")
		b.WriteString(e.Repository)
	}
	if e.Operation != "" {
		b.WriteString(" operation=")
		b.WriteString(e.Operation)
	}
	if e.Detail != "" {
		b.WriteString(" detail=")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// ConfigureLevel applies a log level name to the root module.
func ConfigureLevel(root, level string) {
	if root == "" {
		root = "borgsched"
	}
	lvl, ok := loggo.ParseLevel(level)
	if !ok {
		lvl = loggo.INFO
	}
	loggo.GetLogger(root).SetLogLevel(lvl)
}

// ConfigureJobLevel overrides the level for one job's child logger.
// An empty or unknown level resets the job to inherit from the root.
func ConfigureJobLevel(root, job, level string) {
	if root == "" {
		root = "borgsched"
	}
	logger := loggo.GetLogger(root + ".job." + job)
	lvl, ok := loggo.ParseLevel(level)
	if !ok {
		lvl = loggo.UNSPECIFIED
	}
	logger.SetLogLevel(lvl)
}
