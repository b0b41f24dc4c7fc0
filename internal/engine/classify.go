package engine

import "strings"

// Exit statuses follow the borg convention: 0 success, 1 completed
// with warnings, anything higher is an error.
const (
	exitOK      = 0
	exitWarning = 1
)

var lockMarkers = []string{
	"Failed to create/acquire the lock",
	"LockTimeout",
	"LockFailed",
}

var transientMarkers = []string{
	"Connection closed by remote host",
	"Connection refused",
	"Connection reset by peer",
	"Connection timed out",
	"Broken pipe",
	"Temporary failure in name resolution",
	"ssh_exchange_identification",
}

// Classify maps an exit status plus captured output to an engine
// error, or nil for success and success-with-warnings. Unrecognized
// failures default to permanent: retrying an unknown error against a
// remote repository is less safe than surfacing it.
func Classify(op Operation, status int, lines []string) *Error {
	if status == exitOK || status == exitWarning {
		return nil
	}
	if line, ok := findMarker(lines, lockMarkers); ok {
		return &Error{Kind: KindLocked, Op: op, Status: status, Summary: line}
	}
	if line, ok := findMarker(lines, transientMarkers); ok {
		return &Error{Kind: KindFailure, Op: op, Status: status, Summary: line, Transient: true}
	}
	return &Error{Kind: KindFailure, Op: op, Status: status, Summary: lastNonEmpty(lines)}
}

func findMarker(lines, markers []string) (string, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		for _, m := range markers {
			if strings.Contains(lines[i], m) {
				return strings.TrimSpace(lines[i]), true
			}
		}
	}
	return "", false
}

func lastNonEmpty(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
