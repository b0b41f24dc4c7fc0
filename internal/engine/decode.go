package engine

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// maxKeptLines bounds how much output one invocation retains in
// memory. The engine can produce a line per archived file; only the
// tail matters for summaries and classification.
const maxKeptLines = 200

// lineBuffer keeps the tail of the decoded output stream.
type lineBuffer struct {
	lines          []string
	total          int
	decodeWarnings int
}

// decodeLines reads the combined output stream line by line. Invalid
// byte sequences never fail the operation: they are replaced with
// U+FFFD and counted, so the run outcome still comes from the exit
// status.
func (b *lineBuffer) decodeLines(r io.Reader, onLine func(string, bool)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Bytes()
		line := string(raw)
		mangled := !utf8.Valid(raw)
		if mangled {
			line = strings.ToValidUTF8(line, "�")
			b.decodeWarnings++
		}
		b.total++
		b.lines = append(b.lines, line)
		if len(b.lines) > maxKeptLines {
			b.lines = b.lines[1:]
		}
		if onLine != nil {
			onLine(line, mangled)
		}
	}
	if err := sc.Err(); err != nil {
		// A scan abort (a line past the buffer cap, say) leaves the
		// subprocess still writing. Keep consuming the stream or its
		// writes block on the pipe and the process is never reaped.
		if errors.Is(err, bufio.ErrTooLong) {
			b.decodeWarnings++
		}
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
