package runner

import "sync"

// History is a bounded in-memory ring of finalized run records, newest
// last. It backs the status listing; durable history belongs to
// whatever consumes the event stream.
type History struct {
	mu      sync.Mutex
	limit   int
	records []RunRecord
}

func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

func (h *History) Add(rec RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
}

// Recent returns up to n newest records, newest last.
func (h *History) Recent(n int) []RunRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]RunRecord, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
