package scheduler

import (
	"container/heap"
	"time"

	"borgsched/internal/config"
)

// jobState is the scheduler's private per-job bookkeeping. It is only
// ever touched from the decision loop; runners communicate through
// result messages, never by reaching in here.
type jobState struct {
	name        string
	job         *config.Job
	snap        *config.Snapshot
	nextDue     time.Time
	failures    int
	running     bool
	removed     bool
	dueNow      bool
	description string
	index       int
}

// dueHeap orders idle jobs by next-due time.
type dueHeap []*jobState

func (h dueHeap) Len() int            { return len(h) }
func (h dueHeap) Less(i, j int) bool  { return h[i].nextDue.Before(h[j].nextDue) }
func (h dueHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *dueHeap) Push(x any)         { s := x.(*jobState); s.index = len(*h); *h = append(*h, s) }
func (h *dueHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[:n-1]
	return s
}

type stateSet struct {
	byName map[string]*jobState
	due    dueHeap
}

func newStateSet() *stateSet {
	return &stateSet{byName: make(map[string]*jobState)}
}

func (s *stateSet) add(js *jobState) {
	s.byName[js.name] = js
	heap.Push(&s.due, js)
}

// peek returns the idle job with the earliest next-due time.
func (s *stateSet) peek() *jobState {
	if len(s.due) == 0 {
		return nil
	}
	return s.due[0]
}

// popDue removes and returns the earliest idle job if it is due at or
// before now.
func (s *stateSet) popDue(now time.Time) *jobState {
	js := s.peek()
	if js == nil || js.nextDue.After(now) {
		return nil
	}
	heap.Pop(&s.due)
	return js
}

// requeue puts a job back on the due heap with a new due time.
func (s *stateSet) requeue(js *jobState, due time.Time) {
	js.nextDue = due
	js.running = false
	heap.Push(&s.due, js)
}

// bump moves an idle job to a new due time in place.
func (s *stateSet) bump(js *jobState, due time.Time) {
	js.nextDue = due
	if !js.running && js.index >= 0 {
		heap.Fix(&s.due, js.index)
	}
}

// drop forgets a job entirely. Idle jobs are also removed from the
// heap; running ones are retired by discarding them on completion.
func (s *stateSet) drop(js *jobState) {
	delete(s.byName, js.name)
	if !js.running && js.index >= 0 {
		heap.Remove(&s.due, js.index)
	}
}
