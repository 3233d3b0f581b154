package sim

import (
	"container/heap"
	"sync"
)

// The Timeline is the ordered queue of future wake-ups: it maps absolute
// simulated times to the processes scheduled to resume at those times, and it
// owns the simulated-time counter. The mutex only protects against outside
// readers such as the monitor; the simulation itself is single-threaded.
type Timeline struct {
	mu          sync.RWMutex
	entries     entryHeap
	currentTime VTime
}

type timelineEntry struct {
	time VTime
	proc Process
}

// NewTimeline creates an empty timeline at time zero.
func NewTimeline() *Timeline {
	t := &Timeline{}
	heap.Init(&t.entries)
	return t
}

// Reset clears all scheduled entries and moves time back to zero.
func (t *Timeline) Reset() {
	t.mu.Lock()
	t.entries = t.entries[:0]
	t.currentTime = 0
	t.mu.Unlock()
}

func (t *Timeline) now() VTime {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentTime
}

// At schedules the process to become runnable when simulated time reaches the
// absolute time at. The time must be strictly after the current simulated
// time; delta cycles within the current instant never go through the
// timeline.
func (t *Timeline) At(at VTime, proc Process) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if at <= t.currentTime {
		return &SchedulingError{Now: t.currentTime, Want: at}
	}

	heap.Push(&t.entries, timelineEntry{time: at, proc: proc})

	return nil
}

// Delay schedules the process delay time units after the current simulated
// time.
func (t *Timeline) Delay(delay VTime, proc Process) error {
	return t.At(t.now()+delay, proc)
}

// Advance moves simulated time to the earliest scheduled instant and removes
// and returns the batch of processes due at it. All entries that share the
// earliest time are due together. The third return value is false when the
// timeline holds no entries, in which case time does not move.
func (t *Timeline) Advance() (VTime, []Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries.Len() == 0 {
		return t.currentTime, nil, false
	}

	first := heap.Pop(&t.entries).(timelineEntry)
	t.currentTime = first.time
	due := []Process{first.proc}

	for t.entries.Len() > 0 && t.entries[0].time == first.time {
		due = append(due, heap.Pop(&t.entries).(timelineEntry).proc)
	}

	return first.time, due, true
}

// Len returns the number of scheduled entries.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries.Len()
}

type entryHeap []timelineEntry

func (h entryHeap) Len() int {
	return len(h)
}

func (h entryHeap) Less(i, j int) bool {
	return h[i].time < h[j].time
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(timelineEntry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
