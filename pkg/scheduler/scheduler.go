// Package scheduler provides cancellable delayed callbacks driven by the
// host's frame loop. Nothing here starts goroutines: due tasks run inside
// Advance on the caller's goroutine, which keeps the core single-threaded.
package scheduler

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// Task is a handle to a scheduled callback.
type Task struct {
	id        uuid.UUID
	due       time.Time
	seq       uint64
	fn        func()
	cancelled bool
	done      bool
	index     int
}

// ID returns the task's unique handle id.
func (t *Task) ID() uuid.UUID { return t.id }

// Due returns the time at which the task fires.
func (t *Task) Due() time.Time { return t.due }

// Cancel prevents the task from firing. Cancelling a nil, fired or already
// cancelled task is a no-op.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
}

// Done reports whether the task fired or was cancelled.
func (t *Task) Done() bool {
	return t == nil || t.done || t.cancelled
}

// Scheduler orders tasks by due time, then by scheduling order.
type Scheduler struct {
	now   time.Time
	seq   uint64
	queue taskQueue
}

// New creates a scheduler whose clock starts at now.
func New(now time.Time) *Scheduler {
	return &Scheduler{now: now}
}

// Now returns the time of the last Advance (or construction).
func (s *Scheduler) Now() time.Time { return s.now }

// After schedules fn to run once delay has elapsed on the scheduler clock.
// A non-positive delay fires on the next Advance.
func (s *Scheduler) After(delay time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	t := &Task{
		id:  uuid.New(),
		due: s.now.Add(delay),
		seq: s.seq,
		fn:  fn,
	}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the clock to now and runs every task that has come due, in
// due order. Tasks scheduled by a running task also fire if they are due.
// It returns the number of tasks that ran.
func (s *Scheduler) Advance(now time.Time) int {
	if now.After(s.now) {
		s.now = now
	}

	ran := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.due.After(s.now) {
			break
		}
		heap.Pop(&s.queue)
		if next.cancelled {
			continue
		}
		next.done = true
		if next.fn != nil {
			next.fn()
		}
		ran++
	}
	return ran
}

// Pending returns the number of tasks that have neither fired nor been cancelled.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.queue {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// CancelAll cancels every pending task.
func (s *Scheduler) CancelAll() {
	for _, t := range s.queue {
		t.cancelled = true
	}
	s.queue = s.queue[:0]
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
