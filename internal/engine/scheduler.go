package engine

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled event. The zero Handle is never issued.
type Handle uint64

// scheduled is a deferred call bound to a world object.
type scheduled struct {
	handle Handle
	at     time.Duration
	seq    uint64
	object string
	name   string
	fn     func()
	index  int
}

type eventQueue []*scheduled

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x interface{}) {
	s := x.(*scheduled)
	s.index = len(*q)
	*q = append(*q, s)
}

func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*q = old[:n-1]
	return s
}

// Scheduler is a cooperative, single-threaded timer queue on simulated time.
// It is NOT safe for concurrent use; the Engine only touches it from the logic goroutine.
type Scheduler struct {
	now      time.Duration
	nextSeq  uint64
	queue    eventQueue
	byHandle map[Handle]*scheduled
	byObject map[string]map[Handle]*scheduled
}

// NewScheduler creates a scheduler with its clock at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{
		byHandle: make(map[Handle]*scheduled),
		byObject: make(map[string]map[Handle]*scheduled),
	}
}

// Now returns the current simulated time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Schedule queues fn to run delay after now against object. name is the
// action label used for cancellation by name and diagnostics.
func (s *Scheduler) Schedule(object string, delay time.Duration, name string, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	s.nextSeq++
	ev := &scheduled{
		handle: Handle(s.nextSeq),
		at:     s.now + delay,
		seq:    s.nextSeq,
		object: object,
		name:   name,
		fn:     fn,
	}
	heap.Push(&s.queue, ev)
	s.byHandle[ev.handle] = ev
	if s.byObject[object] == nil {
		s.byObject[object] = make(map[Handle]*scheduled)
	}
	s.byObject[object][ev.handle] = ev
	return ev.handle
}

// Cancel removes a pending event. It reports false if the event already ran
// or was cancelled.
func (s *Scheduler) Cancel(h Handle) bool {
	ev, ok := s.byHandle[h]
	if !ok {
		return false
	}
	s.remove(ev)
	heap.Remove(&s.queue, ev.index)
	return true
}

// CancelObject removes every pending event of object and returns how many.
func (s *Scheduler) CancelObject(object string) int {
	pending := s.byObject[object]
	n := 0
	for h := range pending {
		if s.Cancel(h) {
			n++
		}
	}
	return n
}

// CancelNamed removes the pending events of object carrying one of names.
func (s *Scheduler) CancelNamed(object string, names ...string) int {
	n := 0
	for h, ev := range s.byObject[object] {
		for _, name := range names {
			if ev.name == name {
				if s.Cancel(h) {
					n++
				}
				break
			}
		}
	}
	return n
}

// IsPending reports whether h is still queued.
func (s *Scheduler) IsPending(h Handle) bool {
	_, ok := s.byHandle[h]
	return ok
}

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// PendingFor returns the number of queued events of object.
func (s *Scheduler) PendingFor(object string) int {
	return len(s.byObject[object])
}

// Advance moves the clock forward by dt, running every event that falls due
// in (time, scheduling) order. Events scheduled while advancing run in the
// same call if they fall due before the new time.
func (s *Scheduler) Advance(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	target := s.now + dt
	ran := 0
	for len(s.queue) > 0 && s.queue[0].at <= target {
		ev := heap.Pop(&s.queue).(*scheduled)
		s.remove(ev)
		s.now = ev.at
		ev.fn()
		ran++
	}
	s.now = target
	return ran
}

func (s *Scheduler) remove(ev *scheduled) {
	delete(s.byHandle, ev.handle)
	if m := s.byObject[ev.object]; m != nil {
		delete(m, ev.handle)
		if len(m) == 0 {
			delete(s.byObject, ev.object)
		}
	}
}
