package tree

// Scheduler defers zero-delay continuations. The engine uses it to coalesce
// visible-cache recomputes, to debounce repeated keys and to run the
// post-attach selection pass. Implementations must run continuations on the
// same goroutine that drives the tree.
type Scheduler interface {
	Defer(fn func())
}

// Flusher is implemented by schedulers that can be drained on demand.
type Flusher interface {
	Flush() int
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

// Defer calls f(fn).
func (f SchedulerFunc) Defer(fn func()) { f(fn) }

// QueueScheduler is a FIFO of pending continuations drained by Flush. It is
// the default scheduler of a Tree.
type QueueScheduler struct {
	queue []func()
}

// NewQueueScheduler returns an empty queue.
func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{}
}

// Defer appends fn to the queue.
func (s *QueueScheduler) Defer(fn func()) {
	if fn == nil {
		return
	}
	s.queue = append(s.queue, fn)
}

// Pending returns the number of queued continuations.
func (s *QueueScheduler) Pending() int {
	return len(s.queue)
}

// Flush runs queued continuations until the queue is empty, including any
// scheduled while flushing, and returns how many ran.
func (s *QueueScheduler) Flush() int {
	ran := 0
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		fn()
		ran++
	}
	s.queue = nil
	return ran
}
