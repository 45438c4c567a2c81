package tilerast

import (
	"fmt"
	"sync"

	"github.com/gogpu/tilerast/render"
)

// OverflowPolicy decides what a full pending queue does with a new job.
type OverflowPolicy int

const (
	// OverflowReject refuses the new job with ErrQueueFull.
	OverflowReject OverflowPolicy = iota
	// OverflowShedOldest drops the oldest pending job, resolving its
	// future with ErrShed, and queues the new one.
	OverflowShedOldest
)

// String returns the string representation of OverflowPolicy.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowReject:
		return "reject"
	case OverflowShedOldest:
		return "shed-oldest"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// jobQueue is a FIFO of jobs. It is not safe for concurrent use; the
// queueSet lock guards it.
type jobQueue struct {
	items []*job
	head  int
}

func (q *jobQueue) push(j *job) {
	q.items = append(q.items, j)
}

func (q *jobQueue) peek() *job {
	if q.head >= len(q.items) {
		return nil
	}
	return q.items[q.head]
}

func (q *jobQueue) pop() *job {
	if q.head >= len(q.items) {
		return nil
	}
	j := q.items[q.head]
	q.items[q.head] = nil
	q.head++
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 32 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return j
}

func (q *jobQueue) len() int {
	return len(q.items) - q.head
}

// drain removes and returns every job in FIFO order.
func (q *jobQueue) drain() []*job {
	out := make([]*job, q.len())
	copy(out, q.items[q.head:])
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return out
}

// queueSet holds the pending, readback and finished queues under one
// lock. The lock is held per mutation only.
type queueSet struct {
	mu sync.Mutex

	pending  jobQueue
	readback jobQueue
	finished jobQueue

	limit  int
	policy OverflowPolicy
	closed bool
	seq    uint64

	// orphans are staging buffers of jobs drained by close, released by
	// the render goroutine.
	orphans []*render.StagingBuffer
}

// nextID returns the next submission sequence number. Caller holds mu.
func (s *queueSet) nextID() uint64 {
	s.seq++
	return s.seq
}

// enqueue appends j to pending, applying the limit. It returns the job
// shed to make room, if any. Caller holds mu.
func (s *queueSet) enqueue(j *job) (shed *job, err error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.limit > 0 && s.pending.len() >= s.limit {
		if s.policy != OverflowShedOldest {
			return nil, fmt.Errorf("%w: %d jobs pending", ErrQueueFull, s.pending.len())
		}
		shed = s.pending.pop()
	}
	s.pending.push(j)
	return shed, nil
}

// close marks the set closed and removes every queued job. Caller holds mu.
func (s *queueSet) close() []*job {
	s.closed = true
	out := s.pending.drain()
	for _, q := range []*jobQueue{&s.readback, &s.finished} {
		for _, j := range q.drain() {
			if j.staging != nil {
				s.orphans = append(s.orphans, j.staging)
			}
			out = append(out, j)
		}
	}
	return out
}

// takeOrphans returns and clears the orphaned staging buffers. Caller
// holds mu.
func (s *queueSet) takeOrphans() []*render.StagingBuffer {
	o := s.orphans
	s.orphans = nil
	return o
}

// depths returns the queue lengths. Caller holds mu.
func (s *queueSet) depths() (pending, readback, finished int) {
	return s.pending.len(), s.readback.len(), s.finished.len()
}
