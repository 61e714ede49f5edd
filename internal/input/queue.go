package input

import (
	"fmt"
	"sync"
	"time"
)

// Forever makes Receive wait indefinitely for an action.
const Forever time.Duration = -1

// Queue is a bounded FIFO handing actions from the gamepad reader
// goroutine to the UI goroutine; it is the only thread-safe point in
// the pipeline. Send never blocks and reports false when the queue is
// full; the action is dropped. Receive can poll, wait with a timeout,
// or wait forever.
//
// Every operation on a nil or zero-value Queue fails safe: false,
// zero, or a none action.
type Queue struct {
	mu    sync.Mutex
	buf   []Action
	head  int
	count int

	// wake carries at most one token; a send after an empty period
	// nudges a blocked receiver.
	wake chan struct{}
}

// NewQueue returns a queue holding up to capacity actions.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("input: queue capacity must be at least 1, got %d", capacity)
	}
	return &Queue{
		buf:  make([]Action, capacity),
		wake: make(chan struct{}, 1),
	}, nil
}

// Send enqueues an action without blocking. Returns false when the
// queue is full or was never initialized; the caller's action is
// dropped either way.
func (q *Queue) Send(a Action) bool {
	if q == nil || q.buf == nil {
		return false
	}
	q.mu.Lock()
	if q.count == len(q.buf) {
		q.mu.Unlock()
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = a
	q.count++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Receive dequeues the oldest action. A zero timeout polls, Forever
// blocks until an action arrives, anything else waits up to the
// timeout. The second return value reports whether an action was
// dequeued.
func (q *Queue) Receive(timeout time.Duration) (Action, bool) {
	if q == nil || q.buf == nil {
		return Action{}, false
	}
	if a, ok := q.tryPop(); ok {
		return a, true
	}
	if timeout == 0 {
		return Action{}, false
	}

	var expire <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expire = timer.C
	}
	for {
		select {
		case <-q.wake:
			if a, ok := q.tryPop(); ok {
				return a, true
			}
		case <-expire:
			return Action{}, false
		}
	}
}

// Peek returns the oldest action without removing it.
func (q *Queue) Peek() (Action, bool) {
	if q == nil || q.buf == nil {
		return Action{}, false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Action{}, false
	}
	return q.buf[q.head], true
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	if q == nil || q.buf == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// IsEmpty reports whether the queue holds no actions.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether a Send would fail.
func (q *Queue) IsFull() bool {
	if q == nil || q.buf == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == len(q.buf)
}

// Clear discards all queued actions.
func (q *Queue) Clear() {
	if q == nil || q.buf == nil {
		return
	}
	q.mu.Lock()
	q.head = 0
	q.count = 0
	q.mu.Unlock()

	select {
	case <-q.wake:
	default:
	}
}

func (q *Queue) tryPop() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Action{}, false
	}
	a := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return a, true
}
