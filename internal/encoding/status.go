package encoding

import (
	"container/heap"
	"context"
	"sync"
)

// Message priorities. Lower values are delivered first when several messages
// are pending, so failures overtake routine progress pings, and completion or
// termination is only observed after the joins that precede their enqueue.
const (
	PriorityFailure     = 2
	PriorityDecode      = 3
	PriorityLossy       = 5
	PriorityRipProgress = 7
	PriorityComplete    = 11
	PriorityFinished    = 13
)

// Message is one transient status update from a pipeline worker. Finished
// marks the whole-album terminal message; Err carries a track failure.
type Message struct {
	Priority     int
	TrackIndex   int
	SourcePath   string
	LosslessPath string
	LogPath      string
	State        State
	Err          error
	Finished     bool
}

// statusQueue is a priority-ordered, thread-safe message queue. Equal
// priorities dequeue in arrival order. awaitDrained blocks until every
// message enqueued so far has been consumed, which gives the ripper its
// ordered-shutdown guarantee.
type statusQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries entryHeap
	seq     uint64
	pending int
	closed  bool
}

type entry struct {
	msg Message
	seq uint64
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority < h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newStatusQueue() *statusQueue {
	q := &statusQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *statusQueue) push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.seq++
	heap.Push(&q.entries, entry{msg: msg, seq: q.seq})
	q.pending++
	q.cond.Broadcast()
}

// poll removes and returns the lowest-priority pending message.
func (q *statusQueue) poll() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *statusQueue) popLocked() (Message, bool) {
	if q.entries.Len() == 0 {
		return Message{}, false
	}
	item := heap.Pop(&q.entries).(entry)
	q.pending--
	q.cond.Broadcast()
	return item.msg, true
}

// next blocks for the next message. ok is false once the queue is closed and
// empty, or the context is done.
func (q *statusQueue) next(ctx context.Context) (Message, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if msg, ok := q.popLocked(); ok {
			return msg, true
		}
		if q.closed || ctx.Err() != nil {
			return Message{}, false
		}
		q.cond.Wait()
	}
}

// awaitDrained blocks until every message enqueued so far has been consumed.
func (q *statusQueue) awaitDrained(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 && ctx.Err() == nil {
		q.cond.Wait()
	}
}

func (q *statusQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Handle is the caller's view of a running pipeline: a pull-style stream of
// status messages the caller drains at its own pace.
type Handle struct {
	queue *statusQueue
	done  chan struct{}
}

// Poll returns the next pending message without blocking.
func (h *Handle) Poll() (Message, bool) {
	return h.queue.poll()
}

// Next blocks until a message is available. ok is false when the pipeline has
// terminated and every message was consumed, or ctx is done.
func (h *Handle) Next(ctx context.Context) (Message, bool) {
	return h.queue.next(ctx)
}

// Done is closed when the ripper has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
