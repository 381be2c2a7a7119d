package check

import "sync"

type QueueStatus struct {
	QueueLength     int
	ProcessingCount int
	MaxConcurrent   int
}

// QueueManager is the admission controller: at most maxConcurrent check
// pipelines run at once, everything beyond that waits in FIFO order. The
// runner is invoked on its own goroutine and must block until the check
// reaches a terminal status; returning releases the slot to the next
// waiting check.
type QueueManager struct {
	mu            sync.Mutex
	maxConcurrent int
	processing    int
	waiting       []string
	runner        func(checkID string)
	closed        bool
}

func NewQueueManager(maxConcurrent int, runner func(checkID string)) *QueueManager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &QueueManager{
		maxConcurrent: maxConcurrent,
		runner:        runner,
	}
}

// Submit admits the check immediately when a slot is free, otherwise
// appends it to the wait queue. Never blocks.
func (q *QueueManager) Submit(checkID string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.processing < q.maxConcurrent {
		q.processing++
		q.mu.Unlock()
		go q.launch(checkID)
		return
	}
	q.waiting = append(q.waiting, checkID)
	q.mu.Unlock()
}

func (q *QueueManager) launch(checkID string) {
	q.runner(checkID)
	q.release()
}

// release hands the freed slot to the oldest waiting check, preserving
// submission order.
func (q *QueueManager) release() {
	q.mu.Lock()
	if q.closed || len(q.waiting) == 0 {
		q.processing--
		q.mu.Unlock()
		return
	}
	next := q.waiting[0]
	q.waiting = q.waiting[1:]
	q.mu.Unlock()
	go q.launch(next)
}

func (q *QueueManager) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStatus{
		QueueLength:     len(q.waiting),
		ProcessingCount: q.processing,
		MaxConcurrent:   q.maxConcurrent,
	}
}

// Close rejects further submissions and drops the wait queue; running
// pipelines finish normally.
func (q *QueueManager) Close() {
	q.mu.Lock()
	q.closed = true
	q.waiting = nil
	q.mu.Unlock()
}
