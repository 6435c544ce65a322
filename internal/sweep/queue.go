package sweep

import (
	"fmt"
	"sync"
	"time"
)

// OpQueue runs enqueued tasks one at a time, strictly in FIFO order, on a
// single background goroutine. Enqueue never blocks. The queue survives
// task panics: the panic is logged and the worker moves on.
type OpQueue struct {
	logger Logger

	mu      sync.Mutex
	tasks   []func()
	running bool
	closed  bool
	idle    []chan struct{}

	signal chan struct{}
	done   chan struct{}
}

func NewOpQueue(logger Logger) *OpQueue {
	q := &OpQueue{
		logger: logger,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Enqueue appends a task. Returns false if the queue is closed, in which
// case the task is dropped. The signal send happens under the mutex so it
// cannot race the close of the channel in Close.
func (q *OpQueue) Enqueue(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Len reports the number of tasks not yet started.
func (q *OpQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *OpQueue) run() {
	defer close(q.done)
	for {
		task, ok := q.next()
		if ok {
			q.exec(task)
			continue
		}
		q.mu.Lock()
		if q.closed && len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *OpQueue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.running = true
	return task, true
}

func (q *OpQueue) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queued task panicked", "panic", fmt.Sprint(r))
		}
		q.mu.Lock()
		q.running = false
		if len(q.tasks) == 0 {
			for _, ch := range q.idle {
				close(ch)
			}
			q.idle = nil
		}
		q.mu.Unlock()
	}()
	task()
}

// Drain blocks until the queue is empty and no task is running, or the
// timeout expires.
func (q *OpQueue) Drain(timeout time.Duration) error {
	q.mu.Lock()
	if len(q.tasks) == 0 && !q.running {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.idle = append(q.idle, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("draining queue: timed out after %s", timeout)
	}
}

// Close stops accepting tasks, lets queued work finish within the timeout,
// then drops whatever has not started. The in-flight task is never
// interrupted. Safe to call more than once.
func (q *OpQueue) Close(timeout time.Duration) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-time.After(timeout):
		q.mu.Lock()
		dropped := len(q.tasks)
		q.tasks = nil
		q.mu.Unlock()
		return fmt.Errorf("closing queue: timed out after %s, dropped %d pending tasks", timeout, dropped)
	}
}
